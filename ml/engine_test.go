package ml

import (
	"errors"
	"math"
	"testing"
)

func TestPredictLinearForm(t *testing.T) {
	artifact := testArtifact()

	prediction, confidence, err := artifact.Predict([]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prediction != 30 {
		t.Fatalf("expected 30, got %v", prediction)
	}
	if confidence != artifact.Confidence {
		t.Fatalf("expected artifact confidence %v, got %v", artifact.Confidence, confidence)
	}
}

func TestPredictZeroVector(t *testing.T) {
	artifact := testArtifact()
	prediction, _, err := artifact.Predict([]float64{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prediction != 0 {
		t.Fatalf("expected 0, got %v", prediction)
	}
}

func TestPredictDeterministic(t *testing.T) {
	artifact := testArtifact()
	features := []float64{0.5, -1.25, 3.75, 2}

	first, _, err := artifact.Predict(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _, err := artifact.Predict(features)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("prediction not reproducible: %v vs %v", again, first)
		}
	}
}

func TestConfidenceIsInputIndependent(t *testing.T) {
	artifact := testArtifact()
	inputs := [][]float64{
		{1, 2, 3, 4},
		{0, 0, 0, 0},
		{-10, 100, 0.001, 7},
	}

	_, first, err := artifact.Predict(inputs[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, features := range inputs[1:] {
		_, confidence, err := artifact.Predict(features)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if confidence != first {
			t.Fatalf("confidence varied with input: %v vs %v", confidence, first)
		}
	}
}

func TestPredictRejectsWrongLength(t *testing.T) {
	artifact := testArtifact()
	for _, features := range [][]float64{nil, {1}, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		if _, _, err := artifact.Predict(features); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %d features, got %v", len(features), err)
		}
	}
}

func TestPredictRejectsNonFinite(t *testing.T) {
	artifact := testArtifact()
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		features := []float64{1, 2, bad, 4}
		if _, _, err := artifact.Predict(features); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %v, got %v", bad, err)
		}
	}
}

func TestPredictNilArtifact(t *testing.T) {
	var artifact *Artifact
	if _, _, err := artifact.Predict([]float64{1, 2, 3, 4}); !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("expected ErrModelNotLoaded, got %v", err)
	}
}
