package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"
)

// FeatureCount is the fixed width of every feature vector the service
// accepts. Artifacts with a different coefficient count are rejected at load
// time, never per request.
const FeatureCount = 4

var (
	ErrModelNotLoaded = errors.New("model not loaded")
	ErrInvalidInput   = errors.New("invalid input features")
)

// Metrics are the quality numbers measured on the held-out data at training
// time. They travel with the artifact and never change afterwards.
type Metrics struct {
	MSE float64 `json:"mse"`
	R2  float64 `json:"r2"`
}

// Artifact is a persisted linear model: coefficients, intercept and the
// metadata the serving API reports. Confidence is derived from R2 once by the
// trainer and returned unchanged for every prediction against this artifact.
type Artifact struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Version      string    `json:"version"`
	ModelType    string    `json:"model_type"`
	TrainedAt    time.Time `json:"trained_at"`
	Metrics      Metrics   `json:"metrics"`
	Confidence   float64   `json:"confidence"`
}

func (a *Artifact) validate() error {
	if len(a.Coefficients) != FeatureCount {
		return fmt.Errorf("expected %d coefficients, got %d", FeatureCount, len(a.Coefficients))
	}
	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if math.IsNaN(a.Intercept) || math.IsInf(a.Intercept, 0) {
		return errors.New("intercept is not finite")
	}
	if a.Version == "" {
		return errors.New("version is required")
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", a.Confidence)
	}
	return nil
}

func (a *Artifact) Save(path string) error {
	if err := a.validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
