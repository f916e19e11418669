package ml

import (
	"fmt"
	"math"
)

// Predict evaluates the linear model against one feature vector and returns
// (prediction, confidence). The computation is the closed form
// intercept + sum(coefficients[i]*features[i]), in float64 with no rounding;
// formatting belongs to the presentation layer. Confidence is the artifact's
// static training-time value, identical for every input.
func (a *Artifact) Predict(features []float64) (float64, float64, error) {
	if a == nil {
		return 0, 0, ErrModelNotLoaded
	}
	if len(features) != FeatureCount {
		return 0, 0, fmt.Errorf("%w: expected %d features, got %d", ErrInvalidInput, FeatureCount, len(features))
	}
	for i, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, 0, fmt.Errorf("%w: feature %d is not finite", ErrInvalidInput, i)
		}
	}

	prediction := a.Intercept
	for i, c := range a.Coefficients {
		prediction += c * features[i]
	}
	return prediction, a.Confidence, nil
}
