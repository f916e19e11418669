package ml

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// generating weights for the synthetic regression problem
var syntheticWeights = [FeatureCount]float64{2.0, 1.5, 0.5, 0.8}

const syntheticNoise = 0.1

// SyntheticDataset draws n standard-normal feature vectors and targets with a
// known linear relationship plus Gaussian noise. Deterministic per seed.
func SyntheticDataset(n int, seed int64) ([][]float64, []float64) {
	rnd := rand.New(rand.NewSource(seed))

	features := make([][]float64, n)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		vector := make([]float64, FeatureCount)
		target := 0.0
		for j := 0; j < FeatureCount; j++ {
			vector[j] = rnd.NormFloat64()
			target += syntheticWeights[j] * vector[j]
		}
		features[i] = vector
		targets[i] = target + rnd.NormFloat64()*syntheticNoise
	}
	return features, targets
}

// FitLinear estimates per-feature coefficients from the correlation between
// each feature column and the target, scaled by the std ratio, with the
// intercept closing the gap at the means. Good enough for independent
// features; this is a teaching model, not a full least-squares solver.
func FitLinear(features [][]float64, targets []float64) ([]float64, float64, error) {
	if len(features) == 0 || len(features) != len(targets) {
		return nil, 0, errors.New("features and targets size mismatch")
	}

	targetMean := mean(targets)
	targetStd := stddev(targets, targetMean)

	coefficients := make([]float64, FeatureCount)
	featureMeans := make([]float64, FeatureCount)
	for j := 0; j < FeatureCount; j++ {
		column := make([]float64, len(features))
		for i := range features {
			column[i] = features[i][j]
		}
		columnMean := mean(column)
		columnStd := stddev(column, columnMean)
		if columnStd == 0 {
			return nil, 0, errors.New("constant feature column")
		}
		coefficients[j] = correlation(column, targets, columnMean, targetMean) * targetStd / columnStd
		featureMeans[j] = columnMean
	}

	intercept := targetMean
	for j, c := range coefficients {
		intercept -= c * featureMeans[j]
	}
	return coefficients, intercept, nil
}

// EvaluateLinear computes MSE and R2 of the fitted model over a dataset.
func EvaluateLinear(features [][]float64, targets []float64, coefficients []float64, intercept float64) Metrics {
	if len(features) == 0 {
		return Metrics{}
	}

	targetMean := mean(targets)
	var residual, total float64
	for i, vector := range features {
		predicted := intercept
		for j, c := range coefficients {
			predicted += c * vector[j]
		}
		residual += (targets[i] - predicted) * (targets[i] - predicted)
		total += (targets[i] - targetMean) * (targets[i] - targetMean)
	}

	metrics := Metrics{MSE: residual / float64(len(features))}
	if total > 0 {
		metrics.R2 = 1 - residual/total
	}
	return metrics
}

// TrainLinearModel fits a linear model on the synthetic dataset and packages
// it as a serving artifact. Confidence is fixed here, at training time, as a
// clamped transform of R2; the server only reports it.
func TrainLinearModel(samples int, seed int64, version string) (*Artifact, error) {
	if samples < FeatureCount+1 {
		return nil, errors.New("not enough samples")
	}

	features, targets := SyntheticDataset(samples, seed)
	coefficients, intercept, err := FitLinear(features, targets)
	if err != nil {
		return nil, err
	}
	metrics := EvaluateLinear(features, targets, coefficients, intercept)

	now := time.Now().UTC()
	if version == "" {
		version = "v" + now.Format("20060102150405")
	}

	return &Artifact{
		Coefficients: coefficients,
		Intercept:    intercept,
		Version:      version,
		ModelType:    "linear_regression",
		TrainedAt:    now,
		Metrics:      metrics,
		Confidence:   confidenceFromR2(metrics.R2),
	}, nil
}

func confidenceFromR2(r2 float64) float64 {
	return math.Min(0.99, math.Max(0.5, r2))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, valuesMean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - valuesMean) * (v - valuesMean)
	}
	return math.Sqrt(sum / float64(len(values)))
}

func correlation(xs, ys []float64, xMean, yMean float64) float64 {
	var cov, xVar, yVar float64
	for i := range xs {
		cov += (xs[i] - xMean) * (ys[i] - yMean)
		xVar += (xs[i] - xMean) * (xs[i] - xMean)
		yVar += (ys[i] - yMean) * (ys[i] - yMean)
	}
	if xVar == 0 || yVar == 0 {
		return 0
	}
	return cov / math.Sqrt(xVar*yVar)
}
