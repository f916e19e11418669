package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"mlserve/ml"
)

func main() {
	samples := flag.Int("samples", 1000, "number of synthetic samples")
	seed := flag.Int64("seed", 42, "random seed")
	modelPath := flag.String("model_path", "./models/linear.model", "model artifact output path")
	version := flag.String("version", "", "model version (defaults to a timestamp)")
	flag.Parse()

	artifact, err := ml.TrainLinearModel(*samples, *seed, *version)
	if err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	log.Printf("coefficients=%v intercept=%.4f", artifact.Coefficients, artifact.Intercept)
	log.Printf("mse=%.4f r2=%.4f confidence=%.2f", artifact.Metrics.MSE, artifact.Metrics.R2, artifact.Confidence)

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := artifact.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	fmt.Printf("model %s saved to %s\n", artifact.Version, *modelPath)
}
