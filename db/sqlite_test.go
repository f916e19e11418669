package db

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	dbPath := "./test.db"
	if err := InitDB(dbPath); err != nil {
		os.Exit(1)
	}

	code := m.Run()

	Close()
	os.Remove(dbPath)
	os.Exit(code)
}

func record(userID string, prediction float64, at time.Time) PredictionRecord {
	return PredictionRecord{
		UserID:       userID,
		Features:     []float64{1, 2, 3, 4},
		Prediction:   prediction,
		Confidence:   0.95,
		ModelVersion: "v1",
		CreatedAt:    at,
	}
}

func TestSaveAndQueryPredictions(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := SavePrediction(record("user-a", float64(i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := SavePrediction(record("user-b", 99, base.Add(time.Hour))); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	records, err := QueryPredictions("user-a", 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records for user-a, got %d", len(records))
	}
	// newest first
	if records[0].Prediction != 2 {
		t.Fatalf("expected newest record first, got prediction %v", records[0].Prediction)
	}
	if len(records[0].Features) != 4 {
		t.Fatalf("features did not round trip: %v", records[0].Features)
	}

	all, err := QueryPredictions("", 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 records total, got %d", len(all))
	}
}

func TestQueryPredictionsLimit(t *testing.T) {
	records, err := QueryPredictions("", 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) > 2 {
		t.Fatalf("limit not honored, got %d records", len(records))
	}
}

func TestUninitializedGuards(t *testing.T) {
	saved := database
	database = nil
	defer func() { database = saved }()

	if err := SavePrediction(record("user-a", 1, time.Now())); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := QueryPredictions("", 10); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
