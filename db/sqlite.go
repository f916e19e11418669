// Package db is the prediction attribution store. Writes are best effort
// from the caller's point of view; the serving path never depends on them.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

var ErrNotInitialized = errors.New("database not initialized")

// InitDB opens the SQLite database and creates the schema.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        features TEXT NOT NULL,
        prediction REAL NOT NULL,
        confidence REAL NOT NULL,
        model_version TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_user ON predictions(user_id, created_at);
    `

	_, err = database.Exec(query)
	return err
}

// Close releases the database handle. Used by tests.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// PredictionRecord is one attributed prediction.
type PredictionRecord struct {
	UserID       string    `json:"user_id"`
	Features     []float64 `json:"features"`
	Prediction   float64   `json:"prediction"`
	Confidence   float64   `json:"confidence"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}

// SavePrediction appends one record. Features are stored as a JSON array so
// the fixed vector width stays an application concern, not a schema one.
func SavePrediction(record PredictionRecord) error {
	if database == nil {
		return ErrNotInitialized
	}

	features, err := json.Marshal(record.Features)
	if err != nil {
		return err
	}

	_, err = database.Exec(`
        INSERT INTO predictions (user_id, features, prediction, confidence, model_version, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		record.UserID, string(features), record.Prediction, record.Confidence,
		record.ModelVersion, record.CreatedAt)
	return err
}

// QueryPredictions returns the newest records, optionally filtered by user.
func QueryPredictions(userID string, limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
        SELECT user_id, features, prediction, confidence, model_version, created_at
        FROM predictions`
	args := make([]interface{}, 0, 2)
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var record PredictionRecord
		var features string
		if err := rows.Scan(&record.UserID, &features, &record.Prediction,
			&record.Confidence, &record.ModelVersion, &record.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &record.Features); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
