package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Load reads and validates a persisted artifact. Any failure (missing file,
// malformed content, wrong coefficient count) leaves the caller without a
// model; the server still starts and answers health checks in that case.
func Load(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if err := artifact.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	return &artifact, nil
}

// State is the process-wide loaded-model snapshot. It is written exactly
// once, before the server starts accepting requests, so concurrent readers
// need no locking. Picking up a new artifact requires a process restart.
type State struct {
	artifact *Artifact
}

// NewState wraps an artifact, or nil for the degraded (unloaded) state.
func NewState(artifact *Artifact) *State {
	return &State{artifact: artifact}
}

func (s *State) Loaded() bool {
	return s != nil && s.artifact != nil
}

// Artifact returns the loaded artifact, or nil when degraded. Callers must
// treat it as read-only.
func (s *State) Artifact() *Artifact {
	if s == nil {
		return nil
	}
	return s.artifact
}

type Status struct {
	Loaded    bool      `json:"loaded"`
	Version   string    `json:"version"`
	ModelType string    `json:"model_type"`
	TrainedAt time.Time `json:"trained_at"`
}

// Status reports the loader view without side effects.
func (s *State) Status() Status {
	if !s.Loaded() {
		return Status{Loaded: false, Version: "unknown", ModelType: "unknown"}
	}
	return Status{
		Loaded:    true,
		Version:   s.artifact.Version,
		ModelType: s.artifact.ModelType,
		TrainedAt: s.artifact.TrainedAt,
	}
}
