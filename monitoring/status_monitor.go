package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mlserve/ml"
)

const statusInterval = 5 * time.Second

// StatusUpdate is the payload broadcast to websocket clients.
type StatusUpdate struct {
	Status           string    `json:"status"`
	ModelLoaded      bool      `json:"model_loaded"`
	ModelVersion     string    `json:"model_version"`
	ConnectedClients int       `json:"connected_clients"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
	Timestamp        time.Time `json:"timestamp"`
}

// StatusMonitor periodically snapshots the loaded-model state and pushes it
// through the hub. Read-only over the model snapshot.
type StatusMonitor struct {
	state     *ml.State
	hub       *StatusHub
	log       *zap.Logger
	startTime time.Time
}

func NewStatusMonitor(state *ml.State, hub *StatusHub, log *zap.Logger) *StatusMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatusMonitor{
		state:     state,
		hub:       hub,
		log:       log,
		startTime: time.Now(),
	}
}

func (m *StatusMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	m.log.Info("status monitor started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info("status monitor stopped")
			return
		case <-ticker.C:
			m.hub.BroadcastJSON(m.snapshot())
		}
	}
}

func (m *StatusMonitor) snapshot() StatusUpdate {
	status := m.state.Status()
	return StatusUpdate{
		Status:           "healthy",
		ModelLoaded:      status.Loaded,
		ModelVersion:     status.Version,
		ConnectedClients: m.hub.ConnectedClients(),
		UptimeSeconds:    time.Since(m.startTime).Seconds(),
		Timestamp:        time.Now().UTC(),
	}
}
