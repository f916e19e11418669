package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mlserve/ml"
)

func loadedState() *ml.State {
	return ml.NewState(&ml.Artifact{
		Coefficients: []float64{1, 2, 3, 4},
		Intercept:    0,
		Version:      "v1",
		ModelType:    "linear_regression",
		TrainedAt:    time.Now().UTC(),
		Metrics:      ml.Metrics{MSE: 0.01, R2: 0.99},
		Confidence:   0.95,
	})
}

func newDegradedState() *ml.State {
	return ml.NewState(nil)
}

func newTestMux(state *ml.State) *http.ServeMux {
	SetModelState(state)
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	return mux
}

func TestHealthHandler(t *testing.T) {
	mux := newTestMux(loadedState())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["status"] != "healthy" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["model_loaded"] != true {
		t.Fatalf("expected model_loaded true, got %v", payload["model_loaded"])
	}
	if _, ok := payload["timestamp"]; !ok {
		t.Fatal("expected timestamp")
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	mux := newTestMux(ml.NewState(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	// Health always succeeds; only the loaded flag changes.
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["model_loaded"] != false {
		t.Fatalf("expected model_loaded false, got %v", payload["model_loaded"])
	}
}

func TestModelInfoHandler(t *testing.T) {
	mux := newTestMux(loadedState())

	req := httptest.NewRequest(http.MethodGet, "/model/info", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["model_version"] != "v1" {
		t.Fatalf("unexpected model_version: %v", payload["model_version"])
	}
	if payload["model_type"] != "linear_regression" {
		t.Fatalf("unexpected model_type: %v", payload["model_type"])
	}
	if payload["model_features"].(float64) != 4 {
		t.Fatalf("unexpected model_features: %v", payload["model_features"])
	}
}

func TestModelInfoHandlerDegraded(t *testing.T) {
	mux := newTestMux(ml.NewState(nil))

	req := httptest.NewRequest(http.MethodGet, "/model/info", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["model_loaded"] != false {
		t.Fatalf("expected model_loaded false, got %v", payload["model_loaded"])
	}
	if payload["model_version"] != "unknown" {
		t.Fatalf("expected unknown version, got %v", payload["model_version"])
	}
}

func TestModelInfoIdempotent(t *testing.T) {
	mux := newTestMux(loadedState())

	var first map[string]interface{}
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/model/info", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		var payload map[string]interface{}
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if first == nil {
			first = payload
			continue
		}
		if payload["model_version"] != first["model_version"] || payload["model_loaded"] != first["model_loaded"] {
			t.Fatal("model info changed between reads with no intervening load")
		}
	}
}
