package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"mlserve/db"
	"mlserve/ml"
	"mlserve/monitoring"
)

const predictionCacheSize = 1024

var (
	logger     = zap.NewNop()
	modelState *ml.State
	statusHub  *monitoring.StatusHub

	// cache of engine results keyed by the exact feature vector. Safe
	// because predictions are deterministic and the model never changes
	// within a process lifetime.
	predictionCache *lru.Cache[string, cachedPrediction]
)

type cachedPrediction struct {
	prediction float64
	confidence float64
}

func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// SetModelState installs the loaded-model snapshot the handlers serve from.
// The cache is rebuilt because cached results belong to one model only.
func SetModelState(state *ml.State) {
	modelState = state
	predictionCache, _ = lru.New[string, cachedPrediction](predictionCacheSize)
}

func SetStatusHub(hub *monitoring.StatusHub) {
	statusHub = hub
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleHealth)
	mux.HandleFunc("GET /model/info", handleModelInfo)
	mux.HandleFunc("POST /predict", handlePredict)
	mux.HandleFunc("GET /predictions/history", handleHistory)
	mux.HandleFunc("GET /api/ws/status", handleStatusWS)
}

type healthResponse struct {
	Status      string    `json:"status"`
	ModelLoaded bool      `json:"model_loaded"`
	Timestamp   time.Time `json:"timestamp"`
}

// handleHealth always succeeds; a degraded service is still a live process.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		ModelLoaded: modelState.Loaded(),
		Timestamp:   time.Now().UTC(),
	})
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	status := modelState.Status()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"model_loaded":   status.Loaded,
		"model_version":  status.Version,
		"model_type":     status.ModelType,
		"model_features": ml.FeatureCount,
		"timestamp":      time.Now().UTC(),
	})
}

type predictRequest struct {
	Features []float64 `json:"features"`
	UserID   string    `json:"user_id"`
}

type predictResponse struct {
	Prediction   float64   `json:"prediction"`
	Confidence   float64   `json:"confidence"`
	ModelVersion string    `json:"model_version"`
	Timestamp    time.Time `json:"timestamp"`
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Validate before anything touches the engine.
	if msg, ok := validatePredictRequest(req); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if !modelState.Loaded() {
		respondError(w, http.StatusServiceUnavailable, "model unavailable")
		return
	}

	artifact := modelState.Artifact()
	cacheKey := featureKey(req.Features)

	var prediction, confidence float64
	if cached, ok := predictionCache.Get(cacheKey); ok {
		prediction, confidence = cached.prediction, cached.confidence
	} else {
		var err error
		prediction, confidence, err = artifact.Predict(req.Features)
		if err != nil {
			if errors.Is(err, ml.ErrInvalidInput) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("prediction failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		predictionCache.Add(cacheKey, cachedPrediction{prediction: prediction, confidence: confidence})
	}

	response := predictResponse{
		Prediction:   prediction,
		Confidence:   confidence,
		ModelVersion: artifact.Version,
		Timestamp:    time.Now().UTC(),
	}

	// Attribution logging is best effort and must never affect the response.
	if err := db.SavePrediction(db.PredictionRecord{
		UserID:       req.UserID,
		Features:     req.Features,
		Prediction:   response.Prediction,
		Confidence:   response.Confidence,
		ModelVersion: response.ModelVersion,
		CreatedAt:    response.Timestamp,
	}); err != nil {
		logger.Warn("failed to log prediction",
			zap.String("user_id", req.UserID), zap.Error(err))
	}

	respondJSON(w, http.StatusOK, response)
}

func validatePredictRequest(req predictRequest) (string, bool) {
	if len(req.Features) != ml.FeatureCount {
		return "features must contain exactly " + strconv.Itoa(ml.FeatureCount) + " values", false
	}
	for _, f := range req.Features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "features must be finite numbers", false
		}
	}
	if req.UserID == "" {
		return "user_id is required", false
	}
	return "", true
}

func handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	records, err := db.QueryPredictions(userID, limit)
	if err != nil {
		if errors.Is(err, db.ErrNotInitialized) {
			respondError(w, http.StatusServiceUnavailable, "prediction store not available")
			return
		}
		logger.Error("failed to query prediction history", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"count":       len(records),
	})
}

func handleStatusWS(w http.ResponseWriter, r *http.Request) {
	if statusHub == nil {
		respondError(w, http.StatusServiceUnavailable, "status stream not available")
		return
	}
	statusHub.ServeWS(w, r)
}

// featureKey builds a canonical cache key from the exact float64 bits, so
// vectors that differ only past display precision are still distinct.
func featureKey(features []float64) string {
	key := make([]byte, 0, len(features)*17)
	for _, f := range features {
		key = strconv.AppendUint(key, math.Float64bits(f), 16)
		key = append(key, ':')
	}
	return string(key)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
