package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

// WeightAdjuster is the part of the embedding ensemble the operator
// endpoint needs
type WeightAdjuster interface {
	AdjustWeights(performance map[string]float64)
	Weights() map[string]float64
	Available(ctx context.Context) []string
}

// WeightsHandler exposes operator reweighting of the embedding ensemble
type WeightsHandler struct {
	ensemble WeightAdjuster
}

// NewWeightsHandler creates a new weights handler
func NewWeightsHandler(ensemble WeightAdjuster) *WeightsHandler {
	return &WeightsHandler{ensemble: ensemble}
}

// AdjustWeightsRequest carries per-provider performance scores
type AdjustWeightsRequest struct {
	Performance map[string]float64 `json:"performance"`
}

// WeightsResponse reports the current ensemble state
type WeightsResponse struct {
	Weights   map[string]float64 `json:"weights"`
	Available []string           `json:"available"`
}

// GetWeights handles GET /ensemble/weights
func (h *WeightsHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, WeightsResponse{
		Weights:   h.ensemble.Weights(),
		Available: h.ensemble.Available(r.Context()),
	})
}

// AdjustWeights handles POST /ensemble/weights: provider weights are
// redistributed proportionally to the posted performance scores
func (h *WeightsHandler) AdjustWeights(w http.ResponseWriter, r *http.Request) {
	var req AdjustWeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if len(req.Performance) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "performance scores are required")
		return
	}
	for id, score := range req.Performance {
		if score < 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "performance score for "+id+" must be non-negative")
			return
		}
	}

	h.ensemble.AdjustWeights(req.Performance)

	respondJSON(w, http.StatusOK, WeightsResponse{
		Weights:   h.ensemble.Weights(),
		Available: h.ensemble.Available(r.Context()),
	})
}
