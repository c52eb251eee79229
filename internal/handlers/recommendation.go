package handlers

import (
	"net/http"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// RecommendationRequest is the body of POST /recommendation/.
type RecommendationRequest struct {
	Profile      *domain.UserProfile `json:"profile"`
	DailyMetrics *domain.DailyMetric `json:"daily_metrics"`
	Goals        []domain.Goal       `json:"goals" validate:"dive"`
}

func (h *Handler) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Profile == nil || req.DailyMetrics == nil {
		h.writeError(w, r, errors.NewValidationError("missing profile or metrics"))
		return
	}
	if req.Profile.UserID != req.DailyMetrics.UserID {
		h.writeError(w, r, errors.NewValidationError("user_id mismatch between profile and metrics"))
		return
	}

	goals := make([]domain.Goal, 0, len(req.Goals))
	for _, g := range req.Goals {
		goals = append(goals, g.WithDefaults())
	}

	rec, err := h.orchestrator.CreateDailyRecommendation(r.Context(), *req.Profile, *req.DailyMetrics, goals)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.notifier != nil {
		if err := h.notifier.ForwardRecommendation(r.Context(), *req.Profile, rec, h.policyType); err != nil {
			logger.Warn("Failed to forward recommendation", "user_id", req.Profile.UserID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetRecommendation is not backed by storage.
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, ErrorResponse{Detail: "Not implemented"})
}
