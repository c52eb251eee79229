package handlers

import (
	"fmt"
	"net/http"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
	"github.com/vladimiradmaev/coaching-engine/internal/services"
)

// BehaviorRequest is the body of POST /behavior/.
type BehaviorRequest struct {
	Profile *domain.UserProfile  `json:"profile" validate:"required"`
	Metrics []domain.DailyMetric `json:"metrics" validate:"dive"`
}

func (h *Handler) CreateBehavioralAnalysis(w http.ResponseWriter, r *http.Request) {
	var req BehaviorRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(req.Metrics) == 0 {
		h.writeError(w, r, errors.NewValidationError("missing metrics"))
		return
	}
	if len(req.Metrics) < services.MinBehaviorWindow {
		h.writeError(w, r, errors.NewValidationError(
			fmt.Sprintf("At least %d days of metrics are required", services.MinBehaviorWindow)))
		return
	}
	for _, m := range req.Metrics {
		if m.UserID != req.Profile.UserID {
			h.writeError(w, r, errors.NewValidationError("user_id mismatch between profile and metrics"))
			return
		}
	}

	alert, err := h.orchestrator.CheckForConcerningBehaviors(r.Context(), *req.Profile, req.Metrics)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if alert == nil {
		w.Header().Set("x-empty-response", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if h.notifier != nil {
		if err := h.notifier.NotifyAlert(r.Context(), *req.Profile, alert); err != nil {
			logger.Warn("Failed to notify caretaker", "user_id", req.Profile.UserID, "error", err)
		}
	}

	logger.Info("Behavioral recommendation created", "user_id", req.Profile.UserID, "alert_id", alert.ID)
	writeJSON(w, http.StatusOK, alert)
}

// GetBehavioralRecommendation is not backed by storage.
func (h *Handler) GetBehavioralRecommendation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, ErrorResponse{Detail: "Not implemented"})
}
