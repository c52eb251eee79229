package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// UpdatePolicyReward applies a reward to the shared posterior.
func (h *Handler) UpdatePolicyReward(w http.ResponseWriter, r *http.Request) {
	var req domain.TimingPolicyUpdate
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.policies.Lookup(req.PolicyType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := p.Update(req.Hour, req.Reward); err != nil {
		h.writeError(w, r, err)
		return
	}

	logger.Info("Timing reward recorded", "policy_type", req.PolicyType, "hour", req.Hour, "reward", req.Reward)
	w.WriteHeader(http.StatusNoContent)
}

// GetTimingForPolicy samples a send hour.
func (h *Handler) GetTimingForPolicy(w http.ResponseWriter, r *http.Request) {
	policyType := domain.TimingPolicyType(chi.URLParam(r, "policy_type"))

	p, err := h.policies.Lookup(policyType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := domain.TimingPolicyResponse{
		PolicyType:  policyType,
		Hour:        p.SelectHour(),
		GeneratedAt: h.now().UTC(),
	}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		resp.UserID = &userID
	}
	writeJSON(w, http.StatusOK, resp)
}
