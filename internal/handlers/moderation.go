package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vladimiradmaev/coaching-engine/internal/errors"
)

// ModerationRequest is the body of POST /moderation/textContentDetection/.
type ModerationRequest struct {
	Content string `json:"content"`
}

// DetectTextContent runs the safety gate. The text may also come in the content query parameter.
func (h *Handler) DetectTextContent(w http.ResponseWriter, r *http.Request) {
	content := r.URL.Query().Get("content")
	if content == "" && r.ContentLength != 0 {
		var req ModerationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, errors.Wrap(err, errors.ErrorTypeValidation, "INVALID_BODY", "Invalid request body"))
			return
		}
		content = req.Content
	}

	result, err := h.detector.Detect(r.Context(), content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
