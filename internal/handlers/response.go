package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

const genericErrorDetail = "Unknown error occurred. Please contact responsible team."

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps err onto a status. Internal details never reach the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.errHandler.Handle(r.Context(), err)

	appErr, ok := errors.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: genericErrorDetail})
		return
	}

	status := appErr.HTTPStatus()
	switch {
	case appErr.Type == errors.ErrorTypeContentFlagged:
		categories, _ := errors.FlaggedCategories(appErr)
		if categories == nil {
			categories = []string{}
		}
		writeJSON(w, status, ErrorResponse{Detail: categories})
	case status >= http.StatusInternalServerError:
		writeJSON(w, status, ErrorResponse{Detail: genericErrorDetail})
	default:
		writeJSON(w, status, ErrorResponse{Detail: appErr.Message})
	}
}

// decodeAndValidate reads a JSON body into v and runs its validate tags.
func (h *Handler) decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "INVALID_BODY", "Invalid request body")
	}
	if err := h.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.Wrap(err, errors.ErrorTypeValidation, "VALIDATION", "Invalid request body")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.NewValidationError(strings.Join(msgs, "; "))
}
