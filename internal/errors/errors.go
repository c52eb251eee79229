package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeContentFlagged ErrorType = "content_flagged"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeExternal       ErrorType = "external_api"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeTimeout        ErrorType = "timeout"
)

const flaggedCategoriesKey = "flagged_categories"

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// HTTPStatus maps the error type to the status the API answers with.
func (e *AppError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeConfiguration:
		return http.StatusBadRequest
	case ErrorTypeContentFlagged:
		return http.StatusUnprocessableEntity
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}

	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}

	for k, v := range e.Context {
		fields = append(fields, k, v)
	}

	return fields
}

func caller(skip int) string {
	_, file, line, _ := runtime.Caller(skip + 1)
	return fmt.Sprintf("%s:%d", file, line)
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  caller(1),
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: err,
		Source:   caller(1),
		Context:  make(map[string]interface{}),
	}
}

// As is errors.As narrowed to *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errorType ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == errorType
}

// Handler provides error handling strategies
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new error handler
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle processes an error according to its type
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	if appErr, ok := As(err); ok {
		h.handleAppError(ctx, appErr)
	} else {
		h.handleGenericError(ctx, err)
	}
}

func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	switch err.Type {
	case ErrorTypeValidation:
		h.logger.WarnContext(ctx, "Validation error", err.LogFields()...)
	case ErrorTypeContentFlagged:
		h.logger.WarnContext(ctx, "Content flagged", err.LogFields()...)
	case ErrorTypeConfiguration:
		h.logger.WarnContext(ctx, "Configuration error", err.LogFields()...)
	case ErrorTypeExternal, ErrorTypeInternal, ErrorTypeTimeout:
		h.logger.ErrorContext(ctx, "Critical error", err.LogFields()...)
	default:
		h.logger.ErrorContext(ctx, "Unknown error type", err.LogFields()...)
	}
}

func (h *Handler) handleGenericError(ctx context.Context, err error) {
	h.logger.ErrorContext(ctx, "Unhandled error", "error", err.Error())
}

// LogAndReturn logs an error and returns it
func (h *Handler) LogAndReturn(ctx context.Context, err error) error {
	h.Handle(ctx, err)
	return err
}

// Predefined errors, usable as errors.Is targets.
var (
	ErrInvalidInput      = New(ErrorTypeValidation, "INVALID_INPUT", "Invalid input provided")
	ErrContentFlagged    = New(ErrorTypeContentFlagged, "CONTENT_FLAGGED", "Content flagged for violating policies")
	ErrUnknownPolicyType = New(ErrorTypeConfiguration, "UNKNOWN_POLICY_TYPE", "Unknown policy type")
	ErrExternalAPI       = New(ErrorTypeExternal, "EXTERNAL_API", "External API error")
	ErrMalformedOutput   = New(ErrorTypeInternal, "MALFORMED_OUTPUT", "Malformed collaborator output")
	ErrTimeout           = New(ErrorTypeTimeout, "TIMEOUT", "Operation timed out")
	ErrInternalServer    = New(ErrorTypeInternal, "INTERNAL", "Internal server error")
)

// Convenience functions for common errors
func NewValidationError(message string) *AppError {
	e := New(ErrorTypeValidation, "VALIDATION", message)
	e.Source = caller(1)
	return e
}

// NewContentFlaggedError reports text rejected by the safety gate. The categories are
// kept on the error so the API can show them to the caller.
func NewContentFlaggedError(content string, categories []string) *AppError {
	e := New(ErrorTypeContentFlagged, "CONTENT_FLAGGED",
		fmt.Sprintf("Content flagged for violating policies: %v", categories))
	e.Source = caller(1)
	return e.WithContext(flaggedCategoriesKey, categories).WithContext("content", content)
}

// FlaggedCategories extracts the categories carried by a content-flagged error.
func FlaggedCategories(err error) ([]string, bool) {
	appErr, ok := As(err)
	if !ok || appErr.Type != ErrorTypeContentFlagged {
		return nil, false
	}
	categories, _ := appErr.Context[flaggedCategoriesKey].([]string)
	return categories, true
}

func NewConfigurationError(message string) *AppError {
	e := New(ErrorTypeConfiguration, "CONFIGURATION", message)
	e.Source = caller(1)
	return e
}

func NewUnknownPolicyTypeError(kind, value string) *AppError {
	e := New(ErrorTypeConfiguration, "UNKNOWN_POLICY_TYPE", fmt.Sprintf("No %s exists for type %q", kind, value))
	e.Source = caller(1)
	return e.WithContext("policy_kind", kind).WithContext("policy_type", value)
}

func NewExternalAPIError(err error, api string) *AppError {
	e := Wrap(err, ErrorTypeExternal, "EXTERNAL_API", fmt.Sprintf("%s API error", api)).
		WithContext("api", api)
	e.Source = caller(1)
	return e
}

func NewMalformedOutputError(message string) *AppError {
	e := New(ErrorTypeInternal, "MALFORMED_OUTPUT", message)
	e.Source = caller(1)
	return e
}

func NewTimeoutError(operation string) *AppError {
	e := New(ErrorTypeTimeout, "TIMEOUT", fmt.Sprintf("%s operation timed out", operation)).
		WithContext("operation", operation)
	e.Source = caller(1)
	return e
}

func NewInternalError(err error) *AppError {
	e := Wrap(err, ErrorTypeInternal, "INTERNAL", "Internal server error")
	e.Source = caller(1)
	return e
}
