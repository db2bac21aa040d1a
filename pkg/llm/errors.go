package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies provider call failures.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeTransient ErrorType = "transient"
	ErrorTypeUnknown   ErrorType = "unknown"

	// ErrorTypeNotConfigured means the provider family resolved for a template
	// has no credentials on this server. No call was attempted.
	ErrorTypeNotConfigured ErrorType = "not_configured"
)

// Error represents a structured provider call error with classification.
// The engine surfaces these without retrying; callers may retry the whole
// run(), which is idempotent with respect to template/version state.
type Error struct {
	Type      ErrorType
	Provider  string
	Model     string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))
	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.Provider))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ClassifyError categorizes a provider call failure into a structured Error.
func ClassifyError(provider, model string, err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key"):
		return &Error{Type: ErrorTypeAuth, Provider: provider, Model: model,
			Message: "authentication failed", Cause: err}
	case strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")):
		return &Error{Type: ErrorTypeModel, Provider: provider, Model: model,
			Message: "model not found", Cause: err}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return &Error{Type: ErrorTypeRateLimit, Provider: provider, Model: model,
			Message: "rate limited", Retryable: true, Cause: err}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return &Error{Type: ErrorTypeTimeout, Provider: provider, Model: model,
			Message: "request timed out", Retryable: true, Cause: err}
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "504"):
		return &Error{Type: ErrorTypeTransient, Provider: provider, Model: model,
			Message: "provider unavailable", Retryable: true, Cause: err}
	default:
		return &Error{Type: ErrorTypeUnknown, Provider: provider, Model: model,
			Message: "provider call failed", Cause: err}
	}
}
