// Package errors provides the standardized error taxonomy shared by the resource
// client, the session store and the deal wizard.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Raised before any network call.
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"

	// Transport and backend failures.
	ErrCodeNetwork      ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeout      ErrorCode = "TIMEOUT_ERROR"
	ErrCodeAPI          ErrorCode = "API_ERROR"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeDecode       ErrorCode = "DECODE_ERROR"

	ErrCodeTokenStore ErrorCode = "TOKEN_STORE_ERROR"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured client error.
type StandardError struct {
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Details    string            `json:"details,omitempty"`
	Retryable  bool              `json:"retryable"`
	StatusCode int               `json:"statusCode,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("StandardError[%s/%d]: %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches on error code so callers can write errors.Is(err, errors.ErrUnauthorized).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation   = &StandardError{Code: ErrCodeValidationFailed}
	ErrPrecondition = &StandardError{Code: ErrCodePreconditionFailed}
	ErrTransition   = &StandardError{Code: ErrCodeInvalidTransition}
	ErrUnauthorized = &StandardError{Code: ErrCodeUnauthorized}
	ErrNotFound     = &StandardError{Code: ErrCodeNotFound}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError carries per-field messages for inline rendering.
func NewValidationError(fields map[string]string) *StandardError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Validation failed",
		Details:   strings.Join(keys, ", "),
		Retryable: false,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreconditionError is returned synchronously, before any network call.
func NewPreconditionError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodePreconditionFailed,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError reports a wizard action attempted from the wrong state.
func NewInvalidTransitionError(action, state string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("%s is not allowed in state %s", action, state),
		Details:   fmt.Sprintf("action: %s, state: %s", action, state),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetwork,
		Message:   fmt.Sprintf("Request '%s' failed", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError wraps a deadline or client timeout.
func NewTimeoutError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Request '%s' timed out", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAPIError maps a non-2xx response to a code by status.
func NewAPIError(operation string, status int, body string) *StandardError {
	code := ErrCodeAPI
	message := fmt.Sprintf("Request '%s' returned status %d", operation, status)
	retryable := status >= 500

	switch status {
	case 401:
		code = ErrCodeUnauthorized
		message = "Session expired or missing"
	case 404:
		code = ErrCodeNotFound
		message = fmt.Sprintf("Resource for '%s' not found", operation)
	}

	return &StandardError{
		Code:       code,
		Message:    message,
		Details:    truncate(body, 512),
		Retryable:  retryable,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	}
}

// NewDecodeError reports a 2xx response whose body did not match the expected shape.
func NewDecodeError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecode,
		Message:   fmt.Sprintf("Unexpected response for '%s'", operation),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenStoreError wraps a failure of the persisted token storage.
func NewTokenStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenStore,
		Message:   "Token storage unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError normalises any error into a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed:
		return "VALIDATION"
	case ErrCodePreconditionFailed, ErrCodeInvalidTransition:
		return "PRECONDITION"
	case ErrCodeNetwork, ErrCodeTimeout:
		return "NETWORK"
	case ErrCodeAPI, ErrCodeNotFound, ErrCodeDecode:
		return "API"
	case ErrCodeUnauthorized:
		return "AUTH"
	default:
		return "OTHER"
	}
}

// IsRetryable reports whether the caller may offer a manual retry.
func IsRetryable(err error) bool {
	if stdErr := AsStandardError(err); stdErr != nil {
		return stdErr.Retryable
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
