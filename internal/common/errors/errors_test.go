package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	errors []map[string]interface{}
	warns  []map[string]interface{}
}

func (r *recordingLogger) Error(_ string, fields map[string]interface{}) {
	r.errors = append(r.errors, fields)
}

func (r *recordingLogger) Warn(_ string, fields map[string]interface{}) {
	r.warns = append(r.warns, fields)
}

func TestNewAPIError_MapsStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCode  ErrorCode
		retryable bool
	}{
		{name: "unauthorized", status: 401, wantCode: ErrCodeUnauthorized},
		{name: "not found", status: 404, wantCode: ErrCodeNotFound},
		{name: "bad request", status: 400, wantCode: ErrCodeAPI},
		{name: "server error", status: 502, wantCode: ErrCodeAPI, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError("getDeal", tt.status, `{"detail":"x"}`)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestStandardError_Is(t *testing.T) {
	wrapped := fmt.Errorf("loading user: %w", NewAPIError("currentUser", 401, ""))

	assert.True(t, stderrors.Is(wrapped, ErrUnauthorized))
	assert.False(t, stderrors.Is(wrapped, ErrNotFound))
}

func TestAsStandardError(t *testing.T) {
	assert.Nil(t, AsStandardError(nil))

	plain := AsStandardError(stderrors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)

	pre := NewPreconditionError("Deal ID is not set. Please create a deal first.")
	assert.Same(t, pre, AsStandardError(fmt.Errorf("wrap: %w", pre)))
}

func TestNewValidationError_SortsFieldNames(t *testing.T) {
	err := NewValidationError(map[string]string{
		"zip_code": "ZIP code is required",
		"city":     "City is required",
	})
	assert.Equal(t, "city, zip_code", err.Details)
	assert.Equal(t, "City is required", err.Fields["city"])
	assert.False(t, err.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "PRECONDITION", GetErrorCategory(ErrCodePreconditionFailed))
	assert.Equal(t, "NETWORK", GetErrorCategory(ErrCodeTimeout))
	assert.Equal(t, "API", GetErrorCategory(ErrCodeDecode))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeUnauthorized))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeTokenStore))
}

func TestErrorHandler_Handle(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	assert.Nil(t, h.Handle("noop", nil))

	got := h.Handle("startAnalysis", NewPreconditionError("Deal ID is not set. Please create a deal first."))
	require.NotNil(t, got)
	assert.Len(t, log.warns, 1)
	assert.Empty(t, log.errors)

	got = h.Handle("createDeal", NewAPIError("createDeal", 500, "oops"))
	assert.Equal(t, ErrCodeAPI, got.Code)
	require.Len(t, log.errors, 1)
	assert.Equal(t, 500, log.errors[0]["statusCode"])
	assert.Equal(t, "API", log.errors[0]["errorCategory"])
}
