package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "openai"}

	tests := []struct {
		name       string
		statusCode int
		wantType   ErrorType
		retryable  bool
	}{
		{name: "401 is authentication", statusCode: 401, wantType: ErrorTypeAuthentication, retryable: false},
		{name: "403 is authentication", statusCode: 403, wantType: ErrorTypeAuthentication, retryable: false},
		{name: "429 is rate limit", statusCode: 429, wantType: ErrorTypeRateLimit, retryable: true},
		{name: "400 is bad request", statusCode: 400, wantType: ErrorTypeBadRequest, retryable: false},
		{name: "404 is not found", statusCode: 404, wantType: ErrorTypeNotFound, retryable: false},
		{name: "500 is server error", statusCode: 500, wantType: ErrorTypeServerError, retryable: true},
		{name: "503 is server error", statusCode: 503, wantType: ErrorTypeServerError, retryable: true},
		{name: "418 falls back to bad request", statusCode: 418, wantType: ErrorTypeBadRequest, retryable: false},
		{name: "599 falls back to server error", statusCode: 599, wantType: ErrorTypeServerError, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provErr := classifier.ClassifyHTTPError(tt.statusCode, "boom", errors.New("boom"))

			assert.Equal(t, tt.wantType, provErr.Type)
			assert.Equal(t, tt.retryable, provErr.IsRetryable())
			assert.Equal(t, tt.statusCode, provErr.StatusCode)
		})
	}
}

func TestErrorClassifier_ClassifyContextError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "google"}

	deadline := classifier.ClassifyContextError(context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeTimeout, deadline.Type)
	assert.True(t, deadline.IsRetryable())

	canceled := classifier.ClassifyContextError(context.Canceled)
	assert.Equal(t, ErrorTypeNetwork, canceled.Type)
	assert.ErrorIs(t, canceled, context.Canceled)
}

func TestProviderError_Error(t *testing.T) {
	err := NewProviderError("anthropic", ErrorTypeRateLimit, 429, "slow down", errors.New("429"))

	msg := err.Error()
	assert.Contains(t, msg, "anthropic error")
	assert.Contains(t, msg, "HTTP 429")
	assert.Contains(t, msg, "rate_limit")
	assert.Contains(t, msg, "slow down")
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewProviderError("openai", ErrorTypeUnknown, 0, "", cause)

	assert.ErrorIs(t, err, cause)
}
