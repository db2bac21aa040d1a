package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"unauthorized", errors.New("401 Unauthorized"), ErrorTypeAuth, false},
		{"bad key", errors.New("Incorrect API key provided: invalid api key"), ErrorTypeAuth, false},
		{"missing model", errors.New("The model 'gpt-5-ultra' does not exist"), ErrorTypeModel, false},
		{"rate limited", errors.New("429 Too Many Requests: rate limit exceeded"), ErrorTypeRateLimit, true},
		{"timeout", errors.New("context deadline exceeded"), ErrorTypeTimeout, true},
		{"server error", errors.New("503 Service Unavailable"), ErrorTypeTransient, true},
		{"anything else", errors.New("connection reset by peer"), ErrorTypeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError("openai", "gpt-4o", tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.wantType, classified.Type)
			assert.Equal(t, tt.retryable, classified.Retryable)
			assert.Equal(t, "openai", classified.Provider)
			assert.Equal(t, "gpt-4o", classified.Model)
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError("openai", "gpt-4o", nil))
}

func TestClassifyError_PassesThroughClassified(t *testing.T) {
	original := &Error{Type: ErrorTypeRateLimit, Provider: "anthropic", Message: "rate limited"}
	wrapped := fmt.Errorf("dispatch: %w", original)

	classified := ClassifyError("openai", "gpt-4o", wrapped)
	assert.Same(t, original, classified)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := ClassifyError("openai", "gpt-4o", cause)

	assert.ErrorIs(t, err, cause)
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Type:     ErrorTypeAuth,
		Provider: "openai",
		Model:    "gpt-4o",
		Message:  "authentication failed",
	}

	assert.Contains(t, err.Error(), "auth")
	assert.Contains(t, err.Error(), "provider=openai")
	assert.Contains(t, err.Error(), "model=gpt-4o")
	assert.Contains(t, err.Error(), "authentication failed")
}
