package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{429, ErrorTypeRateLimit},
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{400, ErrorTypeBadPrompt},
		{500, ErrorTypeTransient},
		{503, ErrorTypeTransient},
		{418, ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.status))
		})
	}
}

func TestClassifyByMessage(t *testing.T) {
	assert.Equal(t, ErrorTypeRateLimit, Classify(errors.New("Rate limit exceeded"), 0).Type)
	assert.Equal(t, ErrorTypeTransient, Classify(errors.New("read: connection reset by peer"), 0).Type)
	assert.Equal(t, ErrorTypeTransient, Classify(fmt.Errorf("call: %w", context.DeadlineExceeded), 0).Type)
	assert.Equal(t, ErrorTypeUnknown, Classify(errors.New("weird"), 0).Type)
	assert.Nil(t, Classify(nil, 0))
}

func TestClassifyKeepsExistingClassification(t *testing.T) {
	orig := NewError(ErrorTypeEmptyResponse, "no content")
	wrapped := fmt.Errorf("outer: %w", orig)
	assert.Same(t, orig, Classify(wrapped, 500))
}

func TestRetryability(t *testing.T) {
	assert.True(t, NewError(ErrorTypeRateLimit, "").IsRetryable())
	assert.True(t, NewError(ErrorTypeTransient, "").IsRetryable())
	assert.False(t, NewError(ErrorTypeAuth, "").IsRetryable())
	assert.False(t, NewError(ErrorTypeBadPrompt, "").IsRetryable())
	assert.False(t, NewServiceUnavailableError(errors.New("x"), 3).IsRetryable())

	assert.Equal(t, 0, NewError(ErrorTypeAuth, "").GetRetryConfig().MaxRetries)
	assert.Equal(t, DefaultRateLimitRetries, NewError(ErrorTypeRateLimit, "").GetRetryConfig().MaxRetries)
}

func TestIsAndTypeOf(t *testing.T) {
	cause := errors.New("503")
	err := fmt.Errorf("wrapped: %w", NewServiceUnavailableError(cause, 4))

	assert.True(t, IsServiceUnavailable(err))
	assert.Equal(t, ErrorTypeServiceUnavailable, TypeOf(err))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 4 retry attempts")
}

func TestSanitizePrompt(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, SanitizePrompt(short, 100))

	long := strings.Repeat("a", 300) + strings.Repeat("b", 300)
	out := SanitizePrompt(long, 200)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 100)))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("b", 100)))
	assert.Contains(t, out, "[600 chars, hash:")
}
