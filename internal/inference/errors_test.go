package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "timeout", err: NewError(Timeout, "test", nil), want: true},
		{name: "rate limited", err: NewError(RateLimited, "test", nil), want: true},
		{name: "wrapped rate limited", err: fmt.Errorf("Generate > %w", NewError(RateLimited, "test", nil)), want: true},
		{name: "refusal", err: NewError(ModelRefusal, "test", nil), want: false},
		{name: "empty output", err: NewError(EmptyOutput, "test", nil), want: false},
		{name: "rejected", err: NewError(Rejected, "test", nil), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		want       ErrorKind
	}{
		{statusCode: http.StatusTooManyRequests, want: RateLimited},
		{statusCode: http.StatusInternalServerError, want: Timeout},
		{statusCode: http.StatusServiceUnavailable, want: Timeout},
		{statusCode: 529, want: Timeout},
		{statusCode: http.StatusRequestTimeout, want: Timeout},
		{statusCode: http.StatusBadRequest, want: Rejected},
		{statusCode: http.StatusUnauthorized, want: Rejected},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.want, KindForStatus(tt.statusCode))
		})
	}
}

func TestKindForTransport(t *testing.T) {
	assert.Equal(t, Timeout, KindForTransport(context.DeadlineExceeded))
	assert.Equal(t, Timeout, KindForTransport(errors.New("dial tcp: connection refused")))
	assert.Equal(t, Rejected, KindForTransport(fmt.Errorf("Post > %w", context.Canceled)))
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("quota")
	err := fmt.Errorf("wrap > %w", NewError(RateLimited, "gemini:flash", cause))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, RateLimited, kind)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "wrap > gemini:flash: rate_limited: quota", err.Error())

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestPrompt_MaxTokensOrDefault(t *testing.T) {
	assert.Equal(t, DefaultMaxTokens, Prompt{}.MaxTokensOrDefault())
	assert.Equal(t, 64, Prompt{MaxTokens: 64}.MaxTokensOrDefault())
}
