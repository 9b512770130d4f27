package inference

import (
	"context"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_backend.go -package=mock_inference

// Backend is a text generation service.
// Implementations do not retry; callers decide whether an error is worth retrying.
type Backend interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	Name() string
}

// Prompt is a single-turn generation request.
type Prompt struct {
	System      string  `json:"system,omitempty"`
	User        string  `json:"user"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.7
)

// MaxTokensOrDefault returns MaxTokens, or DefaultMaxTokens when unset.
func (p Prompt) MaxTokensOrDefault() int {
	if p.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return p.MaxTokens
}
