package openai_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/at-ishikawa/cantocards/internal/inference"
	"github.com/at-ishikawa/cantocards/internal/inference/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: OPENAI_API_KEY=your-key go test -v ./internal/inference/openai -run TestClient_Complete_Live
func TestClient_Complete_Live(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY environment variable not set, skipping integration test")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(apiKey, model, "")
	defer func() {
		_ = client.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	got, err := client.Complete(ctx, inference.Prompt{
		System: "Reply with one short Mandarin sentence using the given word.",
		User:   "应聘",
	})
	require.NoError(t, err)
	assert.Contains(t, got, "应聘")
}
