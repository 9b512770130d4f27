package embedding

import (
	"context"
	"fmt"

	"github.com/at-ishikawa/cantocards/internal/inference/openai"
)

const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder embeds text with an OpenAI compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
}

func NewOpenAIEmbedder(apiKey, model, baseURL string) *OpenAIEmbedder {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIEmbedder{client: openai.NewClient(apiKey, model, baseURL)}
}

func (e *OpenAIEmbedder) Name() string {
	return "openai:" + e.client.GetModel()
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.client.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("client.Embed > %w", err)
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) Close() error {
	return e.client.Close()
}
