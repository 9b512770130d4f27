package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultGenAIModel = "gemini-embedding-001"
	// The Gemini API accepts at most 100 texts per batch request.
	genAIMaxBatch = 100

	taskTypeRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskTypeRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GenAIEmbedder embeds text with the Gemini embedding API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

func NewGenAIEmbedder(ctx context.Context, apiKey, model, baseURL string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("GenAI API key is required")
	}
	if model == "" {
		model = DefaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient > %w", err)
	}
	return &GenAIEmbedder{client: client, model: model}, nil
}

func (e *GenAIEmbedder) Name() string {
	return "genai:" + e.model
}

func (e *GenAIEmbedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += genAIMaxBatch {
		end := min(start+genAIMaxBatch, len(texts))
		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
			TaskType: taskType,
		})
		if err != nil {
			return nil, fmt.Errorf("Models.EmbedContent > %w", err)
		}
		if len(result.Embeddings) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(result.Embeddings))
		}
		for _, embedding := range result.Embeddings {
			vectors = append(vectors, embedding.Values)
		}
	}
	return vectors, nil
}

func (e *GenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, taskTypeRetrievalDocument)
}

func (e *GenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskTypeRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
