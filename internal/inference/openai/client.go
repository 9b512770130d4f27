package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/at-ishikawa/cantocards/internal/inference"
	"resty.dev/v3"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client is an inference.Backend for OpenAI compatible chat completion APIs.
type Client struct {
	httpClient *resty.Client
	model      string
}

func NewClient(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient: client,
		model:      model,
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

// GetModel returns the model name configured for this client
func (client *Client) GetModel() string {
	return client.model
}

func (client *Client) Name() string {
	return "openai:" + client.model
}

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

const finishReasonContentFilter = "content_filter"

func (client *Client) getRequestBody(prompt inference.Prompt) ChatCompletionRequest {
	var messages []Message
	if prompt.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: prompt.System})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt.User})
	return ChatCompletionRequest{
		Model:       client.model,
		Messages:    messages,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokensOrDefault(),
	}
}

// Complete implements inference.Backend
func (client *Client) Complete(ctx context.Context, prompt inference.Prompt) (string, error) {
	requestBody := client.getRequestBody(prompt)
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return "", inference.NewError(inference.KindForTransport(err), client.Name(), fmt.Errorf("httpClient.Post > %w", err))
	}
	if response.IsError() {
		return "", inference.NewError(
			inference.KindForStatus(response.StatusCode()),
			client.Name(),
			fmt.Errorf("response error %d: %s", response.StatusCode(), response.String()),
		)
	}

	responseBody, _ := response.Result().(*ChatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return "", inference.NewError(inference.EmptyOutput, client.Name(), errors.New("no choices in response"))
	}
	choice := responseBody.Choices[0]
	slog.Default().Debug("openai response",
		slog.String("model", responseBody.Model),
		slog.String("finish_reason", choice.FinishReason),
		slog.Int("total_tokens", responseBody.Usage.TotalTokens),
	)
	if choice.Message.Refusal != "" || choice.FinishReason == finishReasonContentFilter {
		return "", inference.NewError(inference.ModelRefusal, client.Name(),
			fmt.Errorf("finish_reason %s: %s", choice.FinishReason, choice.Message.Refusal))
	}

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", inference.NewError(inference.EmptyOutput, client.Name(), errors.New("empty message content"))
	}
	return content, nil
}

// Embedding

type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type EmbeddingResponse struct {
	Data  []EmbeddingData `json:"data"`
	Model string          `json:"model"`
	Usage Usage           `json:"usage"`
}

type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// Embed returns one vector per text, in input order.
func (client *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(EmbeddingRequest{Model: client.model, Input: texts}).
		SetResult(&EmbeddingResponse{}).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return nil, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody, _ := response.Result().(*EmbeddingResponse)
	if responseBody == nil || len(responseBody.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings: %s", len(texts), response.String())
	}
	vectors := make([][]float32, len(texts))
	for _, data := range responseBody.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}
