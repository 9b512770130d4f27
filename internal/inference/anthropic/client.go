// Package anthropic is an inference.Backend on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/at-ishikawa/cantocards/internal/inference"
)

// Client generates text with a Claude model.
type Client struct {
	client anthropic.Client
	model  string
}

// NewClient creates a client. SDK retries are disabled so that the caller
// owns the retry policy.
func NewClient(apiKey, model, baseURL string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (c *Client) Name() string {
	return "anthropic:" + c.model
}

// Complete implements inference.Backend
func (c *Client) Complete(ctx context.Context, prompt inference.Prompt) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(prompt.MaxTokensOrDefault()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
		Temperature: anthropic.Float(prompt.Temperature),
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", inference.NewError(classify(err), c.Name(), fmt.Errorf("Messages.New > %w", err))
	}
	if msg.StopReason == anthropic.StopReasonRefusal {
		return "", inference.NewError(inference.ModelRefusal, c.Name(), errors.New("stop reason refusal"))
	}

	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(texts, ""))
	if text == "" {
		return "", inference.NewError(inference.EmptyOutput, c.Name(), errors.New("no text content"))
	}
	return text, nil
}

func classify(err error) inference.ErrorKind {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		// 529 is returned when the API is overloaded.
		return inference.KindForStatus(apiErr.StatusCode)
	}
	return inference.KindForTransport(err)
}
