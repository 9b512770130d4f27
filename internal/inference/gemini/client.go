// Package gemini is an inference.Backend on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/at-ishikawa/cantocards/internal/inference"
	"google.golang.org/genai"
)

// Client generates text with a Gemini model.
type Client struct {
	client         *genai.Client
	model          string
	safetySettings []*genai.SafetySetting
}

// Option configures a Client.
type Option func(*Client)

// WithBlockNone disables safety blocking for the harm categories that
// otherwise reject ordinary vocabulary such as 打 or 死.
func WithBlockNone() Option {
	return func(c *Client) {
		for _, category := range []genai.HarmCategory{
			genai.HarmCategoryHateSpeech,
			genai.HarmCategoryDangerousContent,
			genai.HarmCategorySexuallyExplicit,
			genai.HarmCategoryHarassment,
		} {
			c.safetySettings = append(c.safetySettings, &genai.SafetySetting{
				Category:  category,
				Threshold: genai.HarmBlockThresholdBlockNone,
			})
		}
	}
}

// NewClient creates a client for the Gemini API. baseURL is only set in tests.
func NewClient(ctx context.Context, apiKey, model, baseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient > %w", err)
	}
	c := &Client{client: client, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string {
	return "gemini:" + c.model
}

// Complete implements inference.Backend
func (c *Client) Complete(ctx context.Context, prompt inference.Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(prompt.Temperature)),
		MaxOutputTokens: int32(prompt.MaxTokensOrDefault()),
		SafetySettings:  c.safetySettings,
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt.User), config)
	if err != nil {
		return "", inference.NewError(classify(err), c.Name(), fmt.Errorf("Models.GenerateContent > %w", err))
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", inference.NewError(inference.ModelRefusal, c.Name(),
			fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) > 0 && isBlocked(resp.Candidates[0].FinishReason) {
		return "", inference.NewError(inference.ModelRefusal, c.Name(),
			fmt.Errorf("finish reason %s", resp.Candidates[0].FinishReason))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", inference.NewError(inference.EmptyOutput, c.Name(), errors.New("empty response text"))
	}
	return text, nil
}

func isBlocked(reason genai.FinishReason) bool {
	switch reason {
	case genai.FinishReasonSafety,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII,
		genai.FinishReasonRecitation:
		return true
	}
	return false
}

func classify(err error) inference.ErrorKind {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return inference.KindForStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return inference.KindForStatus(apiErrPtr.Code)
	}
	return inference.KindForTransport(err)
}
