package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/at-ishikawa/cantocards/internal/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageResponse(stopReason, text string) string {
	return `{"id":"msg_01","type":"message","role":"assistant","model":"claude-sonnet-4-5",` +
		`"content":[{"type":"text","text":` + mustJSON(text) + `}],` +
		`"stop_reason":"` + stopReason + `","stop_sequence":null,` +
		`"usage":{"input_tokens":10,"output_tokens":12}}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestClient_Complete(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   string

		want     string
		wantKind inference.ErrorKind
	}{
		{
			name:       "success",
			statusCode: http.StatusOK,
			response:   messageResponse("end_turn", "佢去嗰間公司見工。\n"),
			want:       "佢去嗰間公司見工。",
		},
		{
			name:       "refusal",
			statusCode: http.StatusOK,
			response:   messageResponse("refusal", ""),
			wantKind:   inference.ModelRefusal,
		},
		{
			name:       "empty text",
			statusCode: http.StatusOK,
			response:   messageResponse("end_turn", " "),
			wantKind:   inference.EmptyOutput,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			response:   `{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`,
			wantKind:   inference.RateLimited,
		},
		{
			name:       "overloaded",
			statusCode: 529,
			response:   `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantKind:   inference.Timeout,
		},
		{
			name:       "invalid request",
			statusCode: http.StatusBadRequest,
			response:   `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: must be positive"}}`,
			wantKind:   inference.Rejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/messages", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "claude-sonnet-4-5", body["model"])
				assert.Equal(t, float64(inference.DefaultMaxTokens), body["max_tokens"])
				assert.Contains(t, body, "system")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewClient("test-key", "claude-sonnet-4-5", server.URL+"/")
			got, err := client.Complete(context.Background(), inference.Prompt{
				System:      "你用香港廣東話口語寫例句。",
				User:        "應聘",
				Temperature: 0.7,
			})
			assert.Equal(t, 1, requests, "the client must not retry on its own")
			if tt.wantKind != "" {
				require.Error(t, err)
				kind, ok := inference.KindOf(err)
				require.True(t, ok, "error %v is not a GenerationError", err)
				assert.Equal(t, tt.wantKind, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
