package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/at-ishikawa/cantocards/internal/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
			response:   `{"candidates":[{"content":{"role":"model","parts":[{"text":"他去那家公司应聘了。\n"}]},"finishReason":"STOP"}]}`,
			want:       "他去那家公司应聘了。",
		},
		{
			name:       "safety finish reason",
			statusCode: http.StatusOK,
			response:   `{"candidates":[{"finishReason":"SAFETY"}]}`,
			wantKind:   inference.ModelRefusal,
		},
		{
			name:       "blocked prompt",
			statusCode: http.StatusOK,
			response:   `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantKind:   inference.ModelRefusal,
		},
		{
			name:       "no text",
			statusCode: http.StatusOK,
			response:   `{"candidates":[{"content":{"role":"model","parts":[{"text":"  "}]},"finishReason":"STOP"}]}`,
			wantKind:   inference.EmptyOutput,
		},
		{
			name:       "quota exceeded",
			statusCode: http.StatusTooManyRequests,
			response:   `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			wantKind:   inference.RateLimited,
		},
		{
			name:       "unavailable",
			statusCode: http.StatusServiceUnavailable,
			response:   `{"error":{"code":503,"message":"The model is overloaded","status":"UNAVAILABLE"}}`,
			wantKind:   inference.Timeout,
		},
		{
			name:       "invalid argument",
			statusCode: http.StatusBadRequest,
			response:   `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			wantKind:   inference.Rejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent"), r.URL.Path)

				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Contains(t, body, "systemInstruction")
				assert.Contains(t, body, "generationConfig")
				assert.Len(t, body["safetySettings"], 4)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client, err := NewClient(context.Background(), "test-key", "gemini-2.0-flash", server.URL+"/", WithBlockNone())
			require.NoError(t, err)

			got, err := client.Complete(context.Background(), inference.Prompt{
				System: "You write example sentences.",
				User:   "应聘",
			})
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

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "gemini-2.0-flash", "")
	assert.Error(t, err)
}

func TestClient_Name(t *testing.T) {
	client, err := NewClient(context.Background(), "test-key", "gemini-2.0-flash", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.0-flash", client.Name())
}
