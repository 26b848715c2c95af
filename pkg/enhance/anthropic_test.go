package enhance_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/stock-sentinel/pkg/enhance"
)

func TestAnthropic_Complete(t *testing.T) {
	var gotKey, gotVersion string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/v1/messages", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "claude-sonnet-4-20250514",
			"content": []map[string]any{
				{"type": "text", "text": `[{"key":"k",`},
				{"type": "text", "text": `"narrative":"n","confidence_adjustment":1}]`},
			},
			"usage": map[string]any{"input_tokens": 200, "output_tokens": 80},
		})
	}))
	defer srv.Close()

	client := enhance.NewAnthropic(srv.URL, "sk-ant-test", "claude-sonnet-4-20250514")
	text, usage, err := client.Complete(context.Background(), "review these alerts")
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)

	// Text blocks concatenate.
	assert.Equal(t, `[{"key":"k","narrative":"n","confidence_adjustment":1}]`, text)
	assert.Equal(t, int64(200), usage.InputTokens)
	assert.Equal(t, int64(80), usage.OutputTokens)
}

func TestAnthropic_MissingAPIKey(t *testing.T) {
	client := enhance.NewAnthropic("http://localhost:1", "", "claude-sonnet-4-20250514")
	_, _, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestAnthropic_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"type": "overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := enhance.NewAnthropic(srv.URL, "sk-ant-test", "claude-sonnet-4-20250514")
	_, _, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestAnthropic_NoTextContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "claude-sonnet-4-20250514", "content": []}`))
	}))
	defer srv.Close()

	client := enhance.NewAnthropic(srv.URL, "sk-ant-test", "claude-sonnet-4-20250514")
	_, _, err := client.Complete(context.Background(), "prompt")
	assert.Error(t, err)
}
