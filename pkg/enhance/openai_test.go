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

func TestOpenAI_Complete(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `[{"key":"k","narrative":"n","confidence_adjustment":1}]`}},
			},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 40},
		})
	}))
	defer srv.Close()

	client := enhance.NewOpenAI(srv.URL, "sk-test", "gpt-4o-mini")
	text, usage, err := client.Complete(context.Background(), "review these alerts")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.Contains(t, text, "confidence_adjustment")
	assert.Equal(t, int64(120), usage.InputTokens)
	assert.Equal(t, int64(40), usage.OutputTokens)
}

func TestOpenAI_MissingAPIKey(t *testing.T) {
	client := enhance.NewOpenAI("http://localhost:1", "", "gpt-4o-mini")
	_, _, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestOpenAI_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := enhance.NewOpenAI(srv.URL, "sk-test", "gpt-4o-mini")
	_, _, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "gpt-4o-mini", "choices": []}`))
	}))
	defer srv.Close()

	client := enhance.NewOpenAI(srv.URL, "sk-test", "gpt-4o-mini")
	_, _, err := client.Complete(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestOpenAI_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := enhance.NewOpenAI(srv.URL, "sk-test", "gpt-4o-mini")
	_, _, err := client.Complete(ctx, "prompt")
	assert.Error(t, err)
}
