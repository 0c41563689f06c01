package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamCompletionRequestShape(t *testing.T) {
	var got completionRequest
	var gotAPIKey, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("api-key")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewLLMClient(&Config{LLMEndpoint: srv.URL, LLMAPIKey: "secret"})
	history := []ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "second"},
		{Role: "user", Content: "third"},
	}

	body, err := client.StreamCompletion(context.Background(), history)
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "data: [DONE]\n\n", string(raw))

	require.Equal(t, "secret", gotAPIKey)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, history, got.Messages)
	require.Equal(t, 800, got.MaxTokens)
	require.Equal(t, 0.7, got.Temperature)
	require.Equal(t, 0.95, got.TopP)
	require.Equal(t, 0.0, got.FrequencyPenalty)
	require.Equal(t, 0.0, got.PresencePenalty)
	require.True(t, got.Stream)
}

func TestStreamCompletionNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewLLMClient(&Config{LLMEndpoint: srv.URL, LLMAPIKey: "secret"})

	_, err := client.StreamCompletion(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestStreamCompletionContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewLLMClient(&Config{LLMEndpoint: srv.URL, LLMAPIKey: "secret"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.StreamCompletion(ctx, []ChatMessage{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestLoadConfigRequiresLLMSettings(t *testing.T) {
	t.Setenv("LLM_API_ENDPOINT", "")
	t.Setenv("LLM_API_KEY", "")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("LLM_API_ENDPOINT", "https://example.test/v1/chat/completions")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("LLM_API_KEY", "secret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://example.test/v1/chat/completions", cfg.LLMEndpoint)
	require.NotZero(t, cfg.StreamTimeout)
}
