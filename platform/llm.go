package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ChatMessage is the wire shape for one history entry sent upstream.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest carries the full message history plus the fixed sampling
// policy. Values are configuration, not computed per request.
type completionRequest struct {
	Messages         []ChatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
	TopP             float64       `json:"top_p"`
	Stop             []string      `json:"stop"`
	Stream           bool          `json:"stream"`
}

// StatusError captures a non-2xx response from the completion endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion request failed with status code %d", e.Code)
}

// LLMClient issues streaming completion requests against a single configured
// endpoint, authenticated with a static api-key header.
type LLMClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewLLMClient builds a client from the config. The underlying http.Client
// carries no timeout; callers bound stream duration through the context.
func NewLLMClient(cfg *Config) *LLMClient {
	return &LLMClient{
		endpoint:   cfg.LLMEndpoint,
		apiKey:     cfg.LLMAPIKey,
		httpClient: &http.Client{},
	}
}

// StreamCompletion posts the complete ordered history and returns the raw
// SSE response body on success. The caller owns closing the body. A non-2xx
// status is returned as *StatusError with the response drained and closed.
func (c *LLMClient) StreamCompletion(ctx context.Context, messages []ChatMessage) (io.ReadCloser, error) {
	body, err := json.Marshal(completionRequest{
		Messages:         messages,
		MaxTokens:        800,
		Temperature:      0.7,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
		TopP:             0.95,
		Stop:             nil,
		Stream:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		res.Body.Close()
		return nil, &StatusError{Code: res.StatusCode}
	}
	return res.Body, nil
}
