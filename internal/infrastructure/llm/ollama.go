package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"SubmissionTagger/internal/config"
	"SubmissionTagger/internal/inference"
	"SubmissionTagger/internal/ports"
)

// OllamaClient talks to a local Ollama daemon via /api/generate.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ inference.Provider = (*OllamaClient)(nil)

// NewOllamaClient builds a client from configuration. The HTTP client's
// timeout doubles as the per-call inference deadline.
func NewOllamaClient(cfg config.InferenceConfig) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// Name returns the provider identifier.
func (c *OllamaClient) Name() string { return "ollama" }

// Generate performs exactly one completion call.
func (c *OllamaClient) Generate(ctx context.Context, req ports.InferenceRequest) (string, error) {
	if c.baseURL == "" || c.model == "" {
		return "", fmt.Errorf("ollama client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":  c.model,
		"prompt": req.System + "\n\n" + req.Prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": req.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ollama error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var payload struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	return payload.Response, nil
}
