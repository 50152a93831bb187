package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"SubmissionTagger/internal/config"
	"SubmissionTagger/internal/inference"
	"SubmissionTagger/internal/ports"
)

// OpenAIClient speaks the OpenAI chat-completions API, or any compatible
// endpoint (vLLM, OpenRouter) when a base URL is configured.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

var _ inference.Provider = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.InferenceConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.URL != "" {
		clientCfg.BaseURL = cfg.URL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return "openai" }

// Generate performs exactly one chat completion call.
func (c *OpenAIClient) Generate(ctx context.Context, req ports.InferenceRequest) (string, error) {
	if c.client == nil || c.model == "" {
		return "", fmt.Errorf("openai client misconfigured")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: float32(req.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
