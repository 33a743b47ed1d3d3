// Package llm is a thin client for OpenAI-compatible chat completion APIs
// (OpenRouter by default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var ErrEmptyResponse = errors.New("model returned no choices")

type Option func(*openai.ClientConfig)

func WithHTTPClient(c *http.Client) Option {
	return func(cfg *openai.ClientConfig) { cfg.HTTPClient = c }
}

// Client sends single-turn prompts to one model.
type Client struct {
	api   *openai.Client
	model string
}

func New(apiKey, baseURL, model string, opts ...Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Model() string { return c.model }

// Complete sends a system and a user message and returns the trimmed text of
// the first choice.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
