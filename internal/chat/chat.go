// Package chat talks to an OpenRouter-compatible chat completion
// endpoint.
package chat

import (
	"context"

	"github.com/akarpov/wortkarte/internal/extract"
	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/pkg/logger"
)

const (
	DefaultURL       = "https://openrouter.ai/api/v1/chat/completions"
	DefaultMaxTokens = 200
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces a completion for a conversation. The text service
// depends on this interface so alternative backends (or test fakes)
// can be plugged in.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

type Client struct {
	http      *httpx.Client
	logger    *logger.Logger
	url       string
	apiKey    string
	model     string
	maxTokens int
	opts      httpx.Options
}

type Config struct {
	URL       string
	APIKey    string
	Model     string
	MaxTokens int
	HTTP      httpx.Options
}

func NewClient(http *httpx.Client, log *logger.Logger, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, httpx.NewError(httpx.CodeConfig, "chat API key is not set", nil)
	}
	if cfg.Model == "" {
		return nil, httpx.NewError(httpx.CodeConfig, "chat model is not set", nil)
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	return &Client{
		http:      http,
		logger:    log,
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		opts:      cfg.HTTP,
	}, nil
}

func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	payload := map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages":   messages,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	raw, err := c.http.RequestJSON(ctx, "POST", c.url, payload, headers, c.opts)
	if err != nil {
		return "", err
	}

	return extract.Text(extract.Decode(raw)), nil
}
