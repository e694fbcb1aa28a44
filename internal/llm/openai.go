// Package llm adapts language-model clients to quiz.Completer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

var ErrNotConfigured = errors.New("llm: no API key configured")

type Options struct {
	APIKey       string
	Model        string
	BaseURL      string // optional, for OpenAI-compatible gateways
	Temperature  float64
	SystemPrompt string
}

// OpenAI sends each prompt as a single chat turn under a fixed system message.
type OpenAI struct {
	model       llms.Model
	system      string
	temperature float64
}

func NewOpenAI(o Options) (*OpenAI, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if o.Model == "" {
		o.Model = "gpt-4"
	}
	opts := []openai.Option{
		openai.WithModel(o.Model),
		openai.WithToken(o.APIKey),
	}
	if o.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.BaseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: init openai client: %w", err)
	}
	return &OpenAI{model: m, system: o.SystemPrompt, temperature: o.Temperature}, nil
}

func (c *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	msgs := make([]llms.MessageContent, 0, 2)
	if c.system != "" {
		msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem, c.system))
	}
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, prompt))

	resp, err := c.model.GenerateContent(ctx, msgs, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// Disabled stands in when no API key is configured; every call fails.
type Disabled struct{}

func (Disabled) Complete(context.Context, string) (string, error) { return "", ErrNotConfigured }
