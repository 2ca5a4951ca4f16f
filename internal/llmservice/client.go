package llmservice

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/myckhel/course-pilot/internal/config"
)

// Completer is the completion capability the answering engine depends on
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client completes prompts through an OpenAI-compatible chat endpoint
type Client struct {
	llmConfig *config.LLMConfig
}

func NewClient(llmConfig *config.LLMConfig) *Client {
	return &Client{llmConfig: llmConfig}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	llm, err := openai.New(
		openai.WithBaseURL(c.llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(c.llmConfig.Key, "Bearer ")),
		openai.WithModel(c.llmConfig.Model),
	)
	if err != nil {
		return "", err
	}

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", nil
	}
	return res.Choices[0].Content, nil
}
