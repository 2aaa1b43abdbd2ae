package openai

import (
	"context"
	"fmt"

	"ai-chat-be/pkg/llm"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	model llms.Model
}

var _ llm.Client = &OpenAIProvider{}

func NewOpenAIProvider(baseURL, token, model string) (*OpenAIProvider, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(token),
		lcopenai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}

	client, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIProvider{model: client}, nil
}

func (p *OpenAIProvider) Reply(ctx context.Context, history []llm.Message, content string) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == llm.RoleModel {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Text))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, content))

	resp, err := p.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", llm.ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
