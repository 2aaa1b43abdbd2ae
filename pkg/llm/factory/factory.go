package factory

import (
	"fmt"

	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/gemini"
	"ai-chat-be/pkg/llm/ollama"
	"ai-chat-be/pkg/llm/openai"
)

func NewLLMClient(providerType, modelName, baseURL, apiKey string) (llm.Client, error) {
	switch providerType {
	case "gemini":
		return gemini.NewGeminiProvider(baseURL, apiKey, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai":
		return openai.NewOpenAIProvider(baseURL, apiKey, modelName)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
