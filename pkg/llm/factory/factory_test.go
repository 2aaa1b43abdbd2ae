package factory

import (
	"testing"

	"ai-chat-be/pkg/llm/gemini"
	"ai-chat-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMClient(t *testing.T) {
	c, err := NewLLMClient("gemini", "gemini-1.5-flash", "", "key")
	require.NoError(t, err)
	assert.IsType(t, &gemini.GeminiProvider{}, c)

	c, err = NewLLMClient("ollama", "llama3", "", "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", c.(*ollama.OllamaProvider).BaseURL)

	_, err = NewLLMClient("bard", "x", "", "")
	assert.Error(t, err)
}
