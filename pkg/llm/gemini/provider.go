package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ai-chat-be/pkg/llm"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiProvider struct {
	BaseURL string
	Model   string
	apiKey  string
	Client  *http.Client
}

var _ llm.Client = &GeminiProvider{}

func NewGeminiProvider(baseURL, apiKey, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		apiKey:  apiKey,
		// Deadline comes from the caller's context.
		Client: &http.Client{},
	}
}

type chatPart struct {
	Text string `json:"text"`
}

type chatContent struct {
	Parts []chatPart `json:"parts"`
	Role  string     `json:"role"`
}

type chatRequest struct {
	Contents []chatContent `json:"contents"`
}

type chatResponse struct {
	Candidates []struct {
		Content *chatContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) Reply(ctx context.Context, history []llm.Message, content string) (string, error) {
	contents := make([]chatContent, 0, len(history)+1)
	for _, msg := range history {
		contents = append(contents, chatContent{
			Parts: []chatPart{{Text: msg.Text}},
			Role:  msg.Role,
		})
	}
	contents = append(contents, chatContent{
		Parts: []chatPart{{Text: content}},
		Role:  llm.RoleUser,
	})

	payload, err := json.Marshal(chatRequest{Contents: contents})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.BaseURL, p.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini error: status %d, body: %s", res.StatusCode, string(resBody))
	}

	var geminiRes chatResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(geminiRes.Candidates) == 0 || geminiRes.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range geminiRes.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", llm.ErrEmptyResponse
	}
	return sb.String(), nil
}
