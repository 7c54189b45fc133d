package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextGenerator = (*CompatAdapter)(nil)

// CompatAdapter implements adapter.TextGenerator against any
// OpenAI-compatible gateway. Chat completions path is the same as
// OpenAI: /chat/completions, Authorization: Bearer <key>.
type CompatAdapter struct {
	apiKey string
	base   string // e.g., https://gateway.example.com/openai/v1
	model  string
	client *http.Client
	enc    *tiktoken.Tiktoken
}

func NewCompatAdapter(apiKey, model, base string) (*CompatAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("compat api key empty")
	}
	if base == "" {
		return nil, errors.New("compat base url empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &CompatAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
		enc:    enc,
	}, nil
}

func (m *CompatAdapter) ModelName() string { return m.model }

func (m *CompatAdapter) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens,omitempty"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}{Model: m.model, MaxTokens: maxTokens}
	reqBody.Messages = append(reqBody.Messages, struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: "user", Content: prompt})

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, m.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("compat gateway http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

func (m *CompatAdapter) CountTokens(ctx context.Context, text string) (int, error) {
	return len(m.enc.Encode(text, nil, nil)), nil
}
