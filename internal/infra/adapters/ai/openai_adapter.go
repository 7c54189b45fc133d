package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextGenerator = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.TextGenerator with the official
// Chat Completions client.
type OpenAIAdapter struct {
	client openai.Client
	model  string
	enc    *tiktoken.Tiktoken
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// unknown model names still count reasonably with the default encoding
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		enc:    enc,
	}, nil
}

func (o *OpenAIAdapter) ModelName() string { return o.model }

func (o *OpenAIAdapter) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", err
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

func (o *OpenAIAdapter) CountTokens(ctx context.Context, text string) (int, error) {
	return len(o.enc.Encode(text, nil, nil)), nil
}
