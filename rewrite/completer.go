package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"newsrelay/config"
)

// Completer sends one system + user exchange and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewCompleter picks the provider named in cfg. It returns nil when that
// provider has no API key, which leaves rewriting unavailable.
func NewCompleter(cfg config.LLMConfig) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if cfg.OpenAIKey == "" {
			return nil, nil
		}
		return NewOpenAICompleter(cfg.OpenAIKey, cfg.OpenAIModel), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, nil
		}
		return NewAnthropicCompleter(cfg.AnthropicKey, cfg.AnthropicModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// OpenAICompleter asks for a JSON object response.
type OpenAICompleter struct {
	client *openai.Client
	model  openai.ChatModel
}

func NewOpenAICompleter(apiKey, model string, opts ...option.RequestOption) *OpenAICompleter {
	if model == "" {
		model = "gpt-5-nano"
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAICompleter{client: &client, model: openai.ChatModel(model)}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

// AnthropicCompleter has no JSON mode; the instruction's output directive
// carries the format.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewAnthropicCompleter(apiKey, model string, opts ...anthropicoption.RequestOption) *AnthropicCompleter {
	m := anthropic.ModelClaudeHaiku4_5
	if model != "" {
		m = anthropic.Model(model)
	}
	client := anthropic.NewClient(append([]anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicCompleter{client: &client, model: m}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("no response from anthropic")
	}
	return resp.Content[0].Text, nil
}
