package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
)

const defaultAnthropicModel = "claude-3-5-sonnet-20241022"

// AnthropicProvider implements Provider using the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    config.LLMConfig
}

// NewAnthropicProvider creates a new Anthropic provider.
// The API key is read from the ANTHROPIC_API_KEY environment variable.
func NewAnthropicProvider(cfg config.LLMConfig) (*AnthropicProvider, error) {
	applyDefaults(&cfg, defaultAnthropicModel)
	return &AnthropicProvider{
		client: anthropic.NewClient(),
		cfg:    cfg,
	}, nil
}

// NewAnthropicProviderWithKey creates a provider with an explicit API key.
func NewAnthropicProviderWithKey(apiKey string, cfg config.LLMConfig) (*AnthropicProvider, error) {
	applyDefaults(&cfg, defaultAnthropicModel)
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		cfg:    cfg,
	}, nil
}

// Complete implements Provider.Complete.
func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.Model),
		MaxTokens:   int64(p.cfg.MaxTokens),
		Temperature: anthropic.Float(p.cfg.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(fmt.Errorf("anthropic API call failed: %w", err))
	}

	var textParts []string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}
	text := strings.Join(textParts, "")
	if text == "" {
		return "", classify(fmt.Errorf("anthropic returned no text content"))
	}
	return text, nil
}

// Name implements Provider.Name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model implements Provider.Model.
func (p *AnthropicProvider) Model() string {
	return p.cfg.Model
}
