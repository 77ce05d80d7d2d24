package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
)

const defaultGeminiModel = "gemini-1.5-pro"

// GeminiProvider implements Provider using the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	cfg    config.LLMConfig
}

// NewGeminiProvider creates a new Gemini provider.
// The API key is read from the GEMINI_API_KEY environment variable.
func NewGeminiProvider(ctx context.Context, cfg config.LLMConfig) (*GeminiProvider, error) {
	applyDefaults(&cfg, defaultGeminiModel)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewGeminiProviderWithKey creates a provider with an explicit API key.
func NewGeminiProviderWithKey(ctx context.Context, apiKey string, cfg config.LLMConfig) (*GeminiProvider, error) {
	applyDefaults(&cfg, defaultGeminiModel)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		cfg:    cfg,
	}, nil
}

// Complete implements Provider.Complete.
func (p *GeminiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		// Token budgets are small enough that the int32 narrowing is safe.
		MaxOutputTokens: int32(p.cfg.MaxTokens), // #nosec G115
		Temperature:     genai.Ptr(float32(p.cfg.Temperature)),
	}
	if systemPrompt != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Model, genai.Text(userPrompt), genCfg)
	if err != nil {
		return "", classify(fmt.Errorf("gemini API call failed: %w", err))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", classify(fmt.Errorf("gemini returned no candidates"))
	}

	var textParts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}
	text := strings.Join(textParts, "")
	if text == "" {
		return "", classify(fmt.Errorf("gemini returned no text content"))
	}
	return text, nil
}

// Name implements Provider.Name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model implements Provider.Model.
func (p *GeminiProvider) Model() string {
	return p.cfg.Model
}
