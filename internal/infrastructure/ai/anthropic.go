package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports"
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	catalog
	client anthropic.Client
}

func NewAnthropicProvider(cfg ClientConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropicoption.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anthropicoption.WithRequestTimeout(cfg.Timeout))
	}
	return &AnthropicProvider{
		catalog: newCatalog(domain.ProviderAnthropic, anthropicModels, cfg.Models, valueOrDefault(cfg.DefaultModel, defaultAnthropicModel)),
		client:  anthropic.NewClient(opts...),
	}, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	model, err := p.resolveModel(req.Model)
	if err != nil {
		return ports.GenerateResponse{}, err
	}
	msg, err := p.send(ctx, model, req.SystemPrompt, req.Prompt, req.Temperature, req.MaxTokens)
	if err != nil {
		return ports.GenerateResponse{}, err
	}
	return ports.GenerateResponse{
		Content:      textOf(msg),
		Model:        model,
		TokensUsed:   int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		FinishReason: string(msg.StopReason),
		Metadata:     map[string]any{"provider": p.name, "id": msg.ID},
	}, nil
}

func (p *AnthropicProvider) GenerateJSON(ctx context.Context, req ports.JSONRequest) (map[string]any, error) {
	model, err := p.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}
	prompt, system := withJSONInstructions(req.Prompt, req.SystemPrompt)
	msg, err := p.send(ctx, model, system, prompt, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, err
	}
	out, err := CoerceJSON(textOf(msg))
	if err != nil {
		return nil, domain.NewProviderError(p.name, model, domain.ErrInvalidResponse, err)
	}
	return out, nil
}

func (p *AnthropicProvider) send(ctx context.Context, model, system, prompt string, temperature float64, maxTokens int) (*anthropic.Message, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokensOrDefault(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, normalizeError(p.name, model, err)
	}
	return msg, nil
}

func textOf(msg *anthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String()
}

var _ ports.Provider = (*AnthropicProvider)(nil)
