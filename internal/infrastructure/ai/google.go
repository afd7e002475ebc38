package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports"
)

// GoogleProvider calls Gemini through the Gen AI SDK.
type GoogleProvider struct {
	catalog
	client *genai.Client
}

func NewGoogleProvider(ctx context.Context, cfg ClientConfig) (*GoogleProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		cc.HTTPOptions.Timeout = &cfg.Timeout
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &GoogleProvider{
		catalog: newCatalog(domain.ProviderGoogle, googleModels, cfg.Models, valueOrDefault(cfg.DefaultModel, defaultGoogleModel)),
		client:  client,
	}, nil
}

func (p *GoogleProvider) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	model, err := p.resolveModel(req.Model)
	if err != nil {
		return ports.GenerateResponse{}, err
	}
	resp, err := p.send(ctx, model, req.SystemPrompt, req.Prompt, req.Temperature, req.MaxTokens, false)
	if err != nil {
		return ports.GenerateResponse{}, err
	}
	content := resp.Text()
	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	if tokens == 0 {
		tokens = CountTokens(req.Prompt) + CountTokens(content)
	}
	finish := ""
	if len(resp.Candidates) > 0 {
		finish = string(resp.Candidates[0].FinishReason)
	}
	return ports.GenerateResponse{
		Content:      content,
		Model:        model,
		TokensUsed:   tokens,
		FinishReason: finish,
		Metadata:     map[string]any{"provider": p.name},
	}, nil
}

func (p *GoogleProvider) GenerateJSON(ctx context.Context, req ports.JSONRequest) (map[string]any, error) {
	model, err := p.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}
	prompt, system := withJSONInstructions(req.Prompt, req.SystemPrompt)
	resp, err := p.send(ctx, model, system, prompt, req.Temperature, req.MaxTokens, true)
	if err != nil {
		return nil, err
	}
	out, err := CoerceJSON(resp.Text())
	if err != nil {
		return nil, domain.NewProviderError(p.name, model, domain.ErrInvalidResponse, err)
	}
	return out, nil
}

func (p *GoogleProvider) send(ctx context.Context, model, system, prompt string, temperature float64, maxTokens int, jsonMode bool) (*genai.GenerateContentResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if jsonMode {
		config.ResponseMIMEType = "application/json"
	}
	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return nil, normalizeError(p.name, model, err)
	}
	return resp, nil
}

var _ ports.Provider = (*GoogleProvider)(nil)
