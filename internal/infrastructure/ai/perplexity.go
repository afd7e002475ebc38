package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports"
)

const searchSystemPrompt = "당신은 웹 검색 결과를 바탕으로 정확하고 최신 정보를 제공하는 AI입니다."

// PerplexityProvider talks to Perplexity's OpenAI-compatible endpoint and
// doubles as the web searcher.
type PerplexityProvider struct {
	chatCompletions
}

func NewPerplexityProvider(cfg ClientConfig) (*PerplexityProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("perplexity: api key is required")
	}
	cfg.BaseURL = valueOrDefault(cfg.BaseURL, perplexityBaseURL)
	return &PerplexityProvider{chatCompletions{
		catalog: newCatalog(domain.ProviderPerplexity, perplexityModels, cfg.Models, valueOrDefault(cfg.DefaultModel, defaultPerplexityModel)),
		client:  openai.NewClient(cfg.openAIOptions()...),
	}}, nil
}

func (p *PerplexityProvider) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	return p.generate(ctx, req)
}

func (p *PerplexityProvider) GenerateJSON(ctx context.Context, req ports.JSONRequest) (map[string]any, error) {
	return p.generateJSON(ctx, req)
}

// SearchInternet asks the default online model for up-to-date information.
func (p *PerplexityProvider) SearchInternet(ctx context.Context, query string, maxTokens int) (string, error) {
	resp, err := p.generate(ctx, ports.GenerateRequest{
		Prompt:       query,
		SystemPrompt: searchSystemPrompt,
		Temperature:  domain.SearchTemperature,
		MaxTokens:    valueOrDefaultInt(maxTokens, domain.SearchMaxTokens),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

var (
	_ ports.Provider    = (*PerplexityProvider)(nil)
	_ ports.WebSearcher = (*PerplexityProvider)(nil)
)
