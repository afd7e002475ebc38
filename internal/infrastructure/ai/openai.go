package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports"
)

// ClientConfig carries what every vendor adapter needs to build its SDK client.
type ClientConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Models       []string
	Timeout      time.Duration
	MaxRetries   int
	HTTPClient   *http.Client
}

func (c ClientConfig) openAIOptions() []openaioption.RequestOption {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(c.APIKey),
		openaioption.WithMaxRetries(c.MaxRetries),
	}
	if c.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(c.BaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, openaioption.WithHTTPClient(c.HTTPClient))
	}
	if c.Timeout > 0 {
		opts = append(opts, openaioption.WithRequestTimeout(c.Timeout))
	}
	return opts
}

// chatCompletions is the OpenAI-compatible chat endpoint shared by the
// OpenAI and Perplexity adapters.
type chatCompletions struct {
	catalog
	client openai.Client

	sendsTemperature func(model string) bool
	jsonMode         func(model string) bool
}

type chatCall struct {
	model       string
	system      string
	prompt      string
	temperature float64
	maxTokens   int
	json        bool
}

func (c *chatCompletions) complete(ctx context.Context, call chatCall) (*openai.ChatCompletion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if call.system != "" {
		messages = append(messages, openai.SystemMessage(call.system))
	}
	messages = append(messages, openai.UserMessage(call.prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(call.model),
		Messages: messages,
	}
	if c.sendsTemperature == nil || c.sendsTemperature(call.model) {
		params.Temperature = openai.Float(call.temperature)
	}
	if call.maxTokens > 0 {
		if strings.HasPrefix(call.model, "gpt-5") {
			params.MaxCompletionTokens = openai.Int(int64(call.maxTokens))
		} else {
			params.MaxTokens = openai.Int(int64(call.maxTokens))
		}
	}
	if call.json && c.jsonMode != nil && c.jsonMode(call.model) {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, normalizeError(c.name, call.model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.NewProviderError(c.name, call.model, domain.ErrInvalidResponse, errors.New("response has no choices"))
	}
	return resp, nil
}

func (c *chatCompletions) generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	model, err := c.resolveModel(req.Model)
	if err != nil {
		return ports.GenerateResponse{}, err
	}
	resp, err := c.complete(ctx, chatCall{
		model:       model,
		system:      req.SystemPrompt,
		prompt:      req.Prompt,
		temperature: req.Temperature,
		maxTokens:   req.MaxTokens,
	})
	if err != nil {
		return ports.GenerateResponse{}, err
	}
	choice := resp.Choices[0]
	return ports.GenerateResponse{
		Content:      choice.Message.Content,
		Model:        model,
		TokensUsed:   int(resp.Usage.TotalTokens),
		FinishReason: string(choice.FinishReason),
		Metadata:     map[string]any{"provider": c.name, "id": resp.ID},
	}, nil
}

func (c *chatCompletions) generateJSON(ctx context.Context, req ports.JSONRequest) (map[string]any, error) {
	model, err := c.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}
	prompt, system := withJSONInstructions(req.Prompt, req.SystemPrompt)
	resp, err := c.complete(ctx, chatCall{
		model:       model,
		system:      system,
		prompt:      prompt,
		temperature: req.Temperature,
		maxTokens:   req.MaxTokens,
		json:        true,
	})
	if err != nil {
		return nil, err
	}
	out, err := CoerceJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, domain.NewProviderError(c.name, model, domain.ErrInvalidResponse, err)
	}
	return out, nil
}

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct {
	chatCompletions
}

// NewOpenAIProvider builds the adapter. An empty API key is rejected.
func NewOpenAIProvider(cfg ClientConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	return &OpenAIProvider{chatCompletions{
		catalog:          newCatalog(domain.ProviderOpenAI, openAIModels, cfg.Models, valueOrDefault(cfg.DefaultModel, defaultOpenAIModel)),
		client:           openai.NewClient(cfg.openAIOptions()...),
		sendsTemperature: func(model string) bool { return !fixedTemperatureModels[model] },
		jsonMode:         func(model string) bool { return jsonModeModels[model] },
	}}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	return p.generate(ctx, req)
}

func (p *OpenAIProvider) GenerateJSON(ctx context.Context, req ports.JSONRequest) (map[string]any, error) {
	return p.generateJSON(ctx, req)
}

var _ ports.Provider = (*OpenAIProvider)(nil)
