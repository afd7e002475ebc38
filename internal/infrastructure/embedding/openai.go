// Package embedding turns text into vectors for conversation retrieval.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports"
)

// OpenAIConfig configures the embeddings client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	MaxRetries int
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding: api key is required")
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(cfg.APIKey),
		openaioption.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = domain.DefaultEmbeddingModel
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = domain.DefaultEmbeddingDim
	}
	return &OpenAIEmbedder{client: openai.NewClient(opts...), model: model, dimension: dim}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderOpenAI, e.model, domain.ErrProvider, err)
	}
	if len(resp.Data) == 0 {
		return nil, domain.NewProviderError(domain.ProviderOpenAI, e.model, domain.ErrInvalidResponse, errors.New("empty embedding data"))
	}
	raw := resp.Data[0].Embedding
	if len(raw) != e.dimension {
		return nil, domain.NewProviderError(domain.ProviderOpenAI, e.model, domain.ErrInvalidResponse,
			fmt.Errorf("embedding has %d dimensions, want %d", len(raw), e.dimension))
	}
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

var _ ports.Embedder = (*OpenAIEmbedder)(nil)
