package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/logger"
	"github.com/doeshing/promptmate/internal/ports"
)

// Registry holds the providers whose credentials resolved at startup.
type Registry struct {
	providers map[string]ports.Provider
}

// NewRegistry registers already-built providers under their names.
func NewRegistry(providers ...ports.Provider) *Registry {
	r := &Registry{providers: make(map[string]ports.Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Factory builds vendor adapters from provider definitions.
type Factory struct {
	Getenv     func(string) string
	HTTPClient *http.Client
	MaxRetries int
	Logger     ports.Logger
}

// NewFactory returns a Factory reading credentials from the process environment.
func NewFactory(logger ports.Logger) *Factory {
	return &Factory{Getenv: os.Getenv, MaxRetries: 2, Logger: logger}
}

// Build creates a Registry from the configured providers. A provider whose API
// key does not resolve is skipped, never fatal.
func (f *Factory) Build(ctx context.Context, defs []domain.ProviderDefinition) *Registry {
	log := f.Logger
	if log == nil {
		log = logger.NewNop()
	}
	r := NewRegistry()
	for _, def := range defs {
		p, err := f.ForDefinition(ctx, def)
		if err != nil {
			log.Warn("provider disabled", map[string]interface{}{"provider": def.Name, "reason": err.Error()})
			continue
		}
		r.providers[def.Name] = p
		log.Debug("provider registered", map[string]interface{}{"provider": def.Name, "models": len(p.AvailableModels())})
	}
	return r
}

// ForDefinition builds one adapter.
func (f *Factory) ForDefinition(ctx context.Context, def domain.ProviderDefinition) (ports.Provider, error) {
	kind := def.ResolveKind()
	key := resolveAuth(f.Getenv, def.AuthEnvVar, domain.DefaultAuthEnvVar(kind))
	if key == "" {
		return nil, errors.New("no api key in environment")
	}
	cfg := ClientConfig{
		APIKey:       key,
		BaseURL:      def.BaseURL,
		DefaultModel: def.DefaultModel,
		Models:       def.Models,
		Timeout:      def.Timeout(),
		MaxRetries:   f.MaxRetries,
		HTTPClient:   f.HTTPClient,
	}

	switch kind {
	case domain.ProviderKindOpenAI:
		return NewOpenAIProvider(cfg)
	case domain.ProviderKindAnthropic:
		return NewAnthropicProvider(cfg)
	case domain.ProviderKindGoogle:
		return NewGoogleProvider(ctx, cfg)
	case domain.ProviderKindPerplexity:
		return NewPerplexityProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", kind)
	}
}

func (r *Registry) Get(name string) (ports.Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Searcher returns the first registered provider able to search the web.
func (r *Registry) Searcher() (ports.WebSearcher, bool) {
	if p, ok := r.providers[domain.ProviderPerplexity]; ok {
		if s, ok := p.(ports.WebSearcher); ok {
			return s, true
		}
	}
	for _, name := range r.Names() {
		if s, ok := r.providers[name].(ports.WebSearcher); ok {
			return s, true
		}
	}
	return nil, false
}

var _ ports.ProviderRegistry = (*Registry)(nil)
