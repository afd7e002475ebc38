package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/logger"
)

func TestFactory_BuildSkipsMissingKeys(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"CUSTOM_PPLX_KEY": "pplx-test",
	}
	f := &Factory{Getenv: func(k string) string { return env[k] }, Logger: logger.NewNop()}

	reg := f.Build(context.Background(), []domain.ProviderDefinition{
		{Name: "openai"},
		{Name: "anthropic"},
		{Name: "perplexity", AuthEnvVar: "CUSTOM_PPLX_KEY"},
	})

	assert.Equal(t, []string{"openai", "perplexity"}, reg.Names())

	p, ok := reg.Get("openai")
	require.True(t, ok)
	assert.Contains(t, p.AvailableModels(), "gpt-5-nano")

	_, ok = reg.Get("anthropic")
	assert.False(t, ok)

	s, ok := reg.Searcher()
	require.True(t, ok)
	assert.IsType(t, &PerplexityProvider{}, s)
}

func TestFactory_UnsupportedKind(t *testing.T) {
	f := &Factory{Getenv: func(string) string { return "key" }, Logger: logger.NewNop()}
	_, err := f.ForDefinition(context.Background(), domain.ProviderDefinition{Name: "ollama", AuthEnvVar: "X"})
	assert.Error(t, err)
}

func TestRegistry_NoSearcher(t *testing.T) {
	_, ok := NewRegistry().Searcher()
	assert.False(t, ok)
}
