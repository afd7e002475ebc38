package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/domain"
)

// TestConfig_FindProvider tests looking up providers by name
func TestConfig_FindProvider(t *testing.T) {
	cfg := domain.Config{
		Providers: []domain.ProviderDefinition{
			{Name: "openai", DefaultModel: "gpt-5-nano"},
			{Name: "anthropic", DefaultModel: "claude-3-5-haiku-20241022"},
		},
	}

	p, ok := cfg.FindProvider("anthropic")
	require.True(t, ok)
	assert.Equal(t, "claude-3-5-haiku-20241022", p.DefaultModel)

	_, ok = cfg.FindProvider("google")
	assert.False(t, ok)
}

// TestConfig_AddProvider tests adding a provider definition
func TestConfig_AddProvider(t *testing.T) {
	tests := []struct {
		name      string
		existing  []domain.ProviderDefinition
		add       domain.ProviderDefinition
		wantError bool
		wantCount int
	}{
		{
			name:      "adds new provider",
			existing:  []domain.ProviderDefinition{{Name: "openai"}},
			add:       domain.ProviderDefinition{Name: "google"},
			wantCount: 2,
		},
		{
			name:      "rejects duplicate provider",
			existing:  []domain.ProviderDefinition{{Name: "openai"}},
			add:       domain.ProviderDefinition{Name: "openai"},
			wantError: true,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.Config{Providers: tt.existing}
			err := cfg.AddProvider(tt.add)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, cfg.Providers, tt.wantCount)
		})
	}
}

// TestConfig_RemoveProvider tests removing a provider and pruning the fallback order
func TestConfig_RemoveProvider(t *testing.T) {
	cfg := domain.Config{
		Providers: []domain.ProviderDefinition{{Name: "openai"}, {Name: "anthropic"}, {Name: "google"}},
		Routing:   domain.RoutingSettings{FallbackOrder: []string{"openai", "anthropic", "google"}},
	}

	require.NoError(t, cfg.RemoveProvider("anthropic"))
	assert.Len(t, cfg.Providers, 2)
	assert.Equal(t, []string{"openai", "google"}, cfg.Routing.FallbackOrder)

	assert.Error(t, cfg.RemoveProvider("anthropic"))
}

// TestConfig_Defaults tests getter fallbacks for zero values
func TestConfig_Defaults(t *testing.T) {
	var cfg domain.Config

	assert.Equal(t, domain.FreeTierModel, cfg.GetFreeModel())
	assert.Equal(t, domain.DefaultMaxQuestions, cfg.GetMaxQuestions())
	assert.Equal(t, domain.DefaultTokenBudget, cfg.GetTokenBudget())
	assert.Equal(t, domain.SpecificityVeryDetailed, cfg.GetOutputLevel())
	assert.Equal(t, domain.DefaultClarificationThreshold, cfg.GetIntentThreshold())
	assert.Equal(t, time.Hour, cfg.GetEmbeddingCacheTTL())
	assert.Equal(t, domain.DefaultMemoryWindow, cfg.GetMemoryWindow())
	assert.Equal(t, domain.DefaultRAGTopK, cfg.GetRAGTopK())
	assert.Equal(t, domain.DefaultRAGMinSimilarity, cfg.GetRAGMinSimilarity())
}

// TestConfig_ValidateConsistency tests configuration consistency checks
func TestConfig_ValidateConsistency(t *testing.T) {
	tests := []struct {
		name      string
		config    domain.Config
		wantError bool
	}{
		{
			name: "valid configuration",
			config: domain.Config{
				Providers: []domain.ProviderDefinition{{Name: "openai"}},
				Routing: domain.RoutingSettings{
					FallbackOrder: []string{"openai"},
					TaskStrategies: map[domain.TaskType]domain.ModelStrategy{
						domain.TaskIntentParsing: {Provider: "openai", Model: "gpt-5-nano", Temperature: 0.3},
					},
				},
			},
		},
		{
			name: "fallback provider missing",
			config: domain.Config{
				Routing: domain.RoutingSettings{FallbackOrder: []string{"google"}},
			},
			wantError: true,
		},
		{
			name: "unknown task type",
			config: domain.Config{
				Routing: domain.RoutingSettings{
					TaskStrategies: map[domain.TaskType]domain.ModelStrategy{"translate": {Model: "gpt-4o"}},
				},
			},
			wantError: true,
		},
		{
			name: "quality strategy without model",
			config: domain.Config{
				Routing: domain.RoutingSettings{
					QualityStrategies: map[domain.QualityLevel]domain.ModelStrategy{domain.QualityHigh: {Provider: "openai"}},
				},
			},
			wantError: true,
		},
		{
			name:      "unknown output level",
			config:    domain.Config{Synthesizer: domain.SynthesizerSettings{OutputLevel: "huge"}},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.ValidateConsistency()
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
