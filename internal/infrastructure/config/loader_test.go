package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/domain"
)

func TestLoad_WritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	l := NewFileLoader(path)

	cfg, err := l.Load(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Providers, 4)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Providers[0].AuthEnvVar)
	assert.Equal(t, domain.FreeTierModel, cfg.Routing.FreeModel)
	assert.Equal(t, domain.ModelStrategy{Provider: "openai", Model: "gpt-4o", Temperature: 0.8}, cfg.Routing.QualityStrategies[domain.QualityHigh])
	assert.Equal(t, 0.3, cfg.Routing.TaskStrategies[domain.TaskIntentParsing].Temperature)
	assert.Equal(t, domain.SpecificityVeryDetailed, cfg.GetOutputLevel())
	assert.Equal(t, 4, cfg.GetMaxQuestions())
	assert.Equal(t, domain.PlanFree, cfg.Entitlement.PlanType)
	assert.True(t, filepath.IsAbs(cfg.Storage.Path))
}

func TestLoad_HydratesSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - name: claude\n    kind: anthropic\n"), 0o600))

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.Providers[0].AuthEnvVar)
	assert.Equal(t, "1", cfg.ConfigFormatVersion)
	assert.Equal(t, domain.DefaultEmbeddingModel, cfg.RAG.EmbeddingModel)
	assert.Equal(t, domain.DefaultEmbeddingDim, cfg.RAG.Dimension)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigPath, filepath.Join(dir, "from-env.yaml"))
	t.Setenv(EnvDBPath, filepath.Join(dir, "db.sqlite"))
	t.Setenv(EnvLogLevel, "debug")

	l := NewFileLoader("")
	assert.Equal(t, filepath.Join(dir, "from-env.yaml"), l.Path())

	cfg, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "db.sqlite"), cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - name: x\n    kind: mystery\n"), 0o600))

	_, err := NewFileLoader(path).Load(context.Background())
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("providers: [\n"), 0o600))
	_, err = NewFileLoader(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	l := NewFileLoader(path)
	cfg, err := l.Load(context.Background())
	require.NoError(t, err)

	cfg.Elicitor.MaxQuestions = 2
	require.NoError(t, l.Save(context.Background(), cfg))

	again, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, again.Elicitor.MaxQuestions)
}
