package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/promptmate/assets"
	appconfig "github.com/doeshing/promptmate/internal/application/config"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/filesystem"
	"github.com/doeshing/promptmate/internal/ports"
)

// Environment overrides.
const (
	EnvConfigPath = "PROMPTMATE_CONFIG"
	EnvDBPath     = "PROMPTMATE_DB"
	EnvLogLevel   = "PROMPTMATE_LOG_LEVEL"
)

// FileLoader loads YAML configuration from ~/.promptmate/config.yaml (overridable via PROMPTMATE_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, err
		}
		data = assets.DefaultConfigYAML
		if err := os.WriteFile(path, data, domain.SecureFilePermissions); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg back to the resolved path.
func (l *FileLoader) Save(_ context.Context, cfg domain.Config) error {
	if err := appconfig.Validate(cfg); err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// Path returns the config file location.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.ConfigDir(), "config.yaml")
}

// Parse decodes YAML, fills defaults, applies environment overrides and validates.
func Parse(data []byte) (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}
	cfg = applyEnv(hydrateDefaults(cfg))
	if err := appconfig.Validate(cfg); err != nil {
		return domain.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Defaults returns the embedded default configuration.
func Defaults() (domain.Config, error) {
	return Parse(assets.DefaultConfigYAML)
}

func ensureConfigDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, domain.DirectoryPermissions)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	for i := range cfg.Providers {
		def := &cfg.Providers[i]
		if def.AuthEnvVar == "" {
			def.AuthEnvVar = domain.DefaultAuthEnvVar(def.ResolveKind())
		}
	}
	if cfg.Routing.FreeModel == "" {
		cfg.Routing.FreeModel = domain.FreeTierModel
	}
	if cfg.RAG.EmbeddingModel == "" {
		cfg.RAG.EmbeddingModel = domain.DefaultEmbeddingModel
	}
	if cfg.RAG.Dimension == 0 {
		cfg.RAG.Dimension = domain.DefaultEmbeddingDim
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(filesystem.ConfigDir(), "promptmate.db")
	}
	cfg.Storage.Path = filesystem.ExpandPath(cfg.Storage.Path)
	if cfg.Entitlement.PlanType == "" {
		cfg.Entitlement.PlanType = domain.PlanFree
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	return cfg
}

func applyEnv(cfg domain.Config) domain.Config {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Storage.Path = filesystem.ExpandPath(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
