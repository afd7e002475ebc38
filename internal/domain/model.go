// Package domain defines the core entities and value objects for promptmate.
//
// The domain layer is independent of infrastructure concerns: it holds the
// intent/question/session aggregates, the routing vocabulary, entitlements and
// the configuration model read from ~/.promptmate/config.yaml.
package domain

import "time"

// ProviderDefinition describes an LLM vendor declared in the config file.
// API keys are never stored in the file; AuthEnvVar names the environment
// variable that holds the key.
type ProviderDefinition struct {
	Name           string   `yaml:"name"`
	Kind           string   `yaml:"kind,omitempty"`
	AuthEnvVar     string   `yaml:"auth_env_var"`
	BaseURL        string   `yaml:"base_url,omitempty"`
	DefaultModel   string   `yaml:"default_model"`
	Models         []string `yaml:"models,omitempty"`
	TimeoutSeconds int      `yaml:"timeout,omitempty"`
	MaxTokens      int      `yaml:"max_tokens,omitempty"`
}

// Provider kinds map definitions onto adapters.
const (
	ProviderKindOpenAI     = "openai"
	ProviderKindAnthropic  = "anthropic"
	ProviderKindGoogle     = "google"
	ProviderKindPerplexity = "perplexity"
)

// ResolveKind returns the adapter kind, falling back to the provider name.
func (p ProviderDefinition) ResolveKind() string {
	if p.Kind != "" {
		return p.Kind
	}
	return p.Name
}

// DefaultAuthEnvVar returns the conventional API key variable for a kind.
func DefaultAuthEnvVar(kind string) string {
	switch kind {
	case ProviderKindOpenAI:
		return "OPENAI_API_KEY"
	case ProviderKindAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderKindGoogle:
		return "GOOGLE_API_KEY"
	case ProviderKindPerplexity:
		return "PERPLEXITY_API_KEY"
	}
	return ""
}

// Timeout returns the per-request deadline with a default.
func (p ProviderDefinition) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return DefaultHTTPClientTimeout
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}
