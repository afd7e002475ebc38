// Package doctor diagnoses whether the pipeline can run: config, credentials,
// storage and retrieval.
package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports"
)

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Retrieval reports whether embeddings are configured.
type Retrieval interface {
	Enabled() bool
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Registry       ports.ProviderRegistry
	Store          Pinger
	Retrieval      Retrieval
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("format %s, %d providers", cfg.ConfigFormatVersion, len(cfg.Providers))))

	checks = append(checks, s.providerChecks(cfg)...)

	if s.Store != nil {
		if err := s.Store.Ping(ctx); err != nil {
			checks = append(checks, fail("Database", err.Error()))
		} else {
			checks = append(checks, ok("Database", cfg.Storage.Path))
		}
	}

	if s.Retrieval != nil {
		if s.Retrieval.Enabled() {
			checks = append(checks, ok("Retrieval", cfg.RAG.EmbeddingModel))
		} else {
			checks = append(checks, warn("Retrieval", "disabled, no OpenAI key for embeddings"))
		}
	}

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) providerChecks(cfg domain.Config) []domain.HealthCheck {
	if s.Registry == nil {
		return []domain.HealthCheck{warn("API keys", "provider registry not initialized")}
	}
	var missing []string
	for _, def := range cfg.Providers {
		if _, found := s.Registry.Get(def.Name); !found {
			missing = append(missing, fmt.Sprintf("%s (%s)", def.Name, def.AuthEnvVar))
		}
	}

	var checks []domain.HealthCheck
	switch {
	case len(s.Registry.Names()) == 0:
		checks = append(checks, fail("API keys", "no provider key found: "+strings.Join(missing, ", ")))
	case len(missing) > 0:
		checks = append(checks, warn("API keys", "missing "+strings.Join(missing, ", ")))
	default:
		checks = append(checks, ok("API keys", "detected for configured providers"))
	}

	if _, found := s.Registry.Get(domain.ProviderOpenAI); !found {
		checks = append(checks, warn("Free tier", fmt.Sprintf("%s requires the openai provider; free callers will be substituted", cfg.GetFreeModel())))
	}
	if _, found := s.Registry.Searcher(); found {
		checks = append(checks, ok("Web search", "available"))
	} else {
		checks = append(checks, warn("Web search", "no perplexity key"))
	}
	return checks
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
