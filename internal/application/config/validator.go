// Package config validates loaded configuration before the container wires it.
package config

import (
	"errors"
	"fmt"

	"github.com/doeshing/promptmate/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if len(cfg.Providers) == 0 {
		return errors.New("at least one provider must be configured")
	}
	if err := validateProviders(cfg.Providers); err != nil {
		return err
	}
	if err := cfg.ValidateConsistency(); err != nil {
		return err
	}
	if err := validateRAG(cfg.RAG); err != nil {
		return err
	}
	if err := validateEntitlement(cfg.Entitlement); err != nil {
		return err
	}
	if cfg.Elicitor.MaxQuestions < 0 {
		return fmt.Errorf("elicitor.max_questions must be >= 0")
	}
	if cfg.Synthesizer.TokenBudget < 0 {
		return fmt.Errorf("synthesizer.token_budget must be >= 0")
	}
	return nil
}

func validateProviders(defs []domain.ProviderDefinition) error {
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return errors.New("provider name must be set")
		}
		if seen[def.Name] {
			return fmt.Errorf("provider %s declared twice", def.Name)
		}
		seen[def.Name] = true

		switch def.ResolveKind() {
		case domain.ProviderKindOpenAI, domain.ProviderKindAnthropic, domain.ProviderKindGoogle, domain.ProviderKindPerplexity:
		default:
			return fmt.Errorf("provider %s has unknown kind %q", def.Name, def.ResolveKind())
		}
		if def.TimeoutSeconds < 0 {
			return fmt.Errorf("provider %s timeout must be >= 0", def.Name)
		}
	}
	return nil
}

func validateRAG(rag domain.RAGSettings) error {
	if rag.MinSimilarity < 0 || rag.MinSimilarity > 1 {
		return fmt.Errorf("rag.min_similarity must be within [0,1], got %v", rag.MinSimilarity)
	}
	if rag.TopK < 0 {
		return fmt.Errorf("rag.top_k must be >= 0")
	}
	if rag.Dimension < 0 {
		return fmt.Errorf("rag.dimension must be >= 0")
	}
	if rag.Window < 0 {
		return fmt.Errorf("rag.window must be >= 0")
	}
	return nil
}

func validateEntitlement(ent domain.Entitlement) error {
	switch ent.PlanType {
	case "", domain.PlanFree, domain.PlanBasic, domain.PlanPro:
	default:
		return fmt.Errorf("entitlement.plan_type must be free|basic|pro, got %s", ent.PlanType)
	}
	if ent.MonthlyLimit < 0 || ent.BonusTokens < 0 || ent.CurrentUsage < 0 {
		return fmt.Errorf("entitlement token counts must be >= 0")
	}
	return nil
}
