package domain

import (
	"fmt"
	"time"
)

// FindProvider searches for a provider definition by name.
func (c *Config) FindProvider(name string) (ProviderDefinition, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderDefinition{}, false
}

// HasProvider checks if a provider with the given name is configured.
func (c *Config) HasProvider(name string) bool {
	_, ok := c.FindProvider(name)
	return ok
}

// AddProvider adds a provider definition.
// Returns an error if a provider with the same name already exists.
func (c *Config) AddProvider(p ProviderDefinition) error {
	if c.HasProvider(p.Name) {
		return fmt.Errorf("provider with name %s already exists", p.Name)
	}
	c.Providers = append(c.Providers, p)
	return nil
}

// RemoveProvider removes a provider and drops it from the fallback order.
func (c *Config) RemoveProvider(name string) error {
	idx := -1
	for i, p := range c.Providers {
		if p.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("provider %s not found", name)
	}
	c.Providers = append(c.Providers[:idx], c.Providers[idx+1:]...)

	var order []string
	for _, n := range c.Routing.FallbackOrder {
		if n != name {
			order = append(order, n)
		}
	}
	c.Routing.FallbackOrder = order
	return nil
}

// GetFreeModel returns the baseline model for free and anonymous callers.
func (c *Config) GetFreeModel() string {
	if c.Routing.FreeModel == "" {
		return FreeTierModel
	}
	return c.Routing.FreeModel
}

// GetMaxQuestions returns the clarifying question cap.
func (c *Config) GetMaxQuestions() int {
	if c.Elicitor.MaxQuestions <= 0 {
		return DefaultMaxQuestions
	}
	return c.Elicitor.MaxQuestions
}

// GetTokenBudget returns the synthesized prompt token budget.
func (c *Config) GetTokenBudget() int {
	if c.Synthesizer.TokenBudget <= 0 {
		return DefaultTokenBudget
	}
	return c.Synthesizer.TokenBudget
}

// GetOutputLevel returns the configured verbosity level.
func (c *Config) GetOutputLevel() SpecificityLevel {
	l := SpecificityLevel(c.Synthesizer.OutputLevel)
	if !l.Valid() {
		return SpecificityVeryDetailed
	}
	return l
}

// GetIntentThreshold returns the clarification confidence threshold.
func (c *Config) GetIntentThreshold() float64 {
	if c.Routing.IntentThreshold <= 0 || c.Routing.IntentThreshold > 1 {
		return DefaultClarificationThreshold
	}
	return c.Routing.IntentThreshold
}

// GetEmbeddingCacheTTL returns how long embeddings stay cached.
func (c *Config) GetEmbeddingCacheTTL() time.Duration {
	if c.RAG.CacheTTLSeconds <= 0 {
		return DefaultEmbeddingCacheTTL
	}
	return time.Duration(c.RAG.CacheTTLSeconds) * time.Second
}

// GetMemoryWindow returns how many recent messages form one memory.
func (c *Config) GetMemoryWindow() int {
	if c.RAG.Window <= 0 {
		return DefaultMemoryWindow
	}
	return c.RAG.Window
}

// GetRAGTopK returns the retrieval fan-out used during generation.
func (c *Config) GetRAGTopK() int {
	if c.RAG.TopK <= 0 {
		return DefaultRAGTopK
	}
	return c.RAG.TopK
}

// GetRAGMinSimilarity returns the retrieval similarity floor.
func (c *Config) GetRAGMinSimilarity() float64 {
	if c.RAG.MinSimilarity <= 0 || c.RAG.MinSimilarity > 1 {
		return DefaultRAGMinSimilarity
	}
	return c.RAG.MinSimilarity
}

// ValidateConsistency checks the internal consistency of the configuration.
func (c *Config) ValidateConsistency() error {
	for _, name := range c.Routing.FallbackOrder {
		if !c.HasProvider(name) {
			return fmt.Errorf("fallback provider %s does not exist in providers list", name)
		}
	}
	for task, s := range c.Routing.TaskStrategies {
		if !task.Valid() {
			return fmt.Errorf("unknown task type %q in task_strategies", task)
		}
		if s.Model == "" {
			return fmt.Errorf("task strategy %s has no model", task)
		}
	}
	for q, s := range c.Routing.QualityStrategies {
		if !q.Valid() {
			return fmt.Errorf("unknown quality level %q in quality_strategies", q)
		}
		if s.Model == "" {
			return fmt.Errorf("quality strategy %s has no model", q)
		}
	}
	if c.Synthesizer.OutputLevel != "" && !SpecificityLevel(c.Synthesizer.OutputLevel).Valid() {
		return fmt.Errorf("unknown output level %q", c.Synthesizer.OutputLevel)
	}
	return nil
}
