package routing

import "github.com/doeshing/promptmate/internal/domain"

// Fallback preference list keys.
const (
	preferenceLightweight = "lightweight"
	preferenceHigh        = string(domain.QualityHigh)
	preferenceBalanced    = string(domain.QualityBalanced)
	preferenceLow         = string(domain.QualityLow)
)

// DefaultSettings returns the built-in routing tables.
func DefaultSettings() domain.RoutingSettings {
	return domain.RoutingSettings{
		FreeModel: domain.FreeTierModel,
		TaskStrategies: map[domain.TaskType]domain.ModelStrategy{
			domain.TaskIntentParsing:    {Provider: domain.ProviderOpenAI, Model: "gpt-5-nano", Temperature: 0.3},
			domain.TaskContextQuestions: {Provider: domain.ProviderOpenAI, Model: "gpt-5-nano", Temperature: 0.4},
			domain.TaskPromptSynthesis:  {Provider: domain.ProviderOpenAI, Model: "gpt-5-nano", Temperature: 0.2},
			domain.TaskRefinement:       {Provider: domain.ProviderOpenAI, Model: "gpt-5-nano", Temperature: 0.5},
		},
		QualityStrategies: map[domain.QualityLevel]domain.ModelStrategy{
			domain.QualityLow:      {Provider: domain.ProviderOpenAI, Model: "gpt-5-nano", Temperature: 0.7},
			domain.QualityBalanced: {Provider: domain.ProviderOpenAI, Model: "gpt-5-mini", Temperature: 0.7},
			domain.QualityHigh:     {Provider: domain.ProviderOpenAI, Model: "gpt-4o", Temperature: 0.8},
		},
		ModelStrategies: map[string]domain.ModelStrategy{
			"gpt-5-nano":   {Provider: domain.ProviderOpenAI, Model: "gpt-5-nano", Temperature: 0.7},
			"gpt-5-mini":   {Provider: domain.ProviderOpenAI, Model: "gpt-5-mini", Temperature: 0.7},
			"gpt-5":        {Provider: domain.ProviderOpenAI, Model: "gpt-5", Temperature: 0.8},
			"gpt-4.1":      {Provider: domain.ProviderOpenAI, Model: "gpt-4.1", Temperature: 0.8},
			"gpt-4.1-mini": {Provider: domain.ProviderOpenAI, Model: "gpt-4.1-mini", Temperature: 0.7},
		},
		FallbackOrder: []string{domain.ProviderOpenAI, domain.ProviderAnthropic, domain.ProviderGoogle},
		FallbackPreference: map[string][]string{
			preferenceLightweight: {"gpt-5-nano", "gpt-4.1-nano", "gpt-4o-mini", "claude-3-5-haiku-20241022", "gemini-1.5-flash"},
			preferenceHigh:        {"gpt-4o", "claude-3-5-sonnet-20241022", "gemini-1.5-pro"},
			preferenceBalanced:    {"gpt-5-mini", "gpt-4o-mini", "claude-3-5-haiku-20241022", "gemini-1.5-flash"},
			preferenceLow:         {"gpt-5-nano", "gpt-4.1-nano", "gpt-4o-mini", "claude-3-5-haiku-20241022"},
		},
		IntentThreshold:  domain.DefaultClarificationThreshold,
		BatchConcurrency: 4,
	}
}

// withDefaults fills every zero-valued table in s from DefaultSettings.
// Entries present in s win over the defaults.
func withDefaults(s domain.RoutingSettings) domain.RoutingSettings {
	def := DefaultSettings()
	if s.FreeModel == "" {
		s.FreeModel = def.FreeModel
	}
	s.TaskStrategies = mergeStrategies(def.TaskStrategies, s.TaskStrategies)
	s.QualityStrategies = mergeStrategies(def.QualityStrategies, s.QualityStrategies)
	s.ModelStrategies = mergeStrategies(def.ModelStrategies, s.ModelStrategies)
	if len(s.FallbackOrder) == 0 {
		s.FallbackOrder = def.FallbackOrder
	}
	if len(s.FallbackPreference) == 0 {
		s.FallbackPreference = def.FallbackPreference
	}
	if s.IntentThreshold <= 0 {
		s.IntentThreshold = def.IntentThreshold
	}
	if s.BatchConcurrency <= 0 {
		s.BatchConcurrency = def.BatchConcurrency
	}
	return s
}

func mergeStrategies[K comparable](base, override map[K]domain.ModelStrategy) map[K]domain.ModelStrategy {
	out := make(map[K]domain.ModelStrategy, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if v.Provider == "" {
			v.Provider = domain.ProviderOpenAI
		}
		out[k] = v
	}
	return out
}
