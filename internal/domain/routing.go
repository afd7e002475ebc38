package domain

// TaskType identifies a pipeline step for routing purposes.
type TaskType string

const (
	TaskIntentParsing    TaskType = "intent_parsing"
	TaskContextQuestions TaskType = "context_questions"
	TaskPromptSynthesis  TaskType = "prompt_synthesis"
	TaskFinalGeneration  TaskType = "final_generation"
	TaskRefinement       TaskType = "refinement"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskIntentParsing, TaskContextQuestions, TaskPromptSynthesis, TaskFinalGeneration, TaskRefinement:
		return true
	}
	return false
}

// Lightweight reports whether the task is an internal pipeline step that always
// routes to a lightweight model.
func (t TaskType) Lightweight() bool {
	switch t {
	case TaskIntentParsing, TaskContextQuestions, TaskPromptSynthesis:
		return true
	}
	return false
}

// QualityLevel is the coarse cost/capability dial for final generation.
type QualityLevel string

const (
	QualityLow      QualityLevel = "low"
	QualityBalanced QualityLevel = "balanced"
	QualityHigh     QualityLevel = "high"
)

// Valid reports whether q is a known quality level.
func (q QualityLevel) Valid() bool {
	switch q {
	case QualityLow, QualityBalanced, QualityHigh:
		return true
	}
	return false
}

// Provider names used by the registry and routing tables.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGoogle     = "google"
	ProviderPerplexity = "perplexity"
)

// Route is the outcome of a routing decision.
type Route struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	// Substituted is set when the strategy provider had no credentials and
	// another provider's closest model was chosen instead.
	Substituted bool `json:"substituted,omitempty"`
}

// ModelStrategy is one (provider, model, temperature) routing target.
type ModelStrategy struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// SpecificityLevel selects the verbosity instruction appended to synthesized prompts.
type SpecificityLevel string

const (
	SpecificityShort        SpecificityLevel = "짧음"
	SpecificityConcise      SpecificityLevel = "간결"
	SpecificityNormal       SpecificityLevel = "보통"
	SpecificityDetailed     SpecificityLevel = "구체적"
	SpecificityVeryDetailed SpecificityLevel = "매우 구체적"
)

// Valid reports whether l is one of the five verbosity levels.
func (l SpecificityLevel) Valid() bool {
	switch l {
	case SpecificityShort, SpecificityConcise, SpecificityNormal, SpecificityDetailed, SpecificityVeryDetailed:
		return true
	}
	return false
}
