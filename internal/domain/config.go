package domain

// Config mirrors ~/.promptmate/config.yaml.
type Config struct {
	ConfigFormatVersion string               `yaml:"config_format_version"`
	Providers           []ProviderDefinition `yaml:"providers"`
	Routing             RoutingSettings      `yaml:"routing"`
	Elicitor            ElicitorSettings     `yaml:"elicitor"`
	Synthesizer         SynthesizerSettings  `yaml:"synthesizer"`
	RAG                 RAGSettings          `yaml:"rag"`
	Storage             StorageSettings      `yaml:"storage"`
	Entitlement         Entitlement          `yaml:"entitlement"`
	Logging             LoggingSettings      `yaml:"logging"`
}

// RoutingSettings holds the strategy tables used by the model router.
type RoutingSettings struct {
	FreeModel          string                         `yaml:"free_model"`
	TaskStrategies     map[TaskType]ModelStrategy     `yaml:"task_strategies"`
	QualityStrategies  map[QualityLevel]ModelStrategy `yaml:"quality_strategies"`
	ModelStrategies    map[string]ModelStrategy       `yaml:"model_strategies"`
	FallbackOrder      []string                       `yaml:"fallback_order"`
	FallbackPreference map[string][]string            `yaml:"fallback_preference"`
	IntentThreshold    float64                        `yaml:"intent_threshold"`
	BatchConcurrency   int                            `yaml:"batch_concurrency"`
}

// ElicitorSettings configures clarifying question generation.
type ElicitorSettings struct {
	MaxQuestions int `yaml:"max_questions"`
}

// SynthesizerSettings configures prompt assembly.
type SynthesizerSettings struct {
	TokenBudget int    `yaml:"token_budget"`
	OutputLevel string `yaml:"output_level"`
}

// RAGSettings configures embeddings and retrieval.
type RAGSettings struct {
	EmbeddingModel      string  `yaml:"embedding_model"`
	Dimension           int     `yaml:"dimension"`
	CacheTTLSeconds     int     `yaml:"cache_ttl"`
	CacheMaxEntries     int64   `yaml:"cache_max_entries"`
	TopK                int     `yaml:"top_k"`
	MinSimilarity       float64 `yaml:"min_similarity"`
	Window              int     `yaml:"window"`
	MaxCachedPartitions int     `yaml:"max_cached_partitions"`
}

// StorageSettings locates the SQLite database.
type StorageSettings struct {
	Path string `yaml:"path"`
}

// LoggingSettings controls the structured logger.
type LoggingSettings struct {
	Level string `yaml:"level"`
}
