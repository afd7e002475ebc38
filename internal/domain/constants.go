package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultHTTPClientTimeout bounds a single vendor request
	DefaultHTTPClientTimeout = 60 * time.Second
	// DefaultEmbeddingCacheTTL is how long an embedding stays cached
	DefaultEmbeddingCacheTTL = time.Hour
)

// Generation constants
const (
	DefaultMaxTokens    = 2000
	DefaultTemperature  = 0.7
	DefaultTokenBudget  = 1500
	SearchMaxTokens     = 1000
	SearchTemperature   = 0.2
	DefaultEmbeddingDim = 1536
)

// Retrieval constants
const (
	DefaultRAGTopK          = 3
	DefaultRAGMinSimilarity = 0.7
	DefaultSearchTopK       = 5
	DefaultMemoryWindow     = 10
	MemoryMessageMaxRunes   = 200
	ContextSnippetMaxRunes  = 500
	DefaultEmbeddingModel   = "text-embedding-3-small"
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// IntentHistoryWindow is how many prior inputs are shown to the intent parser
	IntentHistoryWindow = 3
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
