// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// The application core (router, parser, elicitor, synthesizer, RAG, sessions)
// depends only on these abstractions. Vendor SDK adapters, SQLite repositories
// and the CLI live in the infrastructure layer and implement them.
package ports

import (
	"context"

	"github.com/doeshing/promptmate/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.promptmate/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Provider is one LLM vendor adapter.
type Provider interface {
	Name() string
	Generate(context.Context, GenerateRequest) (GenerateResponse, error)
	GenerateJSON(context.Context, JSONRequest) (map[string]any, error)
	CountTokens(text string) int
	AvailableModels() []string
}

// GenerateRequest carries one free-text generation call.
// Zero Model selects the provider default; zero MaxTokens uses domain.DefaultMaxTokens.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// GenerateResponse is the normalized vendor reply.
type GenerateResponse struct {
	Content      string
	Model        string
	TokensUsed   int
	FinishReason string
	Metadata     map[string]any
}

// JSONRequest carries one structured generation call.
type JSONRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// WebSearcher answers a query with fresh web content.
type WebSearcher interface {
	SearchInternet(ctx context.Context, query string, maxTokens int) (string, error)
}

// ProviderRegistry exposes the providers whose credentials resolved at startup.
type ProviderRegistry interface {
	Get(name string) (Provider, bool)
	Names() []string
	Searcher() (WebSearcher, bool)
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorHit is one nearest-neighbour result.
type VectorHit struct {
	ID       string
	Distance float64
}

// VectorIndex is a per-user nearest-neighbour index over memory embeddings.
type VectorIndex interface {
	Add(userID, id string, vector []float32) error
	Search(userID string, query []float32, topK int) ([]VectorHit, error)
	Reset(userID string)
	Size(userID string) int
}

// SessionRepository persists sessions and their child records.
type SessionRepository interface {
	LoadSession(ctx context.Context, id string) (*domain.Session, error)
	SaveSession(ctx context.Context, s *domain.Session) error
	SaveIntent(ctx context.Context, rec domain.IntentRecord) error
	LatestIntent(ctx context.Context, sessionID string) (domain.IntentRecord, bool, error)
	SaveQuestions(ctx context.Context, recs []domain.QuestionRecord) error
	AnswerQuestion(ctx context.Context, sessionID, question, answer string) (bool, error)
	SaveFeedback(ctx context.Context, fb domain.Feedback) error
	CountChildren(ctx context.Context, sessionID string) (intents, histories, feedbacks int, err error)
}

// HistoryRepository stores the prompt audit trail.
type HistoryRepository interface {
	SavePromptHistory(ctx context.Context, h domain.PromptHistory) error
	ListPromptHistory(ctx context.Context, sessionID string, limit int) ([]domain.PromptHistory, error)
}

// MemoryRepository stores conversation messages and embedded memories.
type MemoryRepository interface {
	SaveMessage(ctx context.Context, m domain.Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	SaveMemory(ctx context.Context, m domain.ConversationMemory) error
	MemoriesByUser(ctx context.Context, userID string) ([]domain.ConversationMemory, error)
	MemoriesByID(ctx context.Context, ids []string) (map[string]domain.ConversationMemory, error)
}

// UsageRecorder receives consumed token counts. Billing lives elsewhere.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, userID string, tokens int, model string) error
}

// CustomInstructionsSource returns a user's active custom instructions, if any.
type CustomInstructionsSource interface {
	ActiveInstructions(ctx context.Context, userID string) (domain.CustomInstructions, bool, error)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
