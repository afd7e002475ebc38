package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// PromptHistory is the immutable audit record written after each generation.
type PromptHistory struct {
	ID                string       `json:"id"`
	SessionID         string       `json:"session_id"`
	PromptHash        string       `json:"prompt_hash"`
	OriginalPrompt    string       `json:"original_prompt"`
	SynthesizedPrompt string       `json:"synthesized_prompt"`
	ModelUsed         string       `json:"model_used"`
	Provider          string       `json:"provider"`
	Response          string       `json:"response"`
	TokensUsed        int          `json:"tokens_used"`
	Temperature       float64      `json:"temperature"`
	QualityLevel      QualityLevel `json:"quality_level"`
	CreatedAt         time.Time    `json:"created_at"`
}

// HashPrompt returns the hex sha256 of a synthesized prompt.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Message is one turn of a conversation.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMemory is an embedded snippet used by retrieval. Append-only.
type ConversationMemory struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	ConversationID string         `json:"conversation_id"`
	MessageID      string         `json:"message_id,omitempty"`
	Content        string         `json:"content"`
	Embedding      []float32      `json:"-"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SimilarConversation is one retrieval hit mapped back to its stored memory.
type SimilarConversation struct {
	MemoryID       string    `json:"memory_id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	Distance       float64   `json:"distance"`
	Similarity     float64   `json:"similarity"`
	CreatedAt      time.Time `json:"created_at"`
}
