package domain

import "time"

// Well-known context keys consumed by the synthesizer and elicitor.
const (
	ContextKeyExpertise        = "expertise_level"
	ContextKeyPurpose          = "purpose"
	ContextKeyDomain           = "domain"
	ContextKeyLength           = "length"
	ContextKeyTimeLimit        = "time_limit"
	ContextKeyFormatPreference = "format_preference"
)

// Preference keys learned from feedback.
const (
	PrefPositiveFeedbackCount = "positive_feedback_count"
	PrefNegativeFeedbackCount = "negative_feedback_count"
)

// Session is the mutable aggregate for one conversation workflow.
type Session struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id,omitempty"`
	ConversationID  string            `json:"conversation_id,omitempty"`
	Role            string            `json:"role"`
	Task            string            `json:"task"`
	Context         map[string]string `json:"context"`
	Constraints     []string          `json:"constraints"`
	UserPreferences map[string]any    `json:"user_preferences"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewSession returns an empty session with initialized collections.
func NewSession(id, userID, conversationID string, now time.Time) *Session {
	return &Session{
		ID:              id,
		UserID:          userID,
		ConversationID:  conversationID,
		Context:         map[string]string{},
		Constraints:     []string{},
		UserPreferences: map[string]any{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AddContext sets one context entry.
func (s *Session) AddContext(key, value string) {
	s.ensureMaps()
	s.Context[key] = value
}

// MergeContext merges entries into the context, overwriting existing keys.
func (s *Session) MergeContext(entries map[string]string) {
	s.ensureMaps()
	for k, v := range entries {
		s.Context[k] = v
	}
}

// AddConstraint appends a constraint unless it is already present.
// Reports whether the constraint was added.
func (s *Session) AddConstraint(c string) bool {
	for _, existing := range s.Constraints {
		if existing == c {
			return false
		}
	}
	s.Constraints = append(s.Constraints, c)
	return true
}

// LearnPreference records a learned user preference.
func (s *Session) LearnPreference(key string, value any) {
	s.ensureMaps()
	s.UserPreferences[key] = value
}

// IncrementPreference bumps a numeric preference counter and returns the new value.
func (s *Session) IncrementPreference(key string) int {
	s.ensureMaps()
	n := 0
	switch v := s.UserPreferences[key].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	}
	n++
	s.UserPreferences[key] = n
	return n
}

// HasContext reports whether a non-empty value exists for key.
func (s *Session) HasContext(key string) bool {
	return s.Context[key] != ""
}

// ContextSnapshot returns a copy of the context map.
func (s *Session) ContextSnapshot() map[string]string {
	out := make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		out[k] = v
	}
	return out
}

func (s *Session) ensureMaps() {
	if s.Context == nil {
		s.Context = map[string]string{}
	}
	if s.UserPreferences == nil {
		s.UserPreferences = map[string]any{}
	}
}

// Sentiment classifies user feedback.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Feedback is user feedback on a session or a specific generation.
type Feedback struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	PromptHistoryID string    `json:"prompt_history_id,omitempty"`
	Text            string    `json:"text"`
	Sentiment       Sentiment `json:"sentiment"`
	CreatedAt       time.Time `json:"created_at"`
}

// SessionSummary is a read-only overview of a session.
type SessionSummary struct {
	SessionID          string         `json:"session_id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Role               string         `json:"role"`
	Task               string         `json:"task"`
	ContextSize        int            `json:"context_size"`
	ConstraintsCount   int            `json:"constraints_count"`
	IntentsCount       int            `json:"intents_count"`
	PromptHistoryCount int            `json:"prompt_history_count"`
	FeedbacksCount     int            `json:"feedbacks_count"`
	UserPreferences    map[string]any `json:"user_preferences"`
}

// CustomInstructions is a user's standing instruction block.
type CustomInstructions struct {
	UserID       string
	Instructions string
	Active       bool
}
