package domain

import (
	"sort"
	"time"
)

const (
	MinQuestionPriority = 1
	MaxQuestionPriority = 5
	DefaultPriority     = 3
	DefaultMaxQuestions = 4
)

// QuestionItem is a clarifying question generated for an intent.
// Priority 1 is the most important.
type QuestionItem struct {
	Text      string   `json:"text"`
	Priority  int      `json:"priority"`
	Rationale string   `json:"rationale"`
	Options   []string `json:"options"`
	Default   *string  `json:"default"`
}

// ClampPriority bounds a priority into [1,5].
func ClampPriority(p int) int {
	if p < MinQuestionPriority {
		return MinQuestionPriority
	}
	if p > MaxQuestionPriority {
		return MaxQuestionPriority
	}
	return p
}

// SortQuestions orders questions by ascending priority, keeping generation order on ties.
func SortQuestions(items []QuestionItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Priority < items[j].Priority })
}

// QuestionAnswer is one answered question fed back into adaptive generation.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionRecord is a persisted question with its eventual answer.
type QuestionRecord struct {
	ID         string
	IntentID   string
	Item       QuestionItem
	Answer     string
	AnsweredAt *time.Time
	CreatedAt  time.Time
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
