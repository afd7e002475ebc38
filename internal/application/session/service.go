// Package session orchestrates the prompt pipeline for one conversation:
// parse intent, elicit context, synthesize, route, generate and record.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/ids"
	"github.com/doeshing/promptmate/internal/ports"
)

// IntentParser extracts intent from user input.
type IntentParser interface {
	Parse(ctx context.Context, input string, history []string) domain.IntentResult
}

// QuestionGenerator produces clarifying questions.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, intent domain.IntentResult, existing map[string]string, previous []domain.QuestionAnswer) []domain.QuestionItem
}

// PromptSynthesizer assembles the final prompt.
type PromptSynthesizer interface {
	Synthesize(intent domain.IntentResult, context map[string]string, userInput, outputFormat string, level domain.SpecificityLevel) string
}

// Retriever finds and stores conversation memories.
type Retriever interface {
	GetRelevantContext(ctx context.Context, userID, query string, topK int, minSimilarity float64) string
	AddConversationToMemory(ctx context.Context, userID, conversationID string, message *domain.Message) (*domain.ConversationMemory, error)
}

// ModelRouter picks and exposes providers.
type ModelRouter interface {
	Route(ctx context.Context, req routing.RouteRequest) (domain.Route, error)
	Provider(name string) (ports.Provider, error)
	EnhancePromptWithInternet(ctx context.Context, prompt, query string, maxTokens int) string
}

// Service opens session managers over shared collaborators. Retrieval, usage
// recording and custom instructions are optional.
type Service struct {
	Sessions     ports.SessionRepository
	History      ports.HistoryRepository
	Messages     ports.MemoryRepository
	Usage        ports.UsageRecorder
	Instructions ports.CustomInstructionsSource

	Router      ModelRouter
	Parser      IntentParser
	Elicitor    QuestionGenerator
	Synthesizer PromptSynthesizer
	RAG         Retriever

	RAGTopK          int
	RAGMinSimilarity float64
	Logger           ports.Logger
	Now              func() time.Time
}

// OpenRequest identifies the session to load or create.
type OpenRequest struct {
	SessionID      string
	UserID         string
	ConversationID string
}

// Open loads req.SessionID, or creates a session when it is empty or unknown.
// A new session keeps the requested id so callers can address it again.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*Manager, error) {
	if s.Sessions == nil || s.Parser == nil || s.Elicitor == nil || s.Synthesizer == nil || s.Logger == nil {
		return nil, errors.New("session.Service dependencies not satisfied")
	}

	var sess *domain.Session
	if req.SessionID != "" {
		loaded, err := s.Sessions.LoadSession(ctx, req.SessionID)
		switch {
		case err == nil:
			sess = loaded
			s.Logger.Info("session loaded", map[string]interface{}{"session_id": sess.ID})
		case errors.Is(err, domain.ErrSessionNotFound):
			s.Logger.Info("session not found, creating", map[string]interface{}{"session_id": req.SessionID})
		default:
			return nil, fmt.Errorf("load session: %w", err)
		}
	}

	if sess == nil {
		id := req.SessionID
		if id == "" {
			id = ids.NewSession()
		}
		sess = domain.NewSession(id, req.UserID, req.ConversationID, s.now())
		if err := s.Sessions.SaveSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		s.Logger.Info("session created", map[string]interface{}{"session_id": sess.ID})
	}

	if req.UserID != "" {
		sess.UserID = req.UserID
	}
	if req.ConversationID != "" {
		sess.ConversationID = req.ConversationID
	}
	return &Manager{svc: s, session: sess}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) ragTopK() int {
	if s.RAGTopK <= 0 {
		return domain.DefaultRAGTopK
	}
	return s.RAGTopK
}

func (s *Service) ragMinSimilarity() float64 {
	if s.RAGMinSimilarity <= 0 {
		return domain.DefaultRAGMinSimilarity
	}
	return s.RAGMinSimilarity
}
