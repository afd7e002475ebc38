package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/ids"
	"github.com/doeshing/promptmate/internal/ports"
)

const (
	instructionsTemplate = "[사용자 커스텀 지침]\n%s\n\n[사용자 요청]\n%s\n\n위 커스텀 지침을 반드시 따르면서 답변해주세요."
	ragTemplate          = "%s\n\n[현재 질문]\n%s\n\n위 관련 대화 기록을 참고하여 답변해주세요. 이전 대화의 맥락을 이어가되, 현재 질문에 정확히 답변하세요."
)

// ParseUserInput extracts and stores the intent of input. The first parsed
// input becomes the session task.
func (m *Manager) ParseUserInput(ctx context.Context, input string) (domain.IntentResult, error) {
	result := m.svc.Parser.Parse(ctx, input, m.recentUserTurns(ctx))

	rec := domain.IntentRecord{
		ID:        ids.New(),
		SessionID: m.session.ID,
		UserInput: input,
		Intent:    result,
		CreatedAt: m.svc.now(),
	}
	if err := m.svc.Sessions.SaveIntent(ctx, rec); err != nil {
		return result, fmt.Errorf("save intent: %w", err)
	}
	m.lastIntent = &rec

	if m.session.Task == "" {
		if err := m.UpdateTask(ctx, input); err != nil {
			return result, err
		}
	}

	m.svc.Logger.Info("user input parsed", map[string]interface{}{
		"session_id": m.session.ID,
		"goal":       string(result.CognitiveGoal),
		"confidence": result.Confidence,
		"source":     string(result.Source),
	})
	return result, nil
}

// GenerateQuestions asks clarifying questions for intent, or for the most
// recently parsed intent when intent is nil.
func (m *Manager) GenerateQuestions(ctx context.Context, intent *domain.IntentResult) ([]domain.QuestionItem, error) {
	latest, err := m.latestIntent(ctx)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		if latest == nil {
			return nil, domain.ErrNoIntent
		}
		intent = &latest.Intent
	}

	questions := m.svc.Elicitor.GenerateQuestions(ctx, *intent, m.session.ContextSnapshot(), nil)
	if len(questions) == 0 || latest == nil {
		return questions, nil
	}

	now := m.svc.now()
	recs := make([]domain.QuestionRecord, 0, len(questions))
	for _, q := range questions {
		recs = append(recs, domain.QuestionRecord{
			ID:        ids.New(),
			IntentID:  latest.ID,
			Item:      q,
			CreatedAt: now,
		})
	}
	if err := m.svc.Sessions.SaveQuestions(ctx, recs); err != nil {
		return questions, fmt.Errorf("save questions: %w", err)
	}
	return questions, nil
}

// AnswerQuestion records answer against the stored question with the same
// text and keeps it as session context keyed by the question.
func (m *Manager) AnswerQuestion(ctx context.Context, question, answer string) error {
	found, err := m.svc.Sessions.AnswerQuestion(ctx, m.session.ID, question, answer)
	switch {
	case err != nil:
		m.svc.Logger.Warn("answer not recorded", map[string]interface{}{"session_id": m.session.ID, "error": err.Error()})
	case !found:
		m.svc.Logger.Debug("answer for unknown question", map[string]interface{}{"session_id": m.session.ID})
	}
	return m.AddContext(ctx, question, answer)
}

// SynthesizeRequest configures SynthesizePrompt.
type SynthesizeRequest struct {
	// UserInput defaults to the session task.
	UserInput    string
	Intent       *domain.IntentResult
	OutputFormat string
	Level        domain.SpecificityLevel
	UseRAG       bool
}

// SynthesizePrompt builds the final prompt, wrapping it with the user's custom
// instructions and, when requested, related conversation history.
//
// The intent comes from req.Intent, else the latest parsed intent. When the
// session has none, a default intent (알기, MEDIUM, PARTIAL, heuristic
// confidence) is used instead of failing with ErrNoIntent; only a missing task
// is an error.
func (m *Manager) SynthesizePrompt(ctx context.Context, req SynthesizeRequest) (string, error) {
	input := req.UserInput
	if input == "" {
		input = m.session.Task
	}
	if input == "" {
		return "", domain.ErrNoTask
	}

	var intent domain.IntentResult
	switch {
	case req.Intent != nil:
		intent = *req.Intent
	default:
		latest, err := m.latestIntent(ctx)
		if err != nil {
			return "", err
		}
		if latest != nil {
			intent = latest.Intent
		} else {
			intent = domain.NewIntentResult("", "", "", nil, nil, domain.HeuristicConfidence)
		}
	}

	prompt := m.svc.Synthesizer.Synthesize(intent, m.session.ContextSnapshot(), input, req.OutputFormat, req.Level)

	if instr := m.customInstructions(ctx); instr != "" {
		prompt = fmt.Sprintf(instructionsTemplate, instr, prompt)
	}

	if req.UseRAG && m.svc.RAG != nil && m.session.UserID != "" {
		related := m.svc.RAG.GetRelevantContext(ctx, m.session.UserID, input, m.svc.ragTopK(), m.svc.ragMinSimilarity())
		if related != "" {
			prompt = fmt.Sprintf(ragTemplate, related, prompt)
			m.svc.Logger.Debug("retrieved context attached", map[string]interface{}{"session_id": m.session.ID})
		}
	}
	return prompt, nil
}

// GenerateRequest configures one final generation.
type GenerateRequest struct {
	UserInput string
	// Prompt is the synthesized prompt. When empty it is synthesized from
	// UserInput with retrieval enabled.
	Prompt            string
	Quality           domain.QualityLevel
	Entitlement       *domain.Entitlement
	PreferredModel    string
	PreferredProvider string
	UseInternet       bool
	SearchQuery       string
	MaxTokens         int
}

// GenerateResult is the outcome of Generate.
type GenerateResult struct {
	Route    domain.Route
	Prompt   string
	Response ports.GenerateResponse
	History  domain.PromptHistory
}

// Generate routes the prompt, calls the chosen provider and records the result.
// Quota is checked against the estimated prompt size before the call.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	if m.svc.Router == nil {
		return GenerateResult{}, domain.ErrProviderUnavailable
	}

	prompt := req.Prompt
	if prompt == "" {
		var err error
		prompt, err = m.SynthesizePrompt(ctx, SynthesizeRequest{UserInput: req.UserInput, UseRAG: true})
		if err != nil {
			return GenerateResult{}, err
		}
	}
	original := req.UserInput
	if original == "" {
		original = m.session.Task
	}

	route, err := m.svc.Router.Route(ctx, routing.RouteRequest{
		Task:              domain.TaskFinalGeneration,
		Quality:           req.Quality,
		Entitlement:       req.Entitlement,
		PreferredModel:    req.PreferredModel,
		PreferredProvider: req.PreferredProvider,
	})
	if err != nil {
		return GenerateResult{}, err
	}

	if req.UseInternet {
		query := req.SearchQuery
		if query == "" {
			query = original
		}
		prompt = m.svc.Router.EnhancePromptWithInternet(ctx, prompt, query, routing.DefaultEnhanceSearchTokens)
	}

	provider, err := m.svc.Router.Provider(route.Provider)
	if err != nil {
		return GenerateResult{}, err
	}

	if err := req.Entitlement.CheckQuota(int64(provider.CountTokens(prompt))); err != nil {
		return GenerateResult{}, err
	}

	resp, err := provider.Generate(ctx, ports.GenerateRequest{
		Prompt:      prompt,
		Model:       route.Model,
		Temperature: route.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return GenerateResult{}, err
	}

	quality := req.Quality
	if !quality.Valid() {
		quality = domain.QualityBalanced
	}
	model := resp.Model
	if model == "" {
		model = route.Model
	}
	hist, err := m.SavePromptHistory(ctx, HistoryInput{
		OriginalPrompt:    original,
		SynthesizedPrompt: prompt,
		Model:             model,
		Provider:          route.Provider,
		Response:          resp.Content,
		TokensUsed:        resp.TokensUsed,
		Temperature:       route.Temperature,
		Quality:           quality,
	})
	if err != nil {
		return GenerateResult{}, err
	}

	if m.svc.Usage != nil && m.session.UserID != "" && resp.TokensUsed > 0 {
		if err := m.svc.Usage.RecordUsage(ctx, m.session.UserID, resp.TokensUsed, model); err != nil {
			m.svc.Logger.Warn("usage not recorded", map[string]interface{}{"user_id": m.session.UserID, "error": err.Error()})
		}
	}

	return GenerateResult{Route: route, Prompt: prompt, Response: resp, History: hist}, nil
}

// HistoryInput is one generation to record.
type HistoryInput struct {
	OriginalPrompt    string
	SynthesizedPrompt string
	Model             string
	Provider          string
	Response          string
	TokensUsed        int
	Temperature       float64
	Quality           domain.QualityLevel
}

// SavePromptHistory writes the audit record. With a user and conversation it
// also stores both turns as messages and adds the reply to retrieval memory.
func (m *Manager) SavePromptHistory(ctx context.Context, in HistoryInput) (domain.PromptHistory, error) {
	if m.svc.History == nil {
		return domain.PromptHistory{}, fmt.Errorf("save prompt history: no history repository")
	}
	now := m.svc.now()
	h := domain.PromptHistory{
		ID:                ids.New(),
		SessionID:         m.session.ID,
		PromptHash:        domain.HashPrompt(in.SynthesizedPrompt),
		OriginalPrompt:    in.OriginalPrompt,
		SynthesizedPrompt: in.SynthesizedPrompt,
		ModelUsed:         in.Model,
		Provider:          in.Provider,
		Response:          in.Response,
		TokensUsed:        in.TokensUsed,
		Temperature:       in.Temperature,
		QualityLevel:      in.Quality,
		CreatedAt:         now,
	}
	if err := m.svc.History.SavePromptHistory(ctx, h); err != nil {
		return h, fmt.Errorf("save prompt history: %w", err)
	}

	if m.svc.Messages == nil || m.session.UserID == "" || m.session.ConversationID == "" {
		return h, nil
	}

	half := in.TokensUsed / 2
	userMsg := domain.Message{
		ID:             ids.New(),
		ConversationID: m.session.ConversationID,
		Role:           domain.RoleUser,
		Content:        in.OriginalPrompt,
		Metadata:       map[string]any{"tokens": half},
		CreatedAt:      now,
	}
	assistantMsg := domain.Message{
		ID:             ids.New(),
		ConversationID: m.session.ConversationID,
		Role:           domain.RoleAssistant,
		Content:        in.Response,
		Metadata:       map[string]any{"tokens": half, "model": in.Model, "provider": in.Provider},
		CreatedAt:      now,
	}
	for _, msg := range []domain.Message{userMsg, assistantMsg} {
		if err := m.svc.Messages.SaveMessage(ctx, msg); err != nil {
			return h, fmt.Errorf("save message: %w", err)
		}
	}

	if m.svc.RAG != nil {
		if _, err := m.svc.RAG.AddConversationToMemory(ctx, m.session.UserID, m.session.ConversationID, &assistantMsg); err != nil {
			m.svc.Logger.Warn("memory not stored", map[string]interface{}{"session_id": m.session.ID, "error": err.Error()})
		}
	}
	return h, nil
}

// AddFeedback stores feedback and bumps the matching sentiment counter.
// Unknown sentiments are stored as neutral.
func (m *Manager) AddFeedback(ctx context.Context, text string, sentiment domain.Sentiment, promptHistoryID string) (domain.Feedback, error) {
	switch sentiment {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
	default:
		sentiment = domain.SentimentNeutral
	}
	fb := domain.Feedback{
		ID:              ids.New(),
		SessionID:       m.session.ID,
		PromptHistoryID: promptHistoryID,
		Text:            text,
		Sentiment:       sentiment,
		CreatedAt:       m.svc.now(),
	}
	if err := m.svc.Sessions.SaveFeedback(ctx, fb); err != nil {
		return fb, fmt.Errorf("save feedback: %w", err)
	}

	var counter string
	switch sentiment {
	case domain.SentimentPositive:
		counter = domain.PrefPositiveFeedbackCount
	case domain.SentimentNegative:
		counter = domain.PrefNegativeFeedbackCount
	default:
		return fb, nil
	}
	n := m.session.IncrementPreference(counter)
	return fb, m.save(ctx, "feedback counted", map[string]interface{}{counter: n})
}

// Summary reports the session state and child record counts.
func (m *Manager) Summary(ctx context.Context) (domain.SessionSummary, error) {
	intents, histories, feedbacks, err := m.svc.Sessions.CountChildren(ctx, m.session.ID)
	if err != nil {
		return domain.SessionSummary{}, fmt.Errorf("count session records: %w", err)
	}
	prefs := make(map[string]any, len(m.session.UserPreferences))
	for k, v := range m.session.UserPreferences {
		prefs[k] = v
	}
	return domain.SessionSummary{
		SessionID:          m.session.ID,
		CreatedAt:          m.session.CreatedAt,
		UpdatedAt:          m.session.UpdatedAt,
		Role:               m.session.Role,
		Task:               m.session.Task,
		ContextSize:        len(m.session.Context),
		ConstraintsCount:   len(m.session.Constraints),
		IntentsCount:       intents,
		PromptHistoryCount: histories,
		FeedbacksCount:     feedbacks,
		UserPreferences:    prefs,
	}, nil
}

func (m *Manager) latestIntent(ctx context.Context) (*domain.IntentRecord, error) {
	if m.lastIntent != nil {
		return m.lastIntent, nil
	}
	rec, ok, err := m.svc.Sessions.LatestIntent(ctx, m.session.ID)
	if err != nil {
		return nil, fmt.Errorf("load latest intent: %w", err)
	}
	if !ok {
		return nil, nil
	}
	m.lastIntent = &rec
	return m.lastIntent, nil
}

func (m *Manager) customInstructions(ctx context.Context) string {
	if m.svc.Instructions == nil || m.session.UserID == "" {
		return ""
	}
	ci, ok, err := m.svc.Instructions.ActiveInstructions(ctx, m.session.UserID)
	if err != nil {
		m.svc.Logger.Warn("custom instructions unavailable", map[string]interface{}{"user_id": m.session.UserID, "error": err.Error()})
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(ci.Instructions)
}

// recentUserTurns returns the last few user messages of the conversation,
// oldest first, as parsing history.
func (m *Manager) recentUserTurns(ctx context.Context) []string {
	if m.svc.Messages == nil || m.session.ConversationID == "" {
		return nil
	}
	msgs, err := m.svc.Messages.RecentMessages(ctx, m.session.ConversationID, domain.IntentHistoryWindow*2)
	if err != nil {
		m.svc.Logger.Debug("conversation history unavailable", map[string]interface{}{"error": err.Error()})
		return nil
	}
	var turns []string
	for _, msg := range msgs {
		if msg.Role == domain.RoleUser && msg.Content != "" {
			turns = append(turns, msg.Content)
		}
	}
	if len(turns) > domain.IntentHistoryWindow {
		turns = turns[len(turns)-domain.IntentHistoryWindow:]
	}
	return turns
}
