// Package elicit generates the clarifying questions that fill gaps in an intent.
package elicit

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/doeshing/promptmate/internal/application/llmjson"
	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/logger"
	"github.com/doeshing/promptmate/internal/ports"
)

// JSONGenerator routes a structured generation call. *routing.Router satisfies it.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, req routing.RouteRequest, gen ports.JSONRequest) (map[string]any, error)
}

const systemPrompt = `당신은 AI가 최고의 답변을 하기 위해 필요한 정보를 파악하는 전문가입니다.

당신의 목표는 **정보 엔트로피를 최대한 줄일 수 있는** 최소한의 핵심 질문을 생성하는 것입니다.

질문 생성 원칙:
1. **정보 이득 최대화**: 각 질문은 답변의 불확실성을 크게 줄여야 함
2. **최소 질문 집합**: 3-4개 이하의 질문으로 핵심 정보 수집
3. **위계적 구조**: Universal → Intent-Specific → Domain-Specific 순서
4. **선택지 우선**: 가능하면 선택지를 제공하여 빠른 답변 유도
5. **디폴트 제공**: 합리적인 기본값 설정으로 friction 최소화

질문 유형:
- **Level 0 (Universal)**: 모든 의도에 필요 (숙련도, 목적, 제약)
- **Level 1 (Intent-Specific)**: 특정 인지적 목표에 필요
- **Level 2 (Domain-Specific)**: 특정 도메인에만 의미 있는 정보

반드시 다음 JSON 형식으로만 응답하세요:
{
  "questions": [
    {
      "text": "질문 내용",
      "priority": 1,
      "rationale": "왜 이 질문이 필요한가",
      "options": ["선택1", "선택2", "선택3"],
      "default": "선택1"
    }
  ]
}

priority는 1(최고 우선순위) ~ 5(최저 우선순위)입니다.
options는 선택지가 있을 경우에만 제공하세요.`

// topicKeywords recognizes questions about context that may already be known.
var topicKeywords = map[string][]string{
	domain.ContextKeyExpertise:        {"경험 수준", "숙련도", "expertise", "experience level", "skill level"},
	domain.ContextKeyPurpose:          {"사용 목적", "목적", "대상 사용자", "purpose"},
	domain.ContextKeyFormatPreference: {"출력 형식", "형식", "format"},
}

// Elicitor produces a short, priority-ordered list of clarifying questions.
type Elicitor struct {
	gen          JSONGenerator
	maxQuestions int
	logger       ports.Logger
}

// NewElicitor builds an elicitor. maxQuestions <= 0 uses domain.DefaultMaxQuestions.
func NewElicitor(gen JSONGenerator, maxQuestions int, log ports.Logger) *Elicitor {
	if maxQuestions <= 0 {
		maxQuestions = domain.DefaultMaxQuestions
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Elicitor{gen: gen, maxQuestions: maxQuestions, logger: log}
}

// MaxQuestions returns the configured cap.
func (e *Elicitor) MaxQuestions() int { return e.maxQuestions }

// GenerateQuestions never fails: a model error yields Fallback.
func (e *Elicitor) GenerateQuestions(ctx context.Context, intent domain.IntentResult, existing map[string]string, previous []domain.QuestionAnswer) []domain.QuestionItem {
	qs, err := e.GenerateWithLLM(ctx, intent, existing, previous)
	if err != nil {
		e.logger.Warn("question generation failed, using fallback questions", map[string]interface{}{
			"error": err.Error(),
			"goal":  string(intent.CognitiveGoal),
		})
		return e.Fallback(intent, existing)
	}
	return qs
}

// GenerateWithLLM asks the context-questions model for clarifying questions.
func (e *Elicitor) GenerateWithLLM(ctx context.Context, intent domain.IntentResult, existing map[string]string, previous []domain.QuestionAnswer) ([]domain.QuestionItem, error) {
	if e.gen == nil {
		return nil, domain.ErrProviderUnavailable
	}
	raw, err := e.gen.GenerateJSON(ctx,
		routing.RouteRequest{Task: domain.TaskContextQuestions},
		ports.JSONRequest{Prompt: e.BuildPrompt(intent, existing, previous), SystemPrompt: systemPrompt},
	)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	qs := e.postProcess(raw, existing)
	e.logger.Info("questions generated", map[string]interface{}{"count": len(qs)})
	return qs, nil
}

// BuildPrompt renders the intent, known context and previous answers.
func (e *Elicitor) BuildPrompt(intent domain.IntentResult, existing map[string]string, previous []domain.QuestionAnswer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**사용자의 의도:**\n- 인지적 목표: %s\n- 구체성: %s\n- 완결성: %s\n- 핵심 엔티티: %s\n- 제약조건: %s\n- 신뢰도: %.2f",
		intent.CognitiveGoal, intent.Specificity, intent.Completeness,
		joinOrNone(intent.PrimaryEntities), joinOrNone(intent.Constraints), intent.Confidence)

	if len(existing) > 0 {
		b.WriteString("\n\n**이미 수집된 정보:**\n")
		for _, k := range slices.Sorted(maps.Keys(existing)) {
			fmt.Fprintf(&b, "- %s: %s\n", k, existing[k])
		}
	}
	if len(previous) > 0 {
		b.WriteString("\n\n**이전 답변:**\n")
		for _, qa := range previous {
			fmt.Fprintf(&b, "- Q: %s\n  A: %s\n", qa.Question, qa.Answer)
		}
	}
	fmt.Fprintf(&b, `

위 정보를 바탕으로, AI가 최고의 답변을 하기 위해 **반드시 필요한 정보**를 수집하는 질문을 생성하세요.

- 최대 %d개의 질문만 생성
- 정보 이득이 높은 순서로 우선순위 설정
- 가능하면 선택지와 기본값 제공
- 이미 수집된 정보는 다시 묻지 마세요

JSON 형식으로 응답하세요.`, e.maxQuestions)
	return b.String()
}

func (e *Elicitor) postProcess(raw map[string]any, existing map[string]string) []domain.QuestionItem {
	items := make([]domain.QuestionItem, 0)
	for _, q := range llmjson.Objects(raw, "questions") {
		text, _ := llmjson.String(q, "text")
		rationale, _ := llmjson.String(q, "rationale")
		if text == "" || rationale == "" {
			e.logger.Warn("dropping incomplete question", map[string]interface{}{"text": text})
			continue
		}
		if topic, known := knownTopic(text, existing); known {
			e.logger.Debug("dropping question about known context", map[string]interface{}{"topic": topic})
			continue
		}
		priority, ok := llmjson.Int(q, "priority")
		if !ok {
			priority = domain.DefaultPriority
		}
		item := domain.QuestionItem{
			Text:      text,
			Priority:  domain.ClampPriority(priority),
			Rationale: rationale,
			Options:   optionList(q),
		}
		if d, ok := llmjson.String(q, "default"); ok && d != "" {
			item.Default = domain.StringPtr(d)
		}
		items = append(items, item)
	}
	domain.SortQuestions(items)
	return e.truncate(items)
}

// Fallback returns fixed questions chosen by completeness and goal, skipping
// anything already present in existing.
func (e *Elicitor) Fallback(intent domain.IntentResult, existing map[string]string) []domain.QuestionItem {
	items := make([]domain.QuestionItem, 0, 3)
	if intent.Completeness != domain.CompletenessComplete {
		if existing[domain.ContextKeyPurpose] == "" {
			items = append(items, domain.QuestionItem{
				Text:      "최종 산출물의 사용 목적과 대상 사용자는 누구인가요?",
				Priority:  1,
				Rationale: "목적과 대상을 알아야 적절한 수준과 형식으로 답변 가능",
				Options:   []string{"개인 학습용", "업무용", "발표/공유용", "기타"},
				Default:   domain.StringPtr("개인 학습용"),
			})
		}
		if existing[domain.ContextKeyExpertise] == "" {
			items = append(items, domain.QuestionItem{
				Text:      "당신의 경험 수준은 어느 정도인가요?",
				Priority:  2,
				Rationale: "경험 수준에 따라 설명의 깊이와 전문 용어 사용 조절",
				Options:   []string{"초보", "중급", "고급"},
				Default:   domain.StringPtr("중급"),
			})
		}
	}

	switch intent.CognitiveGoal {
	case domain.GoalMake:
		if existing[domain.ContextKeyFormatPreference] == "" {
			items = append(items, domain.QuestionItem{
				Text:      "선호하는 출력 형식이 있나요?",
				Priority:  2,
				Rationale: "형식을 미리 알면 재작업 시간 절약",
				Options:   []string{"Markdown", "JSON", "일반 텍스트", "HTML"},
				Default:   domain.StringPtr("Markdown"),
			})
		}
	case domain.GoalDo:
		items = append(items, domain.QuestionItem{
			Text:      "이미 시도해본 방법이 있나요?",
			Priority:  1,
			Rationale: "시도한 방법을 알면 중복을 피하고 더 나은 해결책 제시 가능",
			Options:   []string{},
		})
	}

	domain.SortQuestions(items)
	return e.truncate(items)
}

// AdaptiveFollowUp asks for further questions given the answers so far.
// Answered questions are never asked again. Failures yield an empty list.
func (e *Elicitor) AdaptiveFollowUp(ctx context.Context, original []domain.QuestionItem, answers []domain.QuestionAnswer, intent domain.IntentResult) []domain.QuestionItem {
	known := make(map[string]string, len(answers))
	for _, qa := range answers {
		known[qa.Question] = qa.Answer
	}
	qs, err := e.GenerateWithLLM(ctx, intent, known, answers)
	if err != nil {
		e.logger.Warn("follow-up generation failed", map[string]interface{}{"error": err.Error()})
		return []domain.QuestionItem{}
	}

	asked := make(map[string]bool, len(original))
	for _, q := range original {
		if _, ok := known[q.Text]; ok {
			asked[normalize(q.Text)] = true
		}
	}
	out := make([]domain.QuestionItem, 0, len(qs))
	for _, q := range qs {
		if asked[normalize(q.Text)] {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (e *Elicitor) truncate(items []domain.QuestionItem) []domain.QuestionItem {
	if len(items) > e.maxQuestions {
		return items[:e.maxQuestions]
	}
	return items
}

// knownTopic reports whether text asks about a context key that already has a value.
func knownTopic(text string, existing map[string]string) (string, bool) {
	lower := strings.ToLower(text)
	for key, words := range topicKeywords {
		if existing[key] == "" {
			continue
		}
		for _, w := range words {
			if strings.Contains(lower, w) {
				return key, true
			}
		}
	}
	return "", false
}

func optionList(q map[string]any) []string {
	if _, ok := q["options"].([]any); !ok {
		return []string{}
	}
	return llmjson.Strings(q, "options")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "없음"
	}
	return strings.Join(items, ", ")
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
