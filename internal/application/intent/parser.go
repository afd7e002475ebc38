// Package intent extracts a structured IntentResult from free-form user input.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

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

const systemPrompt = `당신은 사용자의 자연어 입력에서 진짜 의도를 파악하는 전문가입니다.

사용자의 입력을 다음 3가지 차원으로 분석하세요:

1. **인지적 목표 (Cognitive Goal)**:
   - "알기": 정보 획득, 이해, 비교, 설명 요청
   - "하기": 문제 해결, 실행, 변환, 디버깅
   - "만들기": 생성, 작성, 디자인, 창작
   - "배우기": 학습, 연습, 숙달, 가이드 요청

2. **구체성 수준 (Specificity Level)**:
   - "LOW": 추상적, 모호함 ("행복", "성공" 등)
   - "MEDIUM": 범주적 ("파이썬", "마케팅" 등)
   - "HIGH": 구체적, 명확함 ("Flask 에러 500", "인스타 광고 CTR 개선" 등)

3. **완결성 (Completeness)**:
   - "INCOMPLETE": 필수 정보 크게 부족
   - "PARTIAL": 일부 정보만 있음
   - "COMPLETE": 충분한 정보 포함

또한 다음을 추출하세요:
- **primary_entities**: 핵심 키워드, 엔티티, 기술명, 도메인 용어 (배열)
- **constraints**: 명시된 제약조건 (시간, 비용, 형식, 길이 등) (배열)
- **confidence**: 분석의 신뢰도 (0.0-1.0)

반드시 다음 JSON 형식으로만 응답하세요:
{
  "cognitive_goal": "알기|하기|만들기|배우기",
  "specificity": "LOW|MEDIUM|HIGH",
  "completeness": "INCOMPLETE|PARTIAL|COMPLETE",
  "primary_entities": ["키워드1", "키워드2"],
  "constraints": ["제약1", "제약2"],
  "confidence": 0.85
}`

// missingConfidence is used when the model omits a confidence score.
const missingConfidence = 0.5

var goalKeywords = []struct {
	goal     domain.CognitiveGoal
	keywords []string
}{
	{domain.GoalMake, []string{"만들", "create", "generate", "생성", "작성"}},
	{domain.GoalDo, []string{"해결", "fix", "debug", "고치", "수정"}},
	{domain.GoalLearn, []string{"배우", "learn", "공부", "연습"}},
}

// Parser turns user input into an IntentResult, falling back to keyword
// heuristics when no model answer is usable.
type Parser struct {
	gen         JSONGenerator
	logger      ports.Logger
	concurrency int
}

// NewParser builds a parser. A nil generator makes every parse heuristic.
func NewParser(gen JSONGenerator, log ports.Logger, concurrency int) *Parser {
	if log == nil {
		log = logger.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Parser{gen: gen, logger: log, concurrency: concurrency}
}

// Parse never fails: a model error yields Heuristic(input).
func (p *Parser) Parse(ctx context.Context, input string, history []string) domain.IntentResult {
	res, err := p.ParseWithLLM(ctx, input, history)
	if err != nil {
		p.logger.Warn("intent parsing failed, using heuristic", map[string]interface{}{
			"error": err.Error(),
			"input": preview(input),
		})
		return p.Heuristic(input)
	}
	return res
}

// ParseWithLLM asks the intent-parsing model for a structured analysis.
func (p *Parser) ParseWithLLM(ctx context.Context, input string, history []string) (domain.IntentResult, error) {
	if p.gen == nil {
		return domain.IntentResult{}, domain.ErrProviderUnavailable
	}
	if strings.TrimSpace(input) == "" {
		return domain.IntentResult{}, errors.New("empty input")
	}
	raw, err := p.gen.GenerateJSON(ctx,
		routing.RouteRequest{Task: domain.TaskIntentParsing},
		ports.JSONRequest{Prompt: BuildPrompt(input, history), SystemPrompt: systemPrompt},
	)
	if err != nil {
		return domain.IntentResult{}, fmt.Errorf("parse intent: %w", err)
	}
	res := p.fromResponse(raw)
	p.logger.Info("intent parsed", map[string]interface{}{
		"goal":       string(res.CognitiveGoal),
		"confidence": res.Confidence,
	})
	return res, nil
}

// BuildPrompt renders the user turn, including the last few history entries.
func BuildPrompt(input string, history []string) string {
	parts := []string{"사용자 입력: " + input}
	if len(history) > 0 {
		start := len(history) - domain.IntentHistoryWindow
		if start < 0 {
			start = 0
		}
		lines := make([]string, 0, len(history)-start)
		for _, h := range history[start:] {
			lines = append(lines, "- "+h)
		}
		parts = append(parts, "\n대화 히스토리:\n"+strings.Join(lines, "\n"))
	}
	parts = append(parts, "\n위 입력을 분석하여 JSON 형식으로 응답하세요.")
	return strings.Join(parts, "\n")
}

func (p *Parser) fromResponse(raw map[string]any) domain.IntentResult {
	goal := domain.CognitiveGoal(llmjson.StringOr(raw, "cognitive_goal", string(domain.DefaultCognitiveGoal)))
	if !goal.Valid() {
		p.logger.Warn("invalid cognitive_goal, using default", map[string]interface{}{"value": string(goal)})
	}
	spec := domain.Specificity(strings.ToUpper(llmjson.StringOr(raw, "specificity", string(domain.DefaultSpecificity))))
	if !spec.Valid() {
		p.logger.Warn("invalid specificity, using default", map[string]interface{}{"value": string(spec)})
	}
	comp := domain.Completeness(strings.ToUpper(llmjson.StringOr(raw, "completeness", string(domain.DefaultCompleteness))))
	if !comp.Valid() {
		p.logger.Warn("invalid completeness, using default", map[string]interface{}{"value": string(comp)})
	}
	confidence, ok := llmjson.Float(raw, "confidence")
	if !ok {
		confidence = missingConfidence
	}

	res := domain.NewIntentResult(goal, spec, comp,
		llmjson.Strings(raw, "primary_entities"),
		llmjson.Strings(raw, "constraints"),
		confidence,
	)
	res.Source = domain.IntentSourceLLM
	return res
}

// Heuristic classifies input with keyword and word-count rules. Confidence is
// always domain.HeuristicConfidence.
func (p *Parser) Heuristic(input string) domain.IntentResult {
	return Heuristic(input)
}

// Heuristic is the infallible keyword classifier.
func Heuristic(input string) domain.IntentResult {
	lower := strings.ToLower(input)
	goal := domain.GoalKnow
	for _, g := range goalKeywords {
		if containsAny(lower, g.keywords) {
			goal = g.goal
			break
		}
	}

	words := len(strings.Fields(input))
	spec := domain.SpecificityLow
	switch {
	case words > 15 || strings.IndexFunc(input, unicode.IsDigit) >= 0:
		spec = domain.SpecificityHigh
	case words > 5:
		spec = domain.SpecificityMedium
	}

	comp := domain.CompletenessComplete
	switch {
	case words < 5:
		comp = domain.CompletenessIncomplete
	case words < 10:
		comp = domain.CompletenessPartial
	}

	res := domain.NewIntentResult(goal, spec, comp, nil, nil, domain.HeuristicConfidence)
	res.Source = domain.IntentSourceHeuristic
	return res
}

// BatchParse parses inputs concurrently and returns results in input order.
func (p *Parser) BatchParse(ctx context.Context, inputs []string) []domain.IntentResult {
	results := make([]domain.IntentResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			results[i] = p.Parse(gctx, in, nil)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return s
}
