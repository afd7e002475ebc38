package elicit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports/portstest"
)

func newElicitor(stub *portstest.StubProvider, max int) *Elicitor {
	if stub == nil {
		return NewElicitor(nil, max, nil)
	}
	stub.ProviderName = domain.ProviderOpenAI
	stub.Models = []string{"gpt-5-nano"}
	r := routing.NewRouter(portstest.NewRegistry(stub), domain.RoutingSettings{}, nil)
	return NewElicitor(r, max, nil)
}

func question(text string, priority float64) map[string]any {
	return map[string]any{"text": text, "priority": priority, "rationale": "why", "options": []any{"a", "b"}, "default": "a"}
}

func makeIntent(comp domain.Completeness) domain.IntentResult {
	return domain.NewIntentResult(domain.GoalMake, domain.SpecificityMedium, comp, []string{"Python"}, nil, 0.8)
}

func assertWellFormed(t *testing.T, qs []domain.QuestionItem, max int) {
	t.Helper()
	assert.LessOrEqual(t, len(qs), max)
	for i, q := range qs {
		assert.NotEmpty(t, q.Text)
		assert.NotEmpty(t, q.Rationale)
		assert.GreaterOrEqual(t, q.Priority, 1)
		assert.LessOrEqual(t, q.Priority, 5)
		if i > 0 {
			assert.LessOrEqual(t, qs[i-1].Priority, q.Priority)
		}
	}
}

func TestGenerateQuestions_PostProcessing(t *testing.T) {
	stub := &portstest.StubProvider{JSON: map[string]any{"questions": []any{
		question("어떤 플랫폼에서 실행하나요?", 4),
		question("데이터는 어디에 저장할까요?", 9),
		map[string]any{"text": "근거 없는 질문", "priority": 1.0},
		question("GUI가 필요한가요?", 0),
		question("마감 기한이 있나요?", 2),
		question("테스트 코드도 필요한가요?", 3),
	}}}
	e := newElicitor(stub, 3)

	qs := e.GenerateQuestions(context.Background(), makeIntent(domain.CompletenessPartial), nil, nil)
	assertWellFormed(t, qs, 3)
	require.Len(t, qs, 3)
	assert.Equal(t, "GUI가 필요한가요?", qs[0].Text)
	assert.Equal(t, 1, qs[0].Priority)
	assert.Equal(t, "마감 기한이 있나요?", qs[1].Text)
	assert.Equal(t, []string{"a", "b"}, qs[0].Options)
	require.NotNil(t, qs[0].Default)
	assert.Equal(t, "a", *qs[0].Default)

	require.Len(t, stub.JSONCalls, 1)
	assert.Contains(t, stub.JSONCalls[0].Prompt, "최대 3개의 질문만 생성")
	assert.InDelta(t, 0.4, stub.JSONCalls[0].Temperature, 1e-9)
}

func TestGenerateQuestions_SkipsKnownExpertise(t *testing.T) {
	stub := &portstest.StubProvider{JSON: map[string]any{"questions": []any{
		question("당신의 경험 수준은 어느 정도인가요?", 1),
		question("어떤 기능이 꼭 필요한가요?", 2),
	}}}
	existing := map[string]string{domain.ContextKeyExpertise: "고급"}

	qs := newElicitor(stub, 4).GenerateQuestions(context.Background(), makeIntent(domain.CompletenessIncomplete), existing, nil)
	require.Len(t, qs, 1)
	assert.Equal(t, "어떤 기능이 꼭 필요한가요?", qs[0].Text)
	assert.Contains(t, stub.JSONCalls[0].Prompt, "- expertise_level: 고급")

	fallback := newElicitor(nil, 4).GenerateQuestions(context.Background(), makeIntent(domain.CompletenessIncomplete), existing, nil)
	for _, q := range fallback {
		assert.NotContains(t, q.Text, "경험 수준")
	}
	assertWellFormed(t, fallback, 4)
}

func TestFallback(t *testing.T) {
	e := newElicitor(nil, 4)

	qs := e.Fallback(makeIntent(domain.CompletenessPartial), nil)
	require.Len(t, qs, 3)
	assert.Equal(t, "최종 산출물의 사용 목적과 대상 사용자는 누구인가요?", qs[0].Text)
	assert.Equal(t, "당신의 경험 수준은 어느 정도인가요?", qs[1].Text)
	assert.Equal(t, "선호하는 출력 형식이 있나요?", qs[2].Text)
	assertWellFormed(t, qs, 4)

	do := domain.NewIntentResult(domain.GoalDo, domain.SpecificityHigh, domain.CompletenessComplete, nil, nil, 0.3)
	qs = e.Fallback(do, nil)
	require.Len(t, qs, 1)
	assert.Equal(t, "이미 시도해본 방법이 있나요?", qs[0].Text)
	assert.Nil(t, qs[0].Default)

	know := domain.NewIntentResult(domain.GoalKnow, domain.SpecificityHigh, domain.CompletenessComplete, nil, nil, 0.3)
	assert.Empty(t, e.Fallback(know, nil))

	assert.Len(t, newElicitor(nil, 1).Fallback(makeIntent(domain.CompletenessPartial), nil), 1)
}

func TestGenerateQuestions_ProviderErrorFallsBack(t *testing.T) {
	stub := &portstest.StubProvider{Err: errors.New("timeout")}
	qs := newElicitor(stub, 4).GenerateQuestions(context.Background(), makeIntent(domain.CompletenessPartial), nil, nil)
	assert.Len(t, qs, 3)
}

func TestAdaptiveFollowUp(t *testing.T) {
	stub := &portstest.StubProvider{JSON: map[string]any{"questions": []any{
		question("선호하는 출력 형식이 있나요?", 1),
		question("배포 환경은 어디인가요?", 2),
	}}}
	e := newElicitor(stub, 4)
	original := []domain.QuestionItem{{Text: "선호하는 출력 형식이 있나요?", Priority: 2, Rationale: "r"}}
	answers := []domain.QuestionAnswer{{Question: "선호하는 출력 형식이 있나요?", Answer: "JSON"}}

	qs := e.AdaptiveFollowUp(context.Background(), original, answers, makeIntent(domain.CompletenessPartial))
	require.Len(t, qs, 1)
	assert.Equal(t, "배포 환경은 어디인가요?", qs[0].Text)
	assert.True(t, strings.Contains(stub.JSONCalls[0].Prompt, "- Q: 선호하는 출력 형식이 있나요?\n  A: JSON"))

	failing := newElicitor(&portstest.StubProvider{Err: errors.New("down")}, 4)
	got := failing.AdaptiveFollowUp(context.Background(), original, answers, makeIntent(domain.CompletenessPartial))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
