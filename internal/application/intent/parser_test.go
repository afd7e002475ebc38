package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports"
	"github.com/doeshing/promptmate/internal/ports/portstest"
)

func newParser(p *portstest.StubProvider) *Parser {
	if p == nil {
		return NewParser(nil, nil, 2)
	}
	if p.ProviderName == "" {
		p.ProviderName = domain.ProviderOpenAI
	}
	if p.Models == nil {
		p.Models = []string{"gpt-5-nano"}
	}
	r := routing.NewRouter(portstest.NewRegistry(p), domain.RoutingSettings{}, nil)
	return NewParser(r, nil, 2)
}

func TestParse_TodoAppWithProvider(t *testing.T) {
	stub := &portstest.StubProvider{JSON: map[string]any{
		"cognitive_goal":   "만들기",
		"specificity":      "MEDIUM",
		"completeness":     "PARTIAL",
		"primary_entities": []any{"Python", "할일 관리 앱"},
		"constraints":      []any{},
		"confidence":       0.85,
	}}
	p := newParser(stub)

	res := p.Parse(context.Background(), "파이썬으로 할일 관리 앱 만들어줘", nil)
	assert.Equal(t, domain.GoalMake, res.CognitiveGoal)
	assert.Contains(t, res.PrimaryEntities, "Python")
	assert.Equal(t, domain.IntentSourceLLM, res.Source)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)

	require.Len(t, stub.JSONCalls, 1)
	call := stub.JSONCalls[0]
	assert.Equal(t, "gpt-5-nano", call.Model)
	assert.InDelta(t, 0.3, call.Temperature, 1e-9)
	assert.Contains(t, call.SystemPrompt, "인지적 목표")
	assert.True(t, strings.HasPrefix(call.Prompt, "사용자 입력: 파이썬으로 할일 관리 앱 만들어줘"))
}

func TestParse_TodoAppHeuristicFallback(t *testing.T) {
	for name, p := range map[string]*Parser{
		"no provider":   newParser(nil),
		"provider down": newParser(&portstest.StubProvider{Err: errors.New("503")}),
	} {
		t.Run(name, func(t *testing.T) {
			res := p.Parse(context.Background(), "파이썬으로 할일 관리 앱 만들어줘", nil)
			assert.Equal(t, domain.GoalMake, res.CognitiveGoal)
			assert.InDelta(t, 0.3, res.Confidence, 1e-9)
			assert.Equal(t, domain.IntentSourceHeuristic, res.Source)
		})
	}
}

func TestParse_MalformedOutputIsNormalized(t *testing.T) {
	stub := &portstest.StubProvider{JSON: map[string]any{
		"cognitive_goal": "dance",
		"specificity":    "EXTREME",
		"completeness":   42.0,
		"confidence":     7.5,
	}}
	res := newParser(stub).Parse(context.Background(), "뭔가 해줘", nil)
	assert.Equal(t, domain.GoalKnow, res.CognitiveGoal)
	assert.Equal(t, domain.SpecificityMedium, res.Specificity)
	assert.Equal(t, domain.CompletenessPartial, res.Completeness)
	assert.Equal(t, 1.0, res.Confidence)
	assert.NotNil(t, res.PrimaryEntities)
	assert.NotNil(t, res.Constraints)
}

func TestParse_MissingConfidence(t *testing.T) {
	stub := &portstest.StubProvider{JSON: map[string]any{"cognitive_goal": "배우기"}}
	res := newParser(stub).Parse(context.Background(), "Go 배우고 싶어", nil)
	assert.Equal(t, domain.GoalLearn, res.CognitiveGoal)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
}

func TestBuildPrompt_KeepsLastThreeHistoryEntries(t *testing.T) {
	got := BuildPrompt("질문", []string{"a", "b", "c", "d"})
	assert.Equal(t, "사용자 입력: 질문\n\n대화 히스토리:\n- b\n- c\n- d\n\n위 입력을 분석하여 JSON 형식으로 응답하세요.", got)
	assert.Equal(t, "사용자 입력: 질문\n\n위 입력을 분석하여 JSON 형식으로 응답하세요.", BuildPrompt("질문", nil))
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		in   string
		goal domain.CognitiveGoal
		spec domain.Specificity
		comp domain.Completeness
	}{
		{"fix this", domain.GoalDo, domain.SpecificityLow, domain.CompletenessIncomplete},
		{"I want to learn Go generics in depth today", domain.GoalLearn, domain.SpecificityMedium, domain.CompletenessPartial},
		{"what is a monad", domain.GoalKnow, domain.SpecificityLow, domain.CompletenessIncomplete},
		{"Flask 500", domain.GoalKnow, domain.SpecificityHigh, domain.CompletenessIncomplete},
		{"please Generate a long and detailed report about the history of distributed consensus", domain.GoalMake, domain.SpecificityMedium, domain.CompletenessComplete},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res := Heuristic(tt.in)
			assert.Equal(t, tt.goal, res.CognitiveGoal)
			assert.Equal(t, tt.spec, res.Specificity)
			assert.Equal(t, tt.comp, res.Completeness)
			assert.Equal(t, domain.HeuristicConfidence, res.Confidence)
			assert.Empty(t, res.PrimaryEntities)
		})
	}
}

func TestBatchParse_PreservesOrder(t *testing.T) {
	stub := &portstest.StubProvider{JSONFunc: func(req ports.JSONRequest) (map[string]any, error) {
		if strings.Contains(req.Prompt, "fail") {
			return nil, errors.New("boom")
		}
		return map[string]any{"cognitive_goal": "하기", "confidence": 0.9}, nil
	}}
	p := newParser(stub)

	inputs := []string{"one", "fail create", "three", "four", "fail learn"}
	got := p.BatchParse(context.Background(), inputs)
	require.Len(t, got, len(inputs))
	assert.Equal(t, domain.GoalDo, got[0].CognitiveGoal)
	assert.Equal(t, domain.GoalMake, got[1].CognitiveGoal)
	assert.Equal(t, domain.IntentSourceHeuristic, got[1].Source)
	assert.Equal(t, domain.GoalDo, got[2].CognitiveGoal)
	assert.Equal(t, domain.GoalLearn, got[4].CognitiveGoal)
}
