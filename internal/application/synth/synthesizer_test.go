package synth

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/domain"
)

func TestSynthesize_AssemblesSectionsInOrder(t *testing.T) {
	s := NewSynthesizer(0, nil)
	intent := domain.NewIntentResult(domain.GoalMake, domain.SpecificityMedium, domain.CompletenessPartial,
		[]string{"Python"}, []string{"1시간 이내"}, 0.9)
	ctx := map[string]string{
		domain.ContextKeyExpertise: "고급",
		domain.ContextKeyLength:    "500자",
	}

	got := s.Synthesize(intent, ctx, "할일 앱 만들어줘", "", domain.SpecificityConcise)

	want := strings.Join([]string{
		"[역할]\n당신은 Python 창작 전문가입니다. 창의적이면서도 구조화된 결과물을 생성합니다.",
		"[작업]\n다음 요청을 생성하고 작성하세요:\n할일 앱 만들어줘",
		"[맥락]\n- 고급 사용자를 위해 심화 내용과 최적화 기법을 포함하세요\n- length: 500자",
		"[제약조건]\n- 1시간 이내\n- 길이: 500자",
		"[답변 구체성]\n3-5문장으로 요약하여 답변하세요.\n- 핵심 내용 중심\n- 간단한 예시 1개 포함 (필요시)\n- 군더더기 없이 명확하게",
		"[출력 형식]\n결과물은 구조화되고 완성도가 높아야 하며, 필요시 여러 버전을 제시하세요.",
	}, "\n\n")
	assert.Equal(t, want, got)
}

func TestSynthesize_DefaultsAndOverrides(t *testing.T) {
	s := NewSynthesizer(0, nil)
	intent := domain.NewIntentResult(domain.GoalKnow, domain.SpecificityLow, domain.CompletenessIncomplete, nil, nil, 0.3)

	got := s.Synthesize(intent, map[string]string{domain.ContextKeyPurpose: "업무용"}, "모나드란?", "JSON으로 답하세요", "bogus")
	assert.Contains(t, got, "당신은 전문 전문가입니다.")
	assert.Contains(t, got, "[맥락]\n- 요청이 추상적이므로 구체적인 예시를 포함하세요\n- 업무에 바로 적용 가능하도록 실용적으로 작성하세요")
	assert.NotContains(t, got, "[제약조건]")
	assert.Contains(t, got, "[답변 구체성]\n매우 깊이 있고 포괄적으로 답변하세요.")
	assert.True(t, strings.HasSuffix(got, "JSON으로 답하세요"))
	assert.NotContains(t, got, "[출력 형식]")

	withDomain := s.Synthesize(intent, map[string]string{domain.ContextKeyDomain: "함수형 프로그래밍"}, "모나드란?", "", domain.SpecificityShort)
	assert.Contains(t, withDomain, "당신은 함수형 프로그래밍 전문가입니다.")
	assert.NotContains(t, withDomain, "- domain:")
}

func TestOptimize_CollapsesAndDedupes(t *testing.T) {
	s := NewSynthesizer(0, nil)
	got := s.Optimize("  Hello   world\nHELLO WORLD\n\n\n\nNext  line\n\nhello world  \n")
	assert.Equal(t, "Hello world\n\nNext line", got)
}

func TestOptimize_Idempotent(t *testing.T) {
	long := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		long = append(long, fmt.Sprintf("섹션 %d\n- 항목 %d 에 대한 상세한 설명입니다", i, i))
	}
	inputs := []string{
		"",
		"단일 라인",
		"a\n\nb\n\na\n\nc",
		"Role\n\n\n\n\nrole\n  Task  \n\nTask",
		strings.Join(long, "\n\n"),
		strings.Repeat("x", 10000),
	}
	for _, budget := range []int{50, 300, 1500} {
		s := NewSynthesizer(budget, nil)
		for i, in := range inputs {
			once := s.Optimize(in)
			assert.Equal(t, once, s.Optimize(once), "budget %d input %d", budget, i)
		}
	}
}

func TestOptimize_RespectsBudget(t *testing.T) {
	sections := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		sections = append(sections, fmt.Sprintf("[섹션 %d]\n%s", i, strings.Repeat(fmt.Sprintf("내용%d ", i), 20)))
	}
	prompt := strings.Join(sections, "\n\n")
	for _, budget := range []int{100, 500, 1500} {
		s := NewSynthesizer(budget, nil)
		require.Greater(t, EstimateTokens(prompt), budget)
		out := s.Optimize(prompt)
		assert.LessOrEqual(t, EstimateTokens(out), budget, "budget %d", budget)
		assert.True(t, strings.HasPrefix(out, "[섹션 0]"), "first section survives")
	}
}

func TestOptimize_HangulCountsTowardBudget(t *testing.T) {
	head := "[역할]\n한국어 전문가"
	prompt := head + "\n\n" + strings.Repeat("가", 600)
	budget := 300

	// A rune-count/4 estimate would leave this prompt alone.
	require.Less(t, utf8.RuneCountInString(prompt)/4, budget)
	require.Greater(t, EstimateTokens(prompt), budget)

	out := NewSynthesizer(budget, nil).Optimize(prompt)
	assert.True(t, strings.HasPrefix(out, head+"\n\n"))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, EstimateTokens(out), budget)
	assert.Less(t, len(out), len(prompt))
}

func TestCompress(t *testing.T) {
	head := "[역할]\n" + strings.Repeat("a", 200)

	got := compress(head+"\n\n"+strings.Repeat("b", 500), 100)
	assert.True(t, strings.HasPrefix(got, head+"\n\n"))
	assert.True(t, strings.HasSuffix(got, "b..."))
	assert.Equal(t, 400, quarterCost(got))

	big := strings.Repeat("a", 300)
	assert.Equal(t, big, compress(big+"\n\n"+strings.Repeat("b", 500), 100))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 4, EstimateTokens("가나"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Equal(t, 3, EstimateTokens("가abcd"))
}
