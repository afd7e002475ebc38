// Package synth assembles a structured prompt from an intent and collected context.
//
// A prompt has up to six sections (role, task, context, constraints,
// verbosity, output format) joined by blank lines, then optimized to fit a
// token budget. Token counts are the Hangul-aware approximation in
// EstimateTokens, not a real tokenizer.
package synth

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/logger"
	"github.com/doeshing/promptmate/internal/ports"
)

const (
	sectionSeparator = "\n\n"
	ellipsis         = "..."
	// minTruncatedRunes is the shortest truncated section worth keeping.
	minTruncatedRunes = 100
)

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(` +`)
)

// Synthesizer builds and optimizes prompts.
type Synthesizer struct {
	tokenBudget int
	logger      ports.Logger
}

// NewSynthesizer builds a synthesizer. tokenBudget <= 0 uses domain.DefaultTokenBudget.
func NewSynthesizer(tokenBudget int, log ports.Logger) *Synthesizer {
	if tokenBudget <= 0 {
		tokenBudget = domain.DefaultTokenBudget
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Synthesizer{tokenBudget: tokenBudget, logger: log}
}

// TokenBudget returns the configured budget.
func (s *Synthesizer) TokenBudget() int { return s.tokenBudget }

// Synthesize assembles and optimizes a prompt. An empty outputFormat selects the
// goal's default format section; an invalid level selects "매우 구체적".
func (s *Synthesizer) Synthesize(intent domain.IntentResult, context map[string]string, userInput, outputFormat string, level domain.SpecificityLevel) string {
	if !level.Valid() {
		level = domain.SpecificityVeryDetailed
	}
	format := outputFormat
	if format == "" {
		format = formatSection(intent)
	}

	sections := []string{
		"[역할]\n" + role(intent, context),
		"[작업]\n" + task(intent, userInput),
		contextSection(intent, context),
		constraintsSection(intent, context),
		"[답변 구체성]\n" + specificityInstructions[level],
		format,
	}
	prompt := strings.Join(slices.DeleteFunc(sections, func(sec string) bool { return sec == "" }), sectionSeparator)

	out := s.Optimize(prompt)
	s.logger.Info("prompt synthesized", map[string]interface{}{
		"goal":   string(intent.CognitiveGoal),
		"chars":  len([]rune(out)),
		"tokens": EstimateTokens(out),
	})
	return out
}

func role(intent domain.IntentResult, context map[string]string) string {
	tmpl, ok := roleTemplates[intent.CognitiveGoal]
	if !ok {
		tmpl = roleTemplates[domain.GoalKnow]
	}
	d := intent.Domain()
	if d == "" {
		d = context[domain.ContextKeyDomain]
	}
	if d == "" {
		d = defaultDomain
	}
	return fmt.Sprintf(tmpl, d)
}

func task(intent domain.IntentResult, userInput string) string {
	verb, ok := taskVerbs[intent.CognitiveGoal]
	if !ok {
		verb = "처리하세요"
	}
	return fmt.Sprintf("다음 요청을 %s:\n%s", verb, userInput)
}

func contextSection(intent domain.IntentResult, context map[string]string) string {
	var lines []string
	if intent.Specificity == domain.SpecificityLow {
		lines = append(lines, "- 요청이 추상적이므로 구체적인 예시를 포함하세요")
	}
	if g, ok := expertiseGuidance[context[domain.ContextKeyExpertise]]; ok {
		lines = append(lines, "- "+g)
	}
	if g, ok := purposeGuidance[context[domain.ContextKeyPurpose]]; ok {
		lines = append(lines, "- "+g)
	}
	for _, k := range slices.Sorted(maps.Keys(context)) {
		switch k {
		case domain.ContextKeyExpertise, domain.ContextKeyPurpose, domain.ContextKeyDomain:
			continue
		}
		if v := context[k]; v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", k, v))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "[맥락]\n" + strings.Join(lines, "\n")
}

func constraintsSection(intent domain.IntentResult, context map[string]string) string {
	constraints := slices.Clone(intent.Constraints)
	if v := context[domain.ContextKeyLength]; v != "" {
		constraints = append(constraints, "길이: "+v)
	}
	if v := context[domain.ContextKeyTimeLimit]; v != "" {
		constraints = append(constraints, "시간 제한: "+v)
	}
	if v := context[domain.ContextKeyFormatPreference]; v != "" {
		constraints = append(constraints, "형식: "+v)
	}
	if len(constraints) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[제약조건]")
	for _, c := range constraints {
		b.WriteString("\n- ")
		b.WriteString(c)
	}
	return b.String()
}

func formatSection(intent domain.IntentResult) string {
	t, ok := formatTemplates[intent.CognitiveGoal]
	if !ok {
		return ""
	}
	return "[출력 형식]\n" + t
}

// Optimize collapses whitespace, removes case-insensitive duplicate lines and
// compresses the result when it exceeds the token budget. Optimize is
// idempotent.
func (s *Synthesizer) Optimize(prompt string) string {
	out := collapse(prompt)
	out = dedupeLines(out)
	out = strings.TrimSpace(collapse(out))

	if tokens := EstimateTokens(out); tokens > s.tokenBudget {
		s.logger.Warn("prompt over token budget, compressing", map[string]interface{}{
			"tokens": tokens,
			"budget": s.tokenBudget,
		})
		out = strings.TrimSpace(compress(out, s.tokenBudget))
	}
	return out
}

func collapse(s string) string {
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return multiSpace.ReplaceAllString(s, " ")
}

// dedupeLines drops repeated non-blank lines, comparing trimmed, case-folded text.
// Blank lines are kept.
func dedupeLines(s string) string {
	fold := cases.Fold()
	lines := strings.Split(s, "\n")
	seen := make(map[string]struct{}, len(lines))
	out := lines[:0]
	for _, line := range lines {
		key := fold.String(strings.TrimSpace(line))
		if key == "" {
			out = append(out, line)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// compress keeps whole sections in assembly order while they fit, then
// truncates the first overflowing section and drops the rest. Costs are counted
// in quarter tokens so the result never exceeds budget.
func compress(prompt string, budget int) string {
	limit := budget * 4
	sep := quarterCost(sectionSeparator)
	used := 0
	var kept []string

	for i, section := range strings.Split(prompt, sectionSeparator) {
		join := 0
		if i > 0 {
			join = sep
		}
		cost := quarterCost(section)
		if used+join+cost <= limit {
			kept = append(kept, section)
			used += join + cost
			continue
		}
		remaining := limit - used - join - quarterCost(ellipsis)
		if prefix := prefixWithin(section, remaining); len([]rune(prefix)) >= minTruncatedRunes {
			kept = append(kept, prefix+ellipsis)
		}
		break
	}
	return strings.Join(kept, sectionSeparator)
}

// prefixWithin returns the longest rune prefix of s whose quarter cost fits in limit.
func prefixWithin(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	used := 0
	for i, r := range s {
		c := runeCost(r)
		if used+c > limit {
			return s[:i]
		}
		used += c
	}
	return s
}
