package routing

import "github.com/doeshing/promptmate/internal/domain"

// ComplexitySignals are the inputs to CalculateComplexity.
type ComplexitySignals struct {
	Prompt             string
	ContextLength      int
	RequiresReasoning  bool
	RequiresCreativity bool
	RequiresPrecision  bool
}

// NewComplexitySignals returns signals for prompt with precision required,
// which is the usual case.
func NewComplexitySignals(prompt string) ComplexitySignals {
	return ComplexitySignals{Prompt: prompt, RequiresPrecision: true}
}

// CalculateComplexity scores a request and maps the score onto a quality tier.
// Prompt length is approximated as len/4 tokens.
func CalculateComplexity(s ComplexitySignals) domain.QualityLevel {
	score := 0

	tokens := len(s.Prompt) / 4
	switch {
	case tokens > 2000:
		score += 3
	case tokens > 1000:
		score += 2
	case tokens > 500:
		score++
	}

	switch {
	case s.ContextLength > 10000:
		score += 2
	case s.ContextLength > 5000:
		score++
	}

	if s.RequiresReasoning {
		score += 2
	}
	if s.RequiresCreativity {
		score++
	}
	if s.RequiresPrecision {
		score++
	}

	switch {
	case score >= 6:
		return domain.QualityHigh
	case score >= 3:
		return domain.QualityBalanced
	}
	return domain.QualityLow
}

// CalculateComplexity is the method form of the package function.
func (r *Router) CalculateComplexity(s ComplexitySignals) domain.QualityLevel {
	return CalculateComplexity(s)
}
