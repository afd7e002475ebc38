package synth

// EstimateTokens approximates a token count: two per Hangul syllable plus a
// quarter per other rune, never below one.
func EstimateTokens(text string) int {
	hangul, other := 0, 0
	for _, r := range text {
		if isHangulSyllable(r) {
			hangul++
		} else {
			other++
		}
	}
	n := hangul*2 + other/4
	if n < 1 {
		return 1
	}
	return n
}

// EstimateTokens is the method form of the package function.
func (s *Synthesizer) EstimateTokens(text string) int {
	return EstimateTokens(text)
}

func isHangulSyllable(r rune) bool {
	return r >= '가' && r <= '힣'
}

// runeCost is the cost of r in quarter tokens.
func runeCost(r rune) int {
	if isHangulSyllable(r) {
		return 8
	}
	return 1
}

func quarterCost(s string) int {
	n := 0
	for _, r := range s {
		n += runeCost(r)
	}
	return n
}
