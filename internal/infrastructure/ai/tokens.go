package ai

// CountTokens approximates token usage for mixed Korean/Latin text:
// two tokens per Hangul syllable plus one per four other characters, minimum one.
func CountTokens(text string) int {
	hangul, other := 0, 0
	for _, r := range text {
		if r >= '가' && r <= '힣' {
			hangul++
			continue
		}
		other++
	}
	n := hangul*2 + other/4
	if n < 1 {
		return 1
	}
	return n
}
