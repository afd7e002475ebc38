package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doeshing/promptmate/internal/domain"
)

const (
	jsonUserInstruction = "\n\n반드시 유효한 JSON 형식으로만 응답하세요. 다른 텍스트는 포함하지 마세요."
	jsonSystemSuffix    = "\n\n당신은 항상 JSON 형식으로 응답합니다."
	jsonSystemDefault   = "당신은 JSON 형식으로 응답하는 AI 어시스턴트입니다."
	invalidSnippetRunes = 200
)

// withJSONInstructions appends the JSON-only instruction to both prompts.
func withJSONInstructions(prompt, system string) (string, string) {
	if system == "" {
		system = jsonSystemDefault
	} else {
		system += jsonSystemSuffix
	}
	return prompt + jsonUserInstruction, system
}

// CoerceJSON turns raw model output into a JSON object. It strips markdown
// fences, tries a direct parse, then falls back to the outermost {...} span.
func CoerceJSON(raw string) (map[string]any, error) {
	text := stripFences(strings.TrimSpace(raw))

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil && out != nil {
		return out, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil && out != nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: json parse failed: %s", domain.ErrInvalidResponse, snippet(raw, invalidSnippetRunes))
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop the language tag line (```json)
		text = text[nl+1:]
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
