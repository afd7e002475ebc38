package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFields(t *testing.T) {
	m := map[string]any{
		"goal":     " 만들기 ",
		"entities": []any{"Python", "", 3.0, map[string]any{"x": 1}},
		"single":   "todo",
		"conf":     "0.8",
		"prio":     2.0,
		"items":    []any{map[string]any{"text": "a"}, "skip"},
	}

	s, ok := String(m, "goal")
	assert.True(t, ok)
	assert.Equal(t, "만들기", s)
	assert.Equal(t, "fallback", StringOr(m, "missing", "fallback"))

	assert.Equal(t, []string{"Python", "3"}, Strings(m, "entities"))
	assert.Equal(t, []string{"todo"}, Strings(m, "single"))
	assert.Equal(t, []string{}, Strings(m, "missing"))

	f, ok := Float(m, "conf")
	assert.True(t, ok)
	assert.InDelta(t, 0.8, f, 1e-9)
	_, ok = Float(m, "goal")
	assert.False(t, ok)

	n, ok := Int(m, "prio")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	assert.Len(t, Objects(m, "items"), 1)
	assert.Nil(t, Objects(m, "goal"))
}
