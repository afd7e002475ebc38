package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/domain"
)

func TestCoerceJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantErr bool
	}{
		{name: "plain object", raw: `{"a": 1}`, wantKey: "a"},
		{name: "json fence", raw: "```json\n{\"a\": 1}\n```", wantKey: "a"},
		{name: "bare fence", raw: "```\n{\"b\": 2}\n```", wantKey: "b"},
		{name: "surrounding prose", raw: "Here you go: {\"c\": {\"d\": 1}} hope it helps", wantKey: "c"},
		{name: "no object", raw: "I cannot help with that", wantErr: true},
		{name: "array is not an object", raw: "[1,2,3]", wantErr: true},
		{name: "broken braces", raw: "{\"a\": ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := CoerceJSON(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.wantKey)
		})
	}
}

func TestWithJSONInstructions(t *testing.T) {
	prompt, system := withJSONInstructions("p", "")
	assert.Equal(t, "p"+jsonUserInstruction, prompt)
	assert.Equal(t, jsonSystemDefault, system)

	_, system = withJSONInstructions("p", "sys")
	assert.Equal(t, "sys"+jsonSystemSuffix, system)
}

func TestCountTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcdefgh", 2},
		{"안녕", 4},
		{"안녕 hello", 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountTokens(tt.text), tt.text)
	}
}

func TestCatalog_ResolveModel(t *testing.T) {
	c := newCatalog(domain.ProviderGoogle, googleModels, nil, "")
	m, err := c.resolveModel("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", m)

	c = newCatalog(domain.ProviderGoogle, googleModels, nil, defaultGoogleModel)
	m, err = c.resolveModel("")
	require.NoError(t, err)
	assert.Equal(t, defaultGoogleModel, m)

	_, err = c.resolveModel("gpt-4o")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)

	models := c.AvailableModels()
	models[0] = "mutated"
	assert.Equal(t, "gemini-1.5-pro", c.AvailableModels()[0])
}
