package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/ports"
)

const chatCompletionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "%s",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
}`

type capturedRequest struct {
	path string
	body map[string]any
}

func chatServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&captured.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func testConfig(srv *httptest.Server) ClientConfig {
	return ClientConfig{APIKey: "test-key", BaseURL: srv.URL + "/", MaxRetries: 0}
}

func TestOpenAIProvider_Generate(t *testing.T) {
	srv, captured := chatServer(t, http.StatusOK, jsonf(chatCompletionBody, "gpt-4o", "안녕하세요"))
	p, err := NewOpenAIProvider(testConfig(srv))
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), ports.GenerateRequest{
		Prompt:       "hello",
		SystemPrompt: "be brief",
		Model:        "gpt-4o",
		Temperature:  0.8,
		MaxTokens:    100,
	})
	require.NoError(t, err)

	assert.Equal(t, "안녕하세요", resp.Content)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, 5, resp.TokensUsed)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "/chat/completions", captured.path)
	assert.Equal(t, 0.8, captured.body["temperature"])
	assert.Len(t, captured.body["messages"], 2)
}

func TestOpenAIProvider_FixedTemperatureModelsOmitTemperature(t *testing.T) {
	srv, captured := chatServer(t, http.StatusOK, jsonf(chatCompletionBody, "gpt-5-nano", "{\"ok\": true}"))
	p, err := NewOpenAIProvider(testConfig(srv))
	require.NoError(t, err)

	out, err := p.GenerateJSON(context.Background(), ports.JSONRequest{Prompt: "x", Model: "gpt-5-nano", Temperature: 0.3})
	require.NoError(t, err)

	assert.Equal(t, true, out["ok"])
	assert.NotContains(t, captured.body, "temperature")
	format, ok := captured.body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])

	messages := captured.body["messages"].([]any)
	system := messages[0].(map[string]any)
	assert.Equal(t, jsonSystemDefault, system["content"])
}

func TestOpenAIProvider_UnknownModel(t *testing.T) {
	srv, captured := chatServer(t, http.StatusOK, "{}")
	p, err := NewOpenAIProvider(testConfig(srv))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), ports.GenerateRequest{Prompt: "x", Model: "gpt-3"})
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
	assert.Empty(t, captured.path)
}

func TestOpenAIProvider_RateLimit(t *testing.T) {
	srv, _ := chatServer(t, http.StatusTooManyRequests, `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`)
	p, err := NewOpenAIProvider(testConfig(srv))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), ports.GenerateRequest{Prompt: "x", Model: "gpt-4o"})
	assert.ErrorIs(t, err, domain.ErrRateLimitExceeded)

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderOpenAI, pe.Provider)
}

func TestOpenAIProvider_UnparseableJSON(t *testing.T) {
	srv, _ := chatServer(t, http.StatusOK, jsonf(chatCompletionBody, "gpt-4o", "sorry, no json here"))
	p, err := NewOpenAIProvider(testConfig(srv))
	require.NoError(t, err)

	_, err = p.GenerateJSON(context.Background(), ports.JSONRequest{Prompt: "x", Model: "gpt-4o"})
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestPerplexityProvider_SearchInternet(t *testing.T) {
	srv, captured := chatServer(t, http.StatusOK, jsonf(chatCompletionBody, "sonar", "오늘의 뉴스"))
	p, err := NewPerplexityProvider(testConfig(srv))
	require.NoError(t, err)

	content, err := p.SearchInternet(context.Background(), "news", 0)
	require.NoError(t, err)

	assert.Equal(t, "오늘의 뉴스", content)
	assert.Equal(t, "sonar", captured.body["model"])
	assert.Equal(t, 0.2, captured.body["temperature"])
	assert.Equal(t, float64(domain.SearchMaxTokens), captured.body["max_tokens"])
	messages := captured.body["messages"].([]any)
	assert.Equal(t, searchSystemPrompt, messages[0].(map[string]any)["content"])
}

func TestAnthropicProvider_GenerateJSON(t *testing.T) {
	body := `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-haiku-20241022",
  "content": [{"type": "text", "text": "` + "```json\\n{\\\"goal\\\": \\\"알기\\\"}\\n```" + `"}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 3, "output_tokens": 4}
}`
	srv, captured := chatServer(t, http.StatusOK, body)
	p, err := NewAnthropicProvider(testConfig(srv))
	require.NoError(t, err)

	out, err := p.GenerateJSON(context.Background(), ports.JSONRequest{Prompt: "x", SystemPrompt: "sys", Temperature: 0.3})
	require.NoError(t, err)

	assert.Equal(t, "알기", out["goal"])
	assert.Equal(t, "/v1/messages", captured.path)
	assert.Equal(t, defaultAnthropicModel, captured.body["model"])
	system := captured.body["system"].([]any)
	assert.Equal(t, "sys"+jsonSystemSuffix, system[0].(map[string]any)["text"])
}

func TestAnthropicProvider_Generate(t *testing.T) {
	body := `{"id":"msg_2","type":"message","role":"assistant","model":"claude-3-5-sonnet-20241022",
"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}],
"stop_reason":"max_tokens","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":5}}`
	srv, _ := chatServer(t, http.StatusOK, body)
	p, err := NewAnthropicProvider(testConfig(srv))
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), ports.GenerateRequest{Prompt: "x", Model: "claude-3-5-sonnet-20241022"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Content)
	assert.Equal(t, 15, resp.TokensUsed)
	assert.Equal(t, "max_tokens", resp.FinishReason)
}

const geminiBody = `{
  "candidates": [{"content": {"role": "model", "parts": [{"text": %q}]}, "finishReason": "STOP", "index": 0}],
  "usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 4, "totalTokenCount": 7}
}`

func TestGoogleProvider_Generate(t *testing.T) {
	srv, captured := chatServer(t, http.StatusOK, fmt.Sprintf(geminiBody, "안녕하세요"))
	p, err := NewGoogleProvider(context.Background(), testConfig(srv))
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), ports.GenerateRequest{
		Prompt:       "hello",
		SystemPrompt: "be brief",
		Temperature:  0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "안녕하세요", resp.Content)
	assert.Equal(t, defaultGoogleModel, resp.Model)
	assert.Equal(t, 7, resp.TokensUsed)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Contains(t, captured.path, "models/"+defaultGoogleModel+":generateContent")
	assert.Contains(t, captured.body, "contents")
	assert.Contains(t, captured.body, "systemInstruction")
}

func TestGoogleProvider_GenerateJSONCoercesFencedReply(t *testing.T) {
	reply := "```json\n{\"goal\": \"하기\", \"confidence\": 0.8}\n```"
	srv, captured := chatServer(t, http.StatusOK, fmt.Sprintf(geminiBody, reply))
	p, err := NewGoogleProvider(context.Background(), testConfig(srv))
	require.NoError(t, err)

	out, err := p.GenerateJSON(context.Background(), ports.JSONRequest{Prompt: "x", Model: "gemini-1.5-pro"})
	require.NoError(t, err)

	assert.Equal(t, "하기", out["goal"])
	assert.Equal(t, 0.8, out["confidence"])
	assert.Contains(t, captured.path, "models/gemini-1.5-pro:generateContent")
	raw, err := json.Marshal(captured.body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "application/json")
}

func TestGoogleProvider_RateLimit(t *testing.T) {
	srv, _ := chatServer(t, http.StatusTooManyRequests,
		`{"error": {"code": 429, "message": "Resource has been exhausted (e.g. check quota).", "status": "RESOURCE_EXHAUSTED"}}`)
	p, err := NewGoogleProvider(context.Background(), testConfig(srv))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), ports.GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrRateLimitExceeded)

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderGoogle, pe.Provider)
	assert.Equal(t, defaultGoogleModel, pe.Model)
}

func TestOpenAIProvider_BadKeyIsAuthFailure(t *testing.T) {
	srv, _ := chatServer(t, http.StatusUnauthorized,
		`{"error": {"message": "Incorrect API key provided: invalid api key", "type": "invalid_request_error", "code": "invalid_api_key"}}`)
	p, err := NewOpenAIProvider(testConfig(srv))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), ports.GenerateRequest{Prompt: "x", Model: "gpt-4o"})
	assert.ErrorIs(t, err, domain.ErrProviderAuth)
	assert.NotErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		msg    string
		want   error
	}{
		{"unauthorized invalid key", http.StatusUnauthorized, "Incorrect API key provided: invalid api key", domain.ErrProviderAuth},
		{"forbidden invalid x-api-key", http.StatusForbidden, "invalid x-api-key", domain.ErrProviderAuth},
		{"too many requests", http.StatusTooManyRequests, "slow down", domain.ErrRateLimitExceeded},
		{"quota message", 0, "quota exceeded for project", domain.ErrRateLimitExceeded},
		{"unknown model", http.StatusNotFound, "The model `gpt-9` does not exist", domain.ErrModelNotFound},
		{"bad request invalid", http.StatusBadRequest, "invalid request body", domain.ErrInvalidResponse},
		{"no status invalid", 0, "invalid character 'x' looking for beginning of value", domain.ErrInvalidResponse},
		{"server error mentioning invalid", http.StatusInternalServerError, "invalid upstream state", domain.ErrProvider},
		{"bad gateway", http.StatusBadGateway, "bad gateway", domain.ErrProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.status, tt.msg))
		})
	}
}

func TestCatalogs_CoverRoutingTables(t *testing.T) {
	settings := routing.DefaultSettings()
	openAI := Models(domain.ProviderOpenAI)

	var strategies []domain.ModelStrategy
	for _, ms := range settings.TaskStrategies {
		strategies = append(strategies, ms)
	}
	for _, ms := range settings.QualityStrategies {
		strategies = append(strategies, ms)
	}
	for _, ms := range settings.ModelStrategies {
		strategies = append(strategies, ms)
	}
	for _, ms := range strategies {
		require.Equal(t, domain.ProviderOpenAI, ms.Provider)
		assert.Contains(t, openAI, ms.Model)
	}

	var all []string
	for _, kind := range []string{domain.ProviderOpenAI, domain.ProviderAnthropic, domain.ProviderGoogle, domain.ProviderPerplexity} {
		all = append(all, Models(kind)...)
	}
	for key, prefs := range settings.FallbackPreference {
		for _, m := range prefs {
			assert.Contains(t, all, m, "fallback list %s", key)
		}
	}
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(ClientConfig{})
	assert.Error(t, err)
	_, err = NewAnthropicProvider(ClientConfig{})
	assert.Error(t, err)
	_, err = NewPerplexityProvider(ClientConfig{})
	assert.Error(t, err)
	_, err = NewGoogleProvider(context.Background(), ClientConfig{})
	assert.Error(t, err)
}

func jsonf(format string, model string, content string) string {
	return fmt.Sprintf(format, model, content)
}
