package routing

import (
	"context"
	"fmt"
)

// DefaultEnhanceSearchTokens caps the search content folded into a prompt.
const DefaultEnhanceSearchTokens = 800

const internetPromptTemplate = `[인터넷 검색 정보]
다음은 최신 웹 검색 결과입니다:

%s

[원본 요청]
%s

위 검색 정보를 참고하여 답변해주세요. 검색 결과에 나온 최신 정보를 활용하되, 
부정확한 정보는 걸러내고 신뢰할 수 있는 내용만 사용하세요.
`

// SearchInternet runs query through the registered web searcher.
func (r *Router) SearchInternet(ctx context.Context, query string, maxTokens int) (string, error) {
	if r.registry == nil {
		return "", ErrNoSearcher
	}
	s, ok := r.registry.Searcher()
	if !ok {
		return "", ErrNoSearcher
	}
	content, err := s.SearchInternet(ctx, query, maxTokens)
	if err != nil {
		return "", fmt.Errorf("internet search: %w", err)
	}
	return content, nil
}

// EnhancePromptWithInternet prepends fresh search results to prompt. Any search
// failure leaves prompt unchanged.
func (r *Router) EnhancePromptWithInternet(ctx context.Context, prompt, query string, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = DefaultEnhanceSearchTokens
	}
	if query == "" {
		query = prompt
	}
	content, err := r.SearchInternet(ctx, query, maxTokens)
	if err != nil {
		r.logger.Warn("internet search failed, using original prompt", map[string]interface{}{
			"error": err.Error(),
		})
		return prompt
	}
	return fmt.Sprintf(internetPromptTemplate, content, prompt)
}
