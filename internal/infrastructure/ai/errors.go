package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/doeshing/promptmate/internal/domain"
)

// normalizeError maps a vendor SDK failure onto a domain.ProviderError.
func normalizeError(provider, model string, err error) error {
	if err == nil {
		return nil
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewProviderError(provider, model, domain.ErrProvider, err)
	}
	return domain.NewProviderError(provider, model, classify(statusOf(err), err.Error()), err)
}

func statusOf(err error) int {
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return oaiErr.StatusCode
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return antErr.StatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) {
		return gErrPtr.Code
	}
	return 0
}

// classify picks the domain kind for a vendor failure. Auth failures win over
// message matching so "invalid api key" is not reported as a bad reply.
func classify(status int, msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrProviderAuth
	case status == http.StatusTooManyRequests,
		strings.Contains(lower, "rate_limit"),
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "quota"):
		return domain.ErrRateLimitExceeded
	case status == http.StatusNotFound && strings.Contains(lower, "model"):
		return domain.ErrModelNotFound
	case (status == 0 || status == http.StatusBadRequest) && strings.Contains(lower, "invalid"):
		return domain.ErrInvalidResponse
	}
	return domain.ErrProvider
}
