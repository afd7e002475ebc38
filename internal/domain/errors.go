package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared across layers. Callers match them with errors.Is.
var (
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrInvalidResponse     = errors.New("invalid response")
	ErrModelNotFound       = errors.New("model not found")
	ErrProviderUnavailable = errors.New("no provider available")
	ErrProvider            = errors.New("provider error")
	ErrProviderAuth        = errors.New("provider rejected credentials")
	ErrNoIntent            = errors.New("intent has not been parsed")
	ErrNoTask              = errors.New("task is not set")
	ErrQuotaExceeded       = errors.New("token quota exceeded")
	ErrModelNotAllowed     = errors.New("model not allowed for plan")
	ErrSessionNotFound     = errors.New("session not found")
)

// ProviderError is a normalized vendor failure. Kind is one of the sentinel
// errors above; Err keeps the underlying vendor error.
type ProviderError struct {
	Provider string
	Model    string
	Kind     error
	Err      error
}

// NewProviderError wraps err for provider under kind.
func NewProviderError(provider, model string, kind, err error) *ProviderError {
	if kind == nil {
		kind = ErrProvider
	}
	return &ProviderError{Provider: provider, Model: model, Kind: kind, Err: err}
}

func (e *ProviderError) Error() string {
	label := e.Provider
	if e.Model != "" {
		label = fmt.Sprintf("%s/%s", e.Provider, e.Model)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", label, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", label, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the vendor error.
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusCode maps an error onto the HTTP status a transport layer would return.
// Vendor failures, rate limits included, surface as 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoIntent), errors.Is(err, ErrNoTask):
		return http.StatusBadRequest
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrModelNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ErrModelNotFound), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
