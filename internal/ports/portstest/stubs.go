// Package portstest provides in-memory stand-ins for the LLM ports, for use in tests.
package portstest

import (
	"context"
	"sort"
	"sync"

	"github.com/doeshing/promptmate/internal/ports"
)

// StubProvider is a scripted ports.Provider that records every call.
type StubProvider struct {
	ProviderName string
	Models       []string
	Reply        string
	Tokens       int
	JSON         map[string]any
	// JSONFunc, when set, takes precedence over JSON.
	JSONFunc func(ports.JSONRequest) (map[string]any, error)
	Err      error

	mu        sync.Mutex
	Calls     []ports.GenerateRequest
	JSONCalls []ports.JSONRequest
}

func (s *StubProvider) Name() string { return s.ProviderName }

func (s *StubProvider) Generate(_ context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, req)
	s.mu.Unlock()
	if s.Err != nil {
		return ports.GenerateResponse{}, s.Err
	}
	tokens := s.Tokens
	if tokens == 0 {
		tokens = s.CountTokens(req.Prompt) + s.CountTokens(s.Reply)
	}
	return ports.GenerateResponse{
		Content:      s.Reply,
		Model:        req.Model,
		TokensUsed:   tokens,
		FinishReason: "stop",
	}, nil
}

func (s *StubProvider) GenerateJSON(_ context.Context, req ports.JSONRequest) (map[string]any, error) {
	s.mu.Lock()
	s.JSONCalls = append(s.JSONCalls, req)
	s.mu.Unlock()
	if s.JSONFunc != nil {
		return s.JSONFunc(req)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[string]any, len(s.JSON))
	for k, v := range s.JSON {
		out[k] = v
	}
	return out, nil
}

func (s *StubProvider) CountTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

func (s *StubProvider) AvailableModels() []string {
	return append([]string(nil), s.Models...)
}

// CallCount returns the number of Generate plus GenerateJSON calls.
func (s *StubProvider) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls) + len(s.JSONCalls)
}

// LastCall returns the most recent Generate request.
func (s *StubProvider) LastCall() (ports.GenerateRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Calls) == 0 {
		return ports.GenerateRequest{}, false
	}
	return s.Calls[len(s.Calls)-1], true
}

// StubSearcher is a scripted ports.WebSearcher.
type StubSearcher struct {
	Content string
	Err     error
	Queries []string
}

func (s *StubSearcher) SearchInternet(_ context.Context, query string, _ int) (string, error) {
	s.Queries = append(s.Queries, query)
	return s.Content, s.Err
}

// StubRegistry is a fixed ports.ProviderRegistry.
type StubRegistry struct {
	Providers map[string]ports.Provider
	Search    ports.WebSearcher
}

// NewRegistry registers providers under their Name().
func NewRegistry(providers ...ports.Provider) *StubRegistry {
	r := &StubRegistry{Providers: map[string]ports.Provider{}}
	for _, p := range providers {
		r.Providers[p.Name()] = p
	}
	return r
}

func (r *StubRegistry) Get(name string) (ports.Provider, bool) {
	p, ok := r.Providers[name]
	return p, ok
}

func (r *StubRegistry) Names() []string {
	names := make([]string, 0, len(r.Providers))
	for n := range r.Providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *StubRegistry) Searcher() (ports.WebSearcher, bool) {
	return r.Search, r.Search != nil
}
