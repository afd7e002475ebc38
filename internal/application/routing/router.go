// Package routing selects the vendor, model and temperature for every LLM call.
package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/logger"
	"github.com/doeshing/promptmate/internal/ports"
)

// RouteRequest describes one routing decision.
type RouteRequest struct {
	Task              domain.TaskType
	Quality           domain.QualityLevel
	Entitlement       *domain.Entitlement
	PreferredModel    string
	PreferredProvider string
}

// Router maps (task, quality, entitlement) onto a registered provider.
type Router struct {
	registry ports.ProviderRegistry
	settings domain.RoutingSettings
	logger   ports.Logger
}

// NewRouter builds a router over the given registry. Zero-valued settings tables
// fall back to DefaultSettings.
func NewRouter(registry ports.ProviderRegistry, settings domain.RoutingSettings, log ports.Logger) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{registry: registry, settings: withDefaults(settings), logger: log}
}

// Settings returns the effective routing tables.
func (r *Router) Settings() domain.RoutingSettings {
	return r.settings
}

// Route picks the provider, model and temperature for req.
func (r *Router) Route(ctx context.Context, req RouteRequest) (domain.Route, error) {
	if err := ctx.Err(); err != nil {
		return domain.Route{}, err
	}
	if !req.Task.Valid() {
		return domain.Route{}, fmt.Errorf("unknown task type %q", req.Task)
	}
	if !req.Quality.Valid() {
		req.Quality = domain.QualityBalanced
	}

	var route domain.Route
	if req.Task == domain.TaskFinalGeneration {
		route = r.finalGeneration(req)
	} else {
		route = r.pipelineTask(req)
	}

	if _, ok := r.lookup(route.Provider); ok {
		r.logger.Debug("route selected", routeFields(req, route))
		return route, nil
	}

	r.logger.Warn("preferred provider unavailable, trying fallback", map[string]interface{}{
		"provider": route.Provider,
		"task":     string(req.Task),
	})
	name, provider, ok := r.fallbackProvider()
	if !ok {
		return domain.Route{}, domain.ErrProviderUnavailable
	}
	route.Provider = name
	route.Model = r.fallbackModel(provider, req)
	route.Substituted = true
	if !r.allows(req.Entitlement, route.Model) {
		r.logger.Warn("substituted model is outside the caller's plan", map[string]interface{}{
			"provider": name,
			"model":    route.Model,
			"plan":     planOf(req.Entitlement),
		})
	}
	r.logger.Info("fallback route selected", routeFields(req, route))
	return route, nil
}

func (r *Router) pipelineTask(req RouteRequest) domain.Route {
	strategy := r.settings.TaskStrategies[req.Task]
	route := domain.Route{
		Provider:    firstNonEmpty(req.PreferredProvider, strategy.Provider),
		Model:       strategy.Model,
		Temperature: strategy.Temperature,
	}
	route.Model = r.modelFor(route.Provider, strategy, req)
	if req.Entitlement.IsFreeTier() {
		route.Provider = domain.ProviderOpenAI
		route.Model = r.settings.FreeModel
	}
	return route
}

func (r *Router) finalGeneration(req RouteRequest) domain.Route {
	strategy, ok := r.settings.QualityStrategies[req.Quality]
	if !ok {
		strategy = r.settings.QualityStrategies[domain.QualityBalanced]
	}

	preferred := req.PreferredModel
	if preferred != "" && !r.allows(req.Entitlement, preferred) {
		r.logger.Warn("preferred model not allowed for plan, using plan default", map[string]interface{}{
			"model": preferred,
			"plan":  planOf(req.Entitlement),
		})
		preferred = ""
	}

	if preferred != "" {
		if ms, ok := r.settings.ModelStrategies[preferred]; ok {
			return domain.Route{Provider: ms.Provider, Model: preferred, Temperature: ms.Temperature}
		}
		provider := req.PreferredProvider
		if provider == "" {
			provider = r.catalogOwner(preferred)
		}
		return domain.Route{
			Provider:    firstNonEmpty(provider, strategy.Provider),
			Model:       preferred,
			Temperature: strategy.Temperature,
		}
	}

	if req.Entitlement.IsFreeTier() {
		return domain.Route{
			Provider:    domain.ProviderOpenAI,
			Model:       r.settings.FreeModel,
			Temperature: domain.DefaultTemperature,
		}
	}

	route := domain.Route{
		Provider:    firstNonEmpty(req.PreferredProvider, strategy.Provider),
		Model:       strategy.Model,
		Temperature: strategy.Temperature,
	}
	route.Model = r.modelFor(route.Provider, strategy, req)
	if !req.Entitlement.Allows(route.Model) {
		r.logger.Warn("strategy model not allowed for plan, using free model", map[string]interface{}{
			"model": route.Model,
			"plan":  planOf(req.Entitlement),
		})
		route.Model = r.settings.FreeModel
		if p, ok := r.lookup(route.Provider); ok && !slices.Contains(p.AvailableModels(), route.Model) {
			route.Provider = domain.ProviderOpenAI
		}
	}
	return route
}

// modelFor keeps the strategy model unless a preferred provider replaced the
// strategy provider and does not serve it. Then the provider's best catalog
// match for the task is used.
func (r *Router) modelFor(provider string, strategy domain.ModelStrategy, req RouteRequest) string {
	if provider == strategy.Provider {
		return strategy.Model
	}
	p, ok := r.lookup(provider)
	if !ok || slices.Contains(p.AvailableModels(), strategy.Model) {
		return strategy.Model
	}
	return r.fallbackModel(p, req)
}

// allows treats the configured free model as the free-tier baseline.
func (r *Router) allows(e *domain.Entitlement, model string) bool {
	if e.IsFreeTier() {
		return model == r.settings.FreeModel
	}
	return e.Allows(model)
}

func (r *Router) catalogOwner(model string) string {
	if r.registry == nil {
		return ""
	}
	for _, name := range r.registry.Names() {
		p, ok := r.registry.Get(name)
		if ok && slices.Contains(p.AvailableModels(), model) {
			return name
		}
	}
	return ""
}

func (r *Router) lookup(name string) (ports.Provider, bool) {
	if r.registry == nil || name == "" {
		return nil, false
	}
	return r.registry.Get(name)
}

func (r *Router) fallbackProvider() (string, ports.Provider, bool) {
	for _, name := range r.settings.FallbackOrder {
		if p, ok := r.lookup(name); ok {
			return name, p, true
		}
	}
	return "", nil, false
}

// fallbackModel walks the task-aware preference list against the provider
// catalog, preferring models the caller is entitled to.
func (r *Router) fallbackModel(p ports.Provider, req RouteRequest) string {
	catalog := p.AvailableModels()
	var prefs []string
	switch {
	case req.Task.Lightweight():
		prefs = r.settings.FallbackPreference[preferenceLightweight]
	case req.Task == domain.TaskFinalGeneration:
		prefs = r.settings.FallbackPreference[string(req.Quality)]
	}

	var firstAvailable string
	for _, m := range prefs {
		if !slices.Contains(catalog, m) {
			continue
		}
		if r.allows(req.Entitlement, m) {
			return m
		}
		if firstAvailable == "" {
			firstAvailable = m
		}
	}
	if firstAvailable != "" {
		return firstAvailable
	}
	for _, m := range catalog {
		if r.allows(req.Entitlement, m) {
			return m
		}
	}
	if len(catalog) > 0 {
		return catalog[0]
	}
	return "gpt-4o-mini"
}

// AvailableProviders reports which known vendors have a registered provider.
func (r *Router) AvailableProviders() map[string]bool {
	out := map[string]bool{
		domain.ProviderOpenAI:     false,
		domain.ProviderAnthropic:  false,
		domain.ProviderGoogle:     false,
		domain.ProviderPerplexity: false,
	}
	if r.registry == nil {
		return out
	}
	for _, name := range r.registry.Names() {
		out[name] = true
	}
	return out
}

// Provider returns a registered provider by name.
func (r *Router) Provider(name string) (ports.Provider, error) {
	p, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", name, domain.ErrProviderUnavailable)
	}
	return p, nil
}

// Generate routes req and calls the selected provider.
func (r *Router) Generate(ctx context.Context, req RouteRequest, gen ports.GenerateRequest) (domain.Route, ports.GenerateResponse, error) {
	route, err := r.Route(ctx, req)
	if err != nil {
		return domain.Route{}, ports.GenerateResponse{}, err
	}
	p, err := r.Provider(route.Provider)
	if err != nil {
		return route, ports.GenerateResponse{}, err
	}
	gen.Model = route.Model
	gen.Temperature = route.Temperature
	resp, err := p.Generate(ctx, gen)
	if err != nil {
		return route, ports.GenerateResponse{}, err
	}
	return route, resp, nil
}

// GenerateJSON routes req and requests a structured reply from the selected provider.
func (r *Router) GenerateJSON(ctx context.Context, req RouteRequest, gen ports.JSONRequest) (map[string]any, error) {
	route, err := r.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	p, err := r.Provider(route.Provider)
	if err != nil {
		return nil, err
	}
	gen.Model = route.Model
	gen.Temperature = route.Temperature
	return p.GenerateJSON(ctx, gen)
}

// ErrNoSearcher is returned when no web search provider is registered.
var ErrNoSearcher = errors.New("no web search provider configured")

func planOf(e *domain.Entitlement) string {
	if e == nil {
		return "anonymous"
	}
	if e.PlanType == "" {
		return domain.PlanFree
	}
	return e.PlanType
}

func routeFields(req RouteRequest, route domain.Route) map[string]interface{} {
	return map[string]interface{}{
		"task":        string(req.Task),
		"quality":     string(req.Quality),
		"provider":    route.Provider,
		"model":       route.Model,
		"temperature": route.Temperature,
		"substituted": route.Substituted,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
