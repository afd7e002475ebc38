package ai

import (
	"os"
	"slices"
	"strings"

	"github.com/doeshing/promptmate/internal/domain"
)

// resolveAuth reads the API key from the configured variable, then the vendor default.
func resolveAuth(getenv func(string) string, primary string, fallback string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if primary != "" {
		if value := strings.TrimSpace(getenv(primary)); value != "" {
			return value
		}
	}
	if fallback == "" {
		return ""
	}
	return strings.TrimSpace(getenv(fallback))
}

func valueOrDefault(value string, def string) string {
	if value == "" {
		return def
	}
	return value
}

func valueOrDefaultInt(value int, def int) int {
	if value <= 0 {
		return def
	}
	return value
}

// catalog holds the fixed model list of one vendor.
type catalog struct {
	name         string
	models       []string
	defaultModel string
}

func newCatalog(name string, models []string, configured []string, defaultModel string) catalog {
	list := models
	if len(configured) > 0 {
		list = configured
	}
	return catalog{
		name:         name,
		models:       slices.Clone(list),
		defaultModel: valueOrDefault(defaultModel, list[0]),
	}
}

func (c catalog) Name() string {
	return c.name
}

func (c catalog) AvailableModels() []string {
	return slices.Clone(c.models)
}

func (c catalog) CountTokens(text string) int {
	return CountTokens(text)
}

// resolveModel picks the request model or the default and checks it against the catalog.
func (c catalog) resolveModel(model string) (string, error) {
	model = valueOrDefault(model, c.defaultModel)
	if !slices.Contains(c.models, model) {
		return "", domain.NewProviderError(c.name, model, domain.ErrModelNotFound, nil)
	}
	return model, nil
}

func maxTokensOrDefault(n int) int64 {
	return int64(valueOrDefaultInt(n, domain.DefaultMaxTokens))
}
