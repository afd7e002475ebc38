package ai

// Vendor model catalogs. The first entry doubles as the fallback default when
// no default is configured.
var (
	openAIModels = []string{
		"gpt-5-mini",
		"gpt-5-nano",
		"gpt-5",
		"gpt-4.1",
		"gpt-4.1-mini",
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-4.1-nano",
	}
	anthropicModels = []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
	}
	googleModels = []string{
		"gemini-1.5-pro",
		"gemini-1.5-flash",
		"gemini-1.0-pro",
	}
	perplexityModels = []string{
		"sonar-pro",
		"sonar",
	}
)

const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultAnthropicModel  = "claude-3-5-haiku-20241022"
	defaultGoogleModel     = "gemini-1.5-flash"
	defaultPerplexityModel = "sonar"

	perplexityBaseURL = "https://api.perplexity.ai"
)

// The gpt-5 family only accepts the default temperature.
var fixedTemperatureModels = map[string]bool{
	"gpt-5":      true,
	"gpt-5-nano": true,
	"gpt-5-mini": true,
}

var jsonModeModels = map[string]bool{
	"gpt-5":        true,
	"gpt-5-mini":   true,
	"gpt-5-nano":   true,
	"gpt-4.1":      true,
	"gpt-4.1-mini": true,
	"gpt-4.1-nano": true,
	"gpt-4o":      true,
	"gpt-4o-mini": true,
	"gpt-4-turbo": true,
}

// Models returns the built-in catalog for a provider kind.
func Models(kind string) []string {
	switch kind {
	case "openai":
		return append([]string(nil), openAIModels...)
	case "anthropic":
		return append([]string(nil), anthropicModels...)
	case "google":
		return append([]string(nil), googleModels...)
	case "perplexity":
		return append([]string(nil), perplexityModels...)
	}
	return nil
}
