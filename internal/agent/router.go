package agent

import (
	"fmt"
	"strings"
)

// Provider names accepted in routing configuration.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
)

// Route sends model ids with Prefix to a named provider.
type Route struct {
	Prefix      string `yaml:"prefix"`
	Provider    string `yaml:"provider"`
	StripPrefix bool   `yaml:"strip_prefix"`
}

// RouterConfig holds credentials and routing rules for every provider.
type RouterConfig struct {
	Default           string
	Routes            []Route
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	AnthropicAPIKey   string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	HTTPClient        HTTPDoer
}

// Router picks a provider for each model id.
type Router struct {
	cfg RouterConfig
}

// NewRouter builds a router. An empty default routes to OpenRouter.
func NewRouter(cfg RouterConfig) *Router {
	if strings.TrimSpace(cfg.Default) == "" {
		cfg.Default = ProviderOpenRouter
	}
	return &Router{cfg: cfg}
}

// Resolve returns the provider name and provider-side model name for an id.
// The longest matching prefix wins.
func (r *Router) Resolve(modelID string) (string, string) {
	provider, model := r.cfg.Default, modelID
	matched := -1
	for _, route := range r.cfg.Routes {
		if !strings.HasPrefix(modelID, route.Prefix) || len(route.Prefix) <= matched {
			continue
		}
		matched = len(route.Prefix)
		provider, model = route.Provider, modelID
		if route.StripPrefix {
			model = strings.TrimPrefix(modelID, route.Prefix)
		}
	}
	return provider, model
}

// ForModel builds the provider that serves modelID.
func (r *Router) ForModel(modelID string) (Provider, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, fmt.Errorf("model is required")
	}
	name, model := r.Resolve(modelID)
	switch name {
	case ProviderOpenRouter:
		if r.cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required for %s", modelID)
		}
		return NewOpenRouterProvider(model, r.cfg.OpenRouterAPIKey, r.cfg.OpenRouterBaseURL, r.cfg.HTTPClient)
	case ProviderAnthropic:
		if r.cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for %s", modelID)
		}
		return NewAnthropicProvider(model, r.cfg.AnthropicAPIKey)
	case ProviderOpenAI:
		if r.cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for %s", modelID)
		}
		return NewOpenAIProvider(model, r.cfg.OpenAIAPIKey, r.cfg.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider %q", name)
	}
}
