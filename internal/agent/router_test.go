package agent

import (
	"testing"
)

// TestRouterResolve verifies prefix routing and prefix stripping.
func TestRouterResolve(t *testing.T) {
	router := NewRouter(RouterConfig{
		Routes: []Route{
			{Prefix: "anthropic/", Provider: ProviderAnthropic, StripPrefix: true},
			{Prefix: "anthropic/claude-3.5", Provider: ProviderOpenRouter},
			{Prefix: "local/", Provider: ProviderOpenAI, StripPrefix: true},
		},
	})
	cases := []struct {
		id       string
		provider string
		model    string
	}{
		{id: "openai/gpt-4o", provider: ProviderOpenRouter, model: "openai/gpt-4o"},
		{id: "anthropic/claude-sonnet-4", provider: ProviderAnthropic, model: "claude-sonnet-4"},
		{id: "anthropic/claude-3.5-sonnet", provider: ProviderOpenRouter, model: "anthropic/claude-3.5-sonnet"},
		{id: "local/llama3", provider: ProviderOpenAI, model: "llama3"},
	}
	for _, tc := range cases {
		provider, model := router.Resolve(tc.id)
		if provider != tc.provider || model != tc.model {
			t.Fatalf("Resolve(%q) = %s, %s; want %s, %s", tc.id, provider, model, tc.provider, tc.model)
		}
	}
}

// TestRouterForModelRequiresKeys verifies missing credentials are reported per provider.
func TestRouterForModelRequiresKeys(t *testing.T) {
	router := NewRouter(RouterConfig{})
	if _, err := router.ForModel("openai/gpt-4o"); err == nil {
		t.Fatalf("expected missing openrouter key error")
	}
	if _, err := router.ForModel(""); err == nil {
		t.Fatalf("expected empty model error")
	}
	router = NewRouter(RouterConfig{Default: "bogus"})
	if _, err := router.ForModel("x"); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	router = NewRouter(RouterConfig{OpenRouterAPIKey: "key"})
	provider, err := router.ForModel("openai/gpt-4o")
	if err != nil {
		t.Fatalf("for model: %v", err)
	}
	if _, ok := provider.(*OpenRouterProvider); !ok {
		t.Fatalf("expected openrouter provider, got %T", provider)
	}
}
