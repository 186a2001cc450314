package agent

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty model response")

// OutputSchema asks a provider for a JSON response matching Schema.
type OutputSchema struct {
	Name   string
	Schema json.RawMessage
}

// Prompt is a single-turn request to a model.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
	// Output requests structured output when the provider supports it.
	Output *OutputSchema
}

// Provider answers prompts with a chat model.
type Provider interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, prompt Prompt) (string, error)

// Complete calls f.
func (f ProviderFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// Factory builds a provider for a model id.
type Factory interface {
	ForModel(modelID string) (Provider, error)
}
