package ratelimit

import (
	"context"

	"qabench/internal/agent"
)

// Factory admits every provider call through a Limiter.
type Factory struct {
	Next    agent.Factory
	Limiter *Limiter
}

// Wrap limits the providers built by next. A nil limiter returns next.
func Wrap(next agent.Factory, limiter *Limiter) agent.Factory {
	if limiter == nil {
		return next
	}
	return Factory{Next: next, Limiter: limiter}
}

// ForModel returns the provider for modelID behind the limiter.
func (f Factory) ForModel(modelID string) (agent.Provider, error) {
	provider, err := f.Next.ForModel(modelID)
	if err != nil {
		return nil, err
	}
	return agent.ProviderFunc(func(ctx context.Context, prompt agent.Prompt) (string, error) {
		release, err := f.Limiter.Acquire(ctx, modelID)
		if err != nil {
			return "", err
		}
		defer release()
		return provider.Complete(ctx, prompt)
	}), nil
}
