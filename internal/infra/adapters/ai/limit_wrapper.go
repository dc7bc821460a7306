package ai

import (
	"context"

	"barista-ai-ordering/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.LanguageModelAdapter = (*limitedLLM)(nil)

// limitedLLM caps concurrent model invocations with a semaphore.
type limitedLLM struct {
	inner adapter.LanguageModelAdapter
	sem   chan struct{}
}

func NewLimitedLLM(inner adapter.LanguageModelAdapter, maxConcurrent int) adapter.LanguageModelAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedLLM{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedLLM) Complete(ctx context.Context, model, system string, messages []adapter.Message, tools []adapter.ToolSchema) (adapter.Completion, adapter.Usage, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return adapter.Completion{}, adapter.Usage{}, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Complete(ctx, model, system, messages, tools)
}

func (l *limitedLLM) CountTokens(model string, messages []adapter.Message) (int, error) {
	return l.inner.CountTokens(model, messages)
}

func (l *limitedLLM) Provider() string { return l.inner.Provider() }
