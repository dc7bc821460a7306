package ai

import (
	"context"
	"sync"
	"time"

	"barista-ai-ordering/internal/domain/ports/adapter"
)

var _ adapter.LanguageModelAdapter = (*ScriptedAdapter)(nil)

// ScriptedAdapter replays a fixed sequence of completions. Used in dev mode
// and tests where no real model is available; once the script is exhausted
// it answers with a canned text reply.
type ScriptedAdapter struct {
	mu    sync.Mutex
	steps []adapter.Completion
}

func NewScriptedAdapter(steps ...adapter.Completion) *ScriptedAdapter {
	return &ScriptedAdapter{steps: steps}
}

func (s *ScriptedAdapter) Complete(ctx context.Context, model, system string, messages []adapter.Message, tools []adapter.ToolSchema) (adapter.Completion, adapter.Usage, error) {
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return adapter.Completion{}, adapter.Usage{}, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return adapter.Completion{Text: "I'm a scripted assistant with nothing left to say."}, adapter.Usage{}, nil
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	return next, adapter.Usage{PromptTokens: len(messages)}, nil
}

func (s *ScriptedAdapter) Provider() string { return "scripted" }

func (s *ScriptedAdapter) CountTokens(model string, messages []adapter.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += 4 + len(m.Content)/4
	}
	return total, nil
}
