package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"barista-ai-ordering/internal/agent"
	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/adapter"
	"barista-ai-ordering/internal/infra/adapters/ai"
)

func toolCall(name string, args map[string]any) adapter.Completion {
	return adapter.Completion{ToolCall: &adapter.ToolCall{Name: name, Args: args}}
}

func textReply(s string) adapter.Completion {
	return adapter.Completion{Text: s}
}

func newChatFixture(t *testing.T, script ...adapter.Completion) (*chatUC, *memSessionRepo) {
	t.Helper()
	repo := newMemSessionRepo()
	toolkit := agent.NewToolkit(newMemCatalog(fixtureLatte()), newMemOrderRepo())
	uc := NewChatUseCase(repo, toolkit, ai.NewScriptedAdapter(script...), newMemLocker(),
		testLogger(), "test-model", 8, 0)
	return uc, repo
}

func TestSendTurn_OrderFlow(t *testing.T) {
	uc, repo := newChatFixture(t,
		toolCall(agent.ToolAddItem, map[string]any{
			"beverage_id":    "latte",
			"customizations": map[string]any{"size": "large"},
			"quantity":       float64(1),
		}),
		toolCall(agent.ToolRequestConfirmation, nil),
		textReply("One large latte. Shall I place it?"),
	)

	res, err := uc.SendTurn(context.Background(), "owner-1", "", "I'd like a large latte")
	if err != nil {
		t.Fatalf("SendTurn: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("no session id assigned")
	}
	if res.Reply != "One large latte. Shall I place it?" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if !strings.Contains(res.DraftSummary, "1x Latte") {
		t.Fatalf("draft summary = %q", res.DraftSummary)
	}

	sess, err := repo.FindByID(context.Background(), nil, res.SessionID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if sess.Mode != model.ModeOrdering {
		t.Fatalf("mode = %s, want ordering (intent detected)", sess.Mode)
	}
	if sess.Draft == nil || sess.Draft.Status != model.DraftAwaitingConfirmation {
		t.Fatalf("persisted draft = %+v, want awaiting_confirmation", sess.Draft)
	}

	// History: user, 2x (tool call + tool result), final agent reply.
	if len(sess.Messages) != 6 {
		for _, m := range sess.Messages {
			t.Logf("  %d %s tool=%s err=%s", m.Seq, m.Role, m.ToolName, m.ToolError)
		}
		t.Fatalf("history length = %d, want 6", len(sess.Messages))
	}
	if sess.Messages[0].Role != model.RoleUser {
		t.Fatalf("first message role = %s", sess.Messages[0].Role)
	}
	if sess.Messages[1].ToolName != agent.ToolAddItem || sess.Messages[2].Role != model.RoleTool {
		t.Fatal("tool call and result not recorded in order")
	}
}

func TestSendTurn_ToolErrorSurfacedToModel(t *testing.T) {
	uc, repo := newChatFixture(t,
		toolCall(agent.ToolAddItem, map[string]any{"beverage_id": "unicorn-frappe"}),
		textReply("We don't have that one. Anything else?"),
	)

	res, err := uc.SendTurn(context.Background(), "owner-1", "", "order a unicorn frappe")
	if err != nil {
		t.Fatalf("SendTurn: %v", err)
	}
	if res.Reply != "We don't have that one. Anything else?" {
		t.Fatalf("reply = %q", res.Reply)
	}

	sess, _ := repo.FindByID(context.Background(), nil, res.SessionID)
	var toolResult *model.ChatMessage
	for i := range sess.Messages {
		if sess.Messages[i].Role == model.RoleTool {
			toolResult = &sess.Messages[i]
		}
	}
	if toolResult == nil {
		t.Fatal("no tool result message recorded")
	}
	if toolResult.ToolError != agent.KindValidation {
		t.Fatalf("tool error kind = %q, want %s", toolResult.ToolError, agent.KindValidation)
	}
}

func TestSendTurn_LoopBoundExhaustion(t *testing.T) {
	repo := newMemSessionRepo()
	toolkit := agent.NewToolkit(newMemCatalog(fixtureLatte()), newMemOrderRepo())
	// The script never produces a text reply; the bound must trip.
	script := []adapter.Completion{
		toolCall(agent.ToolAddItem, map[string]any{"beverage_id": "latte", "customizations": map[string]any{"size": "small"}}),
		toolCall(agent.ToolAddItem, map[string]any{"beverage_id": "latte", "customizations": map[string]any{"size": "medium"}}),
		toolCall(agent.ToolAddItem, map[string]any{"beverage_id": "latte", "customizations": map[string]any{"size": "large"}}),
	}
	uc := NewChatUseCase(repo, toolkit, ai.NewScriptedAdapter(script...), newMemLocker(),
		testLogger(), "test-model", 2, 0)

	res, err := uc.SendTurn(context.Background(), "owner-1", "", "I want a latte")
	if err != nil {
		t.Fatalf("SendTurn: %v", err)
	}
	if res.Reply != fallbackReply {
		t.Fatalf("reply = %q, want fallback", res.Reply)
	}

	// Partial work is kept: the two executed adds survive the exhaustion.
	sess, _ := repo.FindByID(context.Background(), nil, res.SessionID)
	if sess.Draft == nil || len(sess.Draft.Lines) != 2 {
		t.Fatalf("persisted draft = %+v, want 2 lines", sess.Draft)
	}
}

var _ adapter.LanguageModelAdapter = (*flakyLLM)(nil)

// flakyLLM replays its inner script, then fails every call after the limit.
type flakyLLM struct {
	inner *ai.ScriptedAdapter
	calls int
	limit int
}

func (f *flakyLLM) Complete(ctx context.Context, model, system string, messages []adapter.Message, tools []adapter.ToolSchema) (adapter.Completion, adapter.Usage, error) {
	f.calls++
	if f.calls > f.limit {
		return adapter.Completion{}, adapter.Usage{}, errors.New("upstream timeout")
	}
	return f.inner.Complete(ctx, model, system, messages, tools)
}

func (f *flakyLLM) CountTokens(model string, messages []adapter.Message) (int, error) {
	return f.inner.CountTokens(model, messages)
}

func (f *flakyLLM) Provider() string { return f.inner.Provider() }

func TestSendTurn_ModelFailureKeepsExecutedToolEffects(t *testing.T) {
	repo := newMemSessionRepo()
	toolkit := agent.NewToolkit(newMemCatalog(fixtureLatte()), newMemOrderRepo())
	// First invocation adds a line; the second invocation fails before the
	// model can produce a reply.
	llm := &flakyLLM{inner: ai.NewScriptedAdapter(
		toolCall(agent.ToolAddItem, map[string]any{
			"beverage_id":    "latte",
			"customizations": map[string]any{"size": "large"},
			"quantity":       float64(1),
		}),
	), limit: 1}
	uc := NewChatUseCase(repo, toolkit, llm, newMemLocker(), testLogger(), "test-model", 8, 0)

	_, err := uc.SendTurn(context.Background(), "owner-1", "sess-1", "I'd like a large latte")
	if err == nil {
		t.Fatal("SendTurn succeeded despite model failure")
	}

	// The tool result in history reports the add; the line it reports must
	// already be durable, not lost with the failed turn.
	sess, ferr := repo.FindByID(context.Background(), nil, "sess-1")
	if ferr != nil {
		t.Fatalf("reload session: %v", ferr)
	}
	if sess.Draft == nil || len(sess.Draft.Lines) != 1 {
		t.Fatalf("persisted draft = %+v, want the added line", sess.Draft)
	}
	if sess.Draft.Lines[0].BeverageID != "latte" {
		t.Fatalf("persisted line = %+v", sess.Draft.Lines[0])
	}
	var sawResult bool
	for _, m := range sess.Messages {
		if m.Role == model.RoleTool && m.ToolError == "" {
			sawResult = true
		}
	}
	if !sawResult {
		t.Fatal("no successful tool result recorded in history")
	}
}

func TestSendTurn_SessionBusy(t *testing.T) {
	repo := newMemSessionRepo()
	toolkit := agent.NewToolkit(newMemCatalog(fixtureLatte()), newMemOrderRepo())
	locker := newMemLocker()
	uc := NewChatUseCase(repo, toolkit, ai.NewScriptedAdapter(textReply("hi")), locker,
		testLogger(), "test-model", 8, 0)

	// Another turn holds the session lock.
	if _, err := locker.TryLock(context.Background(), "session_lock:sess-1", time.Minute); err != nil {
		t.Fatalf("prelock: %v", err)
	}

	_, err := uc.SendTurn(context.Background(), "owner-1", "sess-1", "hello")
	if !errors.Is(err, domain.ErrSessionBusy) {
		t.Fatalf("err = %v, want ErrSessionBusy", err)
	}
}

func TestSendTurn_OwnershipEnforced(t *testing.T) {
	uc, _ := newChatFixture(t, textReply("hello"), textReply("hello again"))

	res, err := uc.SendTurn(context.Background(), "owner-1", "", "what's on the menu?")
	if err != nil {
		t.Fatalf("SendTurn: %v", err)
	}

	// Another principal must not be able to touch the session.
	_, err = uc.SendTurn(context.Background(), "owner-2", res.SessionID, "hijack attempt")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSendTurn_EmptyMessageRejected(t *testing.T) {
	uc, _ := newChatFixture(t)
	_, err := uc.SendTurn(context.Background(), "owner-1", "", "   ")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSendTurn_RecommendationModeStaysReadOnly(t *testing.T) {
	uc, repo := newChatFixture(t,
		toolCall(agent.ToolSuggest, map[string]any{"preference_hints": "hot milk"}),
		textReply("A latte would suit you."),
	)

	res, err := uc.SendTurn(context.Background(), "owner-1", "", "what do you recommend?")
	if err != nil {
		t.Fatalf("SendTurn: %v", err)
	}
	sess, _ := repo.FindByID(context.Background(), nil, res.SessionID)
	if sess.Mode != model.ModeRecommendation {
		t.Fatalf("mode = %s, want recommendation", sess.Mode)
	}
	if res.DraftSummary != "" {
		t.Fatalf("draft summary = %q, want empty in recommendation flow", res.DraftSummary)
	}
}

func TestTrimToBudget_KeepsToolPairsTogether(t *testing.T) {
	repo := newMemSessionRepo()
	toolkit := agent.NewToolkit(newMemCatalog(fixtureLatte()), newMemOrderRepo())
	scripted := ai.NewScriptedAdapter()
	uc := NewChatUseCase(repo, toolkit, scripted, newMemLocker(), testLogger(), "test-model", 8, 30)

	msgs := []adapter.Message{
		{Role: "user", Content: strings.Repeat("long preamble ", 20)},
		{Role: "agent", ToolName: "add_item"},
		{Role: "tool", Content: "Added."},
		{Role: "user", Content: "and a muffin"},
	}
	trimmed := uc.trimToBudget(msgs)
	if len(trimmed) == 0 {
		t.Fatal("trim dropped everything")
	}
	// A tool result must never lead the window without its call.
	if trimmed[0].Role == "tool" {
		t.Fatalf("window starts with orphaned tool result: %+v", trimmed)
	}
}
