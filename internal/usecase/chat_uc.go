// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"barista-ai-ordering/internal/agent"
	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/adapter"
	"barista-ai-ordering/internal/domain/ports/repository"
	"barista-ai-ordering/internal/infra/logging"
	"barista-ai-ordering/internal/infra/metrics"
	red "barista-ai-ordering/internal/infra/redis"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

const (
	lockTTL       = 2 * time.Minute
	fallbackReply = "Sorry, I couldn't finish that request. Your order so far is saved; please try rephrasing."
)

// TurnResult is what one processed chat turn hands back to the transport.
type TurnResult struct {
	SessionID    string
	Reply        string
	DraftSummary string
}

type ChatUseCase interface {
	// SendTurn processes one inbound message end to end: route the agent
	// mode, drive the bounded tool-calling loop, persist, and reply.
	SendTurn(ctx context.Context, ownerID, sessionID, text string) (*TurnResult, error)
}

type chatUC struct {
	sessions    repository.SessionRepository
	toolkit     *agent.Toolkit
	llm         adapter.LanguageModelAdapter
	locker      red.Locker
	log         *zerolog.Logger
	modelName   string
	maxLoops    int
	tokenBudget int
}

func NewChatUseCase(
	sessions repository.SessionRepository,
	toolkit *agent.Toolkit,
	llm adapter.LanguageModelAdapter,
	locker red.Locker,
	logger *zerolog.Logger,
	modelName string,
	maxLoops int,
	tokenBudget int,
) *chatUC {
	return &chatUC{
		sessions:    sessions,
		toolkit:     toolkit,
		llm:         llm,
		locker:      locker,
		log:         logger,
		modelName:   modelName,
		maxLoops:    maxLoops,
		tokenBudget: tokenBudget,
	}
}

func (c *chatUC) SendTurn(ctx context.Context, ownerID, sessionID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrInvalidArgument
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Serialize turns per session. A concurrent second turn gets
	// domain.ErrSessionBusy rather than racing the tool loop on the draft.
	token, err := c.locker.TryLock(ctx, "session_lock:"+sessionID, lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := c.locker.Unlock(context.Background(), "session_lock:"+sessionID, token); uerr != nil {
			c.log.Warn().Err(uerr).Str("session_id", sessionID).Msg("session unlock failed")
		}
	}()

	ctx = logging.WithSessID(logging.WithOwnerID(ctx, ownerID), sessionID)
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.SendTurn")()

	sess, err := c.loadOrCreate(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	// Routing: the first expression of ordering intent flips the session
	// into ordering mode; the transition is recorded on the session.
	if sess.Mode == model.ModeRecommendation && agent.DetectOrderingIntent(text) {
		sess.SwitchMode(model.ModeOrdering)
		if err := c.sessions.Save(ctx, nil, sess); err != nil {
			return nil, fmt.Errorf("save mode switch: %w", err)
		}
		log.Info().Str("mode", string(sess.Mode)).Msg("agent mode switched")
	}

	userMsg := sess.AppendMessage(model.ChatMessage{Role: model.RoleUser, Content: text})
	if err := c.sessions.AppendMessage(ctx, nil, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	reply, err := c.runToolLoop(ctx, log, sess)
	if err != nil {
		return nil, err
	}

	if err := c.persist(ctx, sess); err != nil {
		return nil, err
	}
	metrics.IncTurn(string(sess.Mode))

	res := &TurnResult{SessionID: sess.ID, Reply: reply}
	if sess.Draft != nil && sess.Draft.Active() && len(sess.Draft.Lines) > 0 {
		res.DraftSummary = sess.Draft.Summary()
	}
	return res, nil
}

// runToolLoop drives ModelInvocation -> ToolExecution rounds until the model
// produces a plain reply or the loop bound trips. Every tool call and result
// is appended to history before the next model invocation.
func (c *chatUC) runToolLoop(ctx context.Context, log *zerolog.Logger, sess *model.Session) (string, error) {
	system := agent.SystemPrompt(sess.Mode)
	tools := agent.ToolsForMode(sess.Mode)

	for i := 0; i < c.maxLoops; i++ {
		if err := ctx.Err(); err != nil {
			// Caller cancelled between model invocations. Committed tool
			// effects stay committed; only the in-flight turn is abandoned.
			return "", err
		}

		msgs := c.trimToBudget(c.adapterMessages(sess.Messages))
		start := time.Now()
		completion, usage, err := c.llm.Complete(ctx, c.modelName, system, msgs, tools)
		metrics.ObserveModelCall(c.llm.Provider(), c.modelName, usage.PromptTokens, usage.CompletionTokens,
			int(time.Since(start).Milliseconds()), err == nil)
		if err != nil {
			return "", fmt.Errorf("model invocation: %w", err)
		}

		if !completion.IsToolCall() {
			agentMsg := sess.AppendMessage(model.ChatMessage{Role: model.RoleAgent, Content: completion.Text})
			if err := c.sessions.AppendMessage(ctx, nil, agentMsg); err != nil {
				return "", fmt.Errorf("append agent message: %w", err)
			}
			return completion.Text, nil
		}

		if err := c.executeTool(ctx, log, sess, *completion.ToolCall); err != nil {
			return "", err
		}
	}

	// Loop bound exhausted: terminate the turn with a generic fallback and
	// keep the partial draft (persisted by the caller) rather than discard.
	log.Warn().Int("max_loops", c.maxLoops).Msg("tool-call loop bound exhausted")
	metrics.IncToolLoopExhausted()
	agentMsg := sess.AppendMessage(model.ChatMessage{Role: model.RoleAgent, Content: fallbackReply})
	if err := c.sessions.AppendMessage(ctx, nil, agentMsg); err != nil {
		return "", fmt.Errorf("append fallback message: %w", err)
	}
	return fallbackReply, nil
}

// executeTool runs one tool call and appends both the call and its result to
// history. Tool-level failures become tool-result errors the model can react
// to; only infrastructure failures propagate.
func (c *chatUC) executeTool(ctx context.Context, log *zerolog.Logger, sess *model.Session, call adapter.ToolCall) error {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	rawArgs, _ := json.Marshal(call.Args)
	callMsg := sess.AppendMessage(model.ChatMessage{
		Role:       model.RoleAgent,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		ToolArgs:   rawArgs,
	})
	if err := c.sessions.AppendMessage(ctx, nil, callMsg); err != nil {
		return fmt.Errorf("append tool call: %w", err)
	}

	result, err := c.toolkit.Execute(ctx, sess.Mode, call, sess)
	resultMsg := model.ChatMessage{
		Role:       model.RoleTool,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
	var toolErr *agent.ToolError
	switch {
	case err == nil:
		// Commit the draft before the history claims success, so a failed
		// model call later in the loop can never leave a "Added to order."
		// result without the line it reports.
		if sess.Draft != nil {
			if uerr := c.sessions.UpsertDraft(ctx, nil, sess.Draft); uerr != nil {
				return fmt.Errorf("upsert draft: %w", uerr)
			}
		}
		resultMsg.Content = result
		metrics.IncToolExecution(call.Name, "ok")
	case errors.As(err, &toolErr):
		resultMsg.Content = toolErr.Message
		resultMsg.ToolError = toolErr.Kind
		metrics.IncToolExecution(call.Name, "tool_error")
		log.Debug().Str("tool", call.Name).Str("kind", toolErr.Kind).Str("detail", toolErr.Message).
			Msg("tool error surfaced to model")
	default:
		metrics.IncToolExecution(call.Name, "infra_error")
		return fmt.Errorf("tool %s: %w", call.Name, err)
	}

	stored := sess.AppendMessage(resultMsg)
	if err := c.sessions.AppendMessage(ctx, nil, stored); err != nil {
		return fmt.Errorf("append tool result: %w", err)
	}
	return nil
}

func (c *chatUC) loadOrCreate(ctx context.Context, ownerID, sessionID string) (*model.Session, error) {
	sess, err := c.sessions.FindByID(ctx, nil, sessionID)
	switch {
	case err == nil:
		if sess.OwnerID != ownerID {
			// Do not leak another principal's session.
			return nil, domain.ErrNotFound
		}
		return sess, nil
	case errors.Is(err, domain.ErrNotFound):
		sess = model.NewSession(sessionID, ownerID)
		if err := c.sessions.Save(ctx, nil, sess); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		return sess, nil
	default:
		return nil, fmt.Errorf("load session: %w", err)
	}
}

func (c *chatUC) persist(ctx context.Context, sess *model.Session) error {
	if sess.Draft != nil {
		if err := c.sessions.UpsertDraft(ctx, nil, sess.Draft); err != nil {
			return fmt.Errorf("upsert draft: %w", err)
		}
	}
	if err := c.sessions.Save(ctx, nil, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// trimToBudget drops history from the front until the prompt fits the token
// budget, never splitting a tool call from its result.
func (c *chatUC) trimToBudget(msgs []adapter.Message) []adapter.Message {
	if c.tokenBudget <= 0 {
		return msgs
	}
	for len(msgs) > 1 {
		n, err := c.llm.CountTokens(c.modelName, msgs)
		if err != nil || n <= c.tokenBudget {
			return msgs
		}
		msgs = msgs[1:]
		for len(msgs) > 1 && msgs[0].Role == "tool" {
			msgs = msgs[1:]
		}
	}
	return msgs
}

func (c *chatUC) adapterMessages(history []model.ChatMessage) []adapter.Message {
	out := make([]adapter.Message, 0, len(history))
	for _, m := range history {
		am := adapter.Message{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
		}
		if m.ToolError != "" {
			am.Content = m.ToolError + ": " + m.Content
		}
		if len(m.ToolArgs) > 0 {
			if err := json.Unmarshal(m.ToolArgs, &am.ToolArgs); err != nil {
				c.log.Debug().Err(err).Int("seq", m.Seq).Str("tool", m.ToolName).
					Msg("stored tool args not decodable, replaying without them")
			}
		}
		out = append(out, am)
	}
	return out
}
