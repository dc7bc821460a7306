package model

import (
	"encoding/json"
	"time"
)

type AgentMode string

const (
	ModeRecommendation AgentMode = "recommendation"
	ModeOrdering       AgentMode = "ordering"
)

type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAgent MessageRole = "agent"
	RoleTool  MessageRole = "tool"
)

// ChatMessage is one turn element within a session. Immutable once appended.
// Agent messages carry either text or a tool-call payload; tool messages
// carry the result (or error) of executing that call.
type ChatMessage struct {
	SessionID  string          `json:"session_id"`
	Seq        int             `json:"seq"`
	Role       MessageRole     `json:"role"`
	Content    string          `json:"content,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolArgs   json.RawMessage `json:"tool_args,omitempty"`
	ToolError  string          `json:"tool_error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Session is the aggregate root for one conversation: ordered message
// history, current agent mode, and at most one active order draft.
// Never deleted by the core; expiry is an external concern.
type Session struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	Mode      AgentMode     `json:"mode"`
	Messages  []ChatMessage `json:"messages"`
	Draft     *OrderDraft   `json:"draft,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func NewSession(id, ownerID string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		OwnerID:   ownerID,
		Mode:      ModeRecommendation,
		Messages:  make([]ChatMessage, 0, 8),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage assigns the next sequence position and appends. Returns a
// pointer to the stored message so callers can persist it individually.
func (s *Session) AppendMessage(m ChatMessage) *ChatMessage {
	m.SessionID = s.ID
	m.Seq = len(s.Messages)
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = m.Timestamp
	return &s.Messages[len(s.Messages)-1]
}

// SwitchMode records an explicit agent-mode transition on the session.
func (s *Session) SwitchMode(mode AgentMode) {
	if s.Mode == mode {
		return
	}
	s.Mode = mode
	s.UpdatedAt = time.Now()
}

// ActiveDraft returns the current mutable draft, creating one lazily the
// first time ordering needs it. Confirmed and abandoned drafts are terminal,
// so a fresh draft replaces them.
func (s *Session) ActiveDraft() *OrderDraft {
	if s.Draft == nil || !s.Draft.Active() {
		s.Draft = NewOrderDraft(s.ID)
	}
	return s.Draft
}

// RecentMessages returns up to n messages from the end of history.
func (s *Session) RecentMessages(n int) []ChatMessage {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
