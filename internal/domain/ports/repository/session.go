package repository

import (
	"context"

	"barista-ai-ordering/internal/domain/model"
)

// SessionRepository persists conversation state. All operations are atomic
// at single-session granularity; turn-level serialization is the locker's
// job, not the repository's.
type SessionRepository interface {
	// FindByID loads a session with its full message history and draft.
	// Returns domain.ErrNotFound when the session does not exist (expected
	// on the first turn; triggers creation, not an error path).
	FindByID(ctx context.Context, qx any, id string) (*model.Session, error)

	// Save upserts the session row (mode, timestamps). Messages are
	// appended separately via AppendMessage.
	Save(ctx context.Context, qx any, s *model.Session) error

	// AppendMessage persists one immutable history entry.
	AppendMessage(ctx context.Context, qx any, m *model.ChatMessage) error

	// UpsertDraft persists the session's current draft state.
	UpsertDraft(ctx context.Context, qx any, d *model.OrderDraft) error

	// FindAllByOwner lists sessions for a principal, newest first.
	FindAllByOwner(ctx context.Context, qx any, ownerID string) ([]*model.Session, error)
}
