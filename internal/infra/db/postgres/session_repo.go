// File: internal/infra/db/postgres/session_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/repository"
	"barista-ai-ordering/internal/infra/redis"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo persists sessions, their append-only message history, and the
// per-session draft. Reads go through the Redis cache best-effort.
type SessionRepo struct {
	pool  *pgxpool.Pool
	cache *redis.SessionCache
}

func NewSessionRepo(pool *pgxpool.Pool, cache *redis.SessionCache) *SessionRepo {
	return &SessionRepo{pool: pool, cache: cache}
}

func (r *SessionRepo) Save(ctx context.Context, qx any, s *model.Session) error {
	const q = `
INSERT INTO sessions (id, owner_id, mode, created_at, updated_at)
VALUES ($1,$2,$3,COALESCE($4,NOW()),COALESCE($5,NOW()))
ON CONFLICT (id) DO UPDATE SET
  mode = EXCLUDED.mode,
  updated_at = EXCLUDED.updated_at;`
	if err := pickExec(ctx, r.pool, qx, q, s.ID, s.OwnerID, string(s.Mode), s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if r.cache != nil {
		if qx == nil {
			_ = r.cache.Store(ctx, s)
		} else {
			// Inside a transaction the row may still roll back; never cache
			// uncommitted state, just invalidate.
			_ = r.cache.Delete(ctx, s.ID)
		}
	}
	return nil
}

func (r *SessionRepo) AppendMessage(ctx context.Context, qx any, m *model.ChatMessage) error {
	const q = `
INSERT INTO messages (session_id, seq, role, content, tool_call_id, tool_name, tool_args, tool_error, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,COALESCE($9,NOW()))
ON CONFLICT (session_id, seq) DO NOTHING;`
	var args []byte
	if len(m.ToolArgs) > 0 {
		args = m.ToolArgs
	}
	if err := pickExec(ctx, r.pool, qx, q,
		m.SessionID, m.Seq, string(m.Role), m.Content, m.ToolCallID, m.ToolName, args, m.ToolError, m.Timestamp); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, m.SessionID)
	}
	return nil
}

func (r *SessionRepo) UpsertDraft(ctx context.Context, qx any, d *model.OrderDraft) error {
	lines, err := json.Marshal(d.Lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}
	const q = `
INSERT INTO drafts (session_id, status, line_items, updated_at)
VALUES ($1,$2,$3,COALESCE($4,NOW()))
ON CONFLICT (session_id) DO UPDATE SET
  status = EXCLUDED.status,
  line_items = EXCLUDED.line_items,
  updated_at = EXCLUDED.updated_at;`
	if err := pickExec(ctx, r.pool, qx, q, d.SessionID, string(d.Status), lines, d.UpdatedAt); err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, d.SessionID)
	}
	return nil
}

func (r *SessionRepo) FindByID(ctx context.Context, qx any, id string) (*model.Session, error) {
	if r.cache != nil && qx == nil {
		if s, err := r.cache.Get(ctx, id); err == nil {
			_ = r.cache.Extend(ctx, id)
			return s, nil
		}
	}

	const qs = `SELECT id, owner_id, mode, created_at, updated_at FROM sessions WHERE id=$1;`
	row := pickRow(ctx, r.pool, qx, qs, id)
	var s model.Session
	var mode string
	if err := row.Scan(&s.ID, &s.OwnerID, &mode, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.Mode = model.AgentMode(mode)

	if err := r.loadMessages(ctx, qx, &s); err != nil {
		return nil, err
	}
	if err := r.loadDraft(ctx, qx, &s); err != nil {
		return nil, err
	}

	if r.cache != nil {
		_ = r.cache.Store(ctx, &s)
	}
	return &s, nil
}

func (r *SessionRepo) FindAllByOwner(ctx context.Context, qx any, ownerID string) ([]*model.Session, error) {
	const q = `SELECT id FROM sessions WHERE owner_id=$1 ORDER BY created_at DESC;`
	rows, err := pickQuery(ctx, r.pool, qx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*model.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.FindByID(ctx, qx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SessionRepo) loadMessages(ctx context.Context, qx any, s *model.Session) error {
	const q = `
SELECT seq, role, content, tool_call_id, tool_name, tool_args, tool_error, created_at
  FROM messages WHERE session_id=$1 ORDER BY seq ASC;`
	rows, err := pickQuery(ctx, r.pool, qx, q, s.ID)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m := model.ChatMessage{SessionID: s.ID}
		var role string
		var args []byte
		if err := rows.Scan(&m.Seq, &role, &m.Content, &m.ToolCallID, &m.ToolName, &args, &m.ToolError, &m.Timestamp); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.MessageRole(role)
		if len(args) > 0 {
			m.ToolArgs = json.RawMessage(args)
		}
		s.Messages = append(s.Messages, m)
	}
	return rows.Err()
}

func (r *SessionRepo) loadDraft(ctx context.Context, qx any, s *model.Session) error {
	const q = `SELECT status, line_items, updated_at FROM drafts WHERE session_id=$1;`
	row := pickRow(ctx, r.pool, qx, q, s.ID)
	var status string
	var lines []byte
	d := model.OrderDraft{SessionID: s.ID}
	if err := row.Scan(&status, &lines, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil // no draft yet
		}
		return fmt.Errorf("scan draft: %w", err)
	}
	d.Status = model.DraftStatus(status)
	if err := json.Unmarshal(lines, &d.Lines); err != nil {
		return fmt.Errorf("unmarshal lines: %w", err)
	}
	s.Draft = &d
	return nil
}
