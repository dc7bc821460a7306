package redis

import (
	"context"
	"encoding/json"
	"time"

	"barista-ai-ordering/internal/domain/model"
)

// SessionCache keeps hot session documents in Redis in front of Postgres.
// Best-effort only: callers ignore cache failures and fall through to the
// repository.
type SessionCache struct {
	client *redClient
	ttl    time.Duration
}

func NewSessionCache(client *redClient, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

func (c *SessionCache) Store(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "session:"+session.ID, data, c.ttl)
}

func (c *SessionCache) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	data, err := c.client.Get(ctx, "session:"+sessionID)
	if err != nil {
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, "session:"+sessionID)
}

func (c *SessionCache) Extend(ctx context.Context, sessionID string) error {
	return c.client.Expire(ctx, "session:"+sessionID, c.ttl)
}
