// File: internal/infra/db/postgres/order_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/repository"
)

var _ repository.SubmittedOrderRepository = (*SubmittedOrderRepo)(nil)

const pgUniqueViolation = "23505"

// SubmittedOrderRepo stores immutable order snapshots. Insert-only: a
// duplicate id is a domain.ErrAlreadyExists so approval stays exactly-once.
type SubmittedOrderRepo struct {
	pool *pgxpool.Pool
}

func NewSubmittedOrderRepo(pool *pgxpool.Pool) *SubmittedOrderRepo {
	return &SubmittedOrderRepo{pool: pool}
}

func (r *SubmittedOrderRepo) Save(ctx context.Context, qx any, o *model.SubmittedOrder) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}
	const q = `
INSERT INTO submitted_orders (id, session_id, owner_id, line_items, total_cents, submitted_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	if err := pickExec(ctx, r.pool, qx, q, o.ID, o.SessionID, o.OwnerID, lines, o.TotalCents, o.SubmittedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func (r *SubmittedOrderRepo) FindByID(ctx context.Context, qx any, id string) (*model.SubmittedOrder, error) {
	const q = `SELECT id, session_id, owner_id, line_items, total_cents, submitted_at FROM submitted_orders WHERE id=$1;`
	return scanOrder(pickRow(ctx, r.pool, qx, q, id))
}

func (r *SubmittedOrderRepo) FindAllByOwner(ctx context.Context, qx any, ownerID string) ([]*model.SubmittedOrder, error) {
	const q = `
SELECT id, session_id, owner_id, line_items, total_cents, submitted_at
  FROM submitted_orders WHERE owner_id=$1 ORDER BY submitted_at DESC;`
	rows, err := pickQuery(ctx, r.pool, qx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()
	var out []*model.SubmittedOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*model.SubmittedOrder, error) {
	var o model.SubmittedOrder
	var lines []byte
	if err := row.Scan(&o.ID, &o.SessionID, &o.OwnerID, &lines, &o.TotalCents, &o.SubmittedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal lines: %w", err)
	}
	return &o, nil
}
