// File: internal/infra/db/postgres/catalog_repo.go
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
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo reads orderable beverages. Customization axes are stored as a
// JSONB document per beverage; the catalog is small and read-heavy.
type CatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

func (r *CatalogRepo) Get(ctx context.Context, beverageID string) (*model.Beverage, error) {
	const q = `SELECT id, name, description, base_price_cents, tags, axes FROM beverages WHERE id=$1 AND available;`
	return scanBeverage(r.pool.QueryRow(ctx, q, beverageID))
}

func (r *CatalogRepo) ListAll(ctx context.Context) ([]*model.Beverage, error) {
	const q = `SELECT id, name, description, base_price_cents, tags, axes FROM beverages WHERE available ORDER BY name;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query beverages: %w", err)
	}
	defer rows.Close()
	var out []*model.Beverage
	for rows.Next() {
		b, err := scanBeverage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Save upserts one beverage. Not part of the read-only port; the seed
// command uses the concrete type.
func (r *CatalogRepo) Save(ctx context.Context, b *model.Beverage) error {
	axes, err := json.Marshal(b.Axes)
	if err != nil {
		return fmt.Errorf("marshal axes: %w", err)
	}
	const q = `
INSERT INTO beverages (id, name, description, base_price_cents, tags, axes, available)
VALUES ($1,$2,$3,$4,$5,$6,TRUE)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  description = EXCLUDED.description,
  base_price_cents = EXCLUDED.base_price_cents,
  tags = EXCLUDED.tags,
  axes = EXCLUDED.axes,
  available = TRUE;`
	_, err = r.pool.Exec(ctx, q, b.ID, b.Name, b.Description, b.BasePriceCents, b.Tags, axes)
	if err != nil {
		return fmt.Errorf("save beverage: %w", err)
	}
	return nil
}

// Remove marks a beverage unavailable. Drafts referencing it fail
// re-validation on the next tool write or at approval.
func (r *CatalogRepo) Remove(ctx context.Context, beverageID string) error {
	const q = `UPDATE beverages SET available = FALSE WHERE id=$1;`
	tag, err := r.pool.Exec(ctx, q, beverageID)
	if err != nil {
		return fmt.Errorf("remove beverage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanBeverage(row pgx.Row) (*model.Beverage, error) {
	var b model.Beverage
	var axes []byte
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.BasePriceCents, &b.Tags, &axes); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan beverage: %w", err)
	}
	if err := json.Unmarshal(axes, &b.Axes); err != nil {
		return nil, fmt.Errorf("unmarshal axes: %w", err)
	}
	return &b, nil
}
