package repository

import (
	"context"

	"barista-ai-ordering/internal/domain/model"
)

// CatalogRepository is the read-only accessor for orderable beverages.
// Pure read, no side effects; tools re-validate against it at write time
// because the catalog may change between turns.
type CatalogRepository interface {
	Get(ctx context.Context, beverageID string) (*model.Beverage, error)
	ListAll(ctx context.Context) ([]*model.Beverage, error)
}
