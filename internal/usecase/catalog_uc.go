// File: internal/usecase/catalog_uc.go
package usecase

import (
	"context"

	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/repository"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

type CatalogUseCase interface {
	List(ctx context.Context) ([]*model.Beverage, error)
	Get(ctx context.Context, beverageID string) (*model.Beverage, error)
}

type catalogUC struct {
	catalog repository.CatalogRepository
}

func NewCatalogUseCase(catalog repository.CatalogRepository) *catalogUC {
	return &catalogUC{catalog: catalog}
}

func (c *catalogUC) List(ctx context.Context) ([]*model.Beverage, error) {
	return c.catalog.ListAll(ctx)
}

func (c *catalogUC) Get(ctx context.Context, beverageID string) (*model.Beverage, error) {
	return c.catalog.Get(ctx, beverageID)
}
