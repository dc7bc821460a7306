package repository

import (
	"context"

	"barista-ai-ordering/internal/domain/model"
)

// SubmittedOrderRepository stores immutable confirmed orders. Save must
// reject a duplicate order id with domain.ErrAlreadyExists so approval
// stays exactly-once.
type SubmittedOrderRepository interface {
	Save(ctx context.Context, qx any, o *model.SubmittedOrder) error
	FindByID(ctx context.Context, qx any, id string) (*model.SubmittedOrder, error)
	FindAllByOwner(ctx context.Context, qx any, ownerID string) ([]*model.SubmittedOrder, error)
}
