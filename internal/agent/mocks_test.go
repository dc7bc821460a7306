package agent

import (
	"context"
	"sync"

	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/repository"
)

// ---- Fakes ----

type memCatalog struct {
	mu        sync.Mutex
	beverages map[string]*model.Beverage
}

var _ repository.CatalogRepository = (*memCatalog)(nil)

func newMemCatalog(bevs ...*model.Beverage) *memCatalog {
	m := &memCatalog{beverages: map[string]*model.Beverage{}}
	for _, b := range bevs {
		m.beverages[b.ID] = b
	}
	return m
}

func (m *memCatalog) Get(ctx context.Context, id string) (*model.Beverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b := m.beverages[id]; b != nil {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCatalog) ListAll(ctx context.Context) ([]*model.Beverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Beverage, 0, len(m.beverages))
	for _, b := range m.beverages {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCatalog) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.beverages, id)
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*model.SubmittedOrder
}

var _ repository.SubmittedOrderRepository = (*memOrders)(nil)

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]*model.SubmittedOrder{}}
}

func (m *memOrders) Save(ctx context.Context, qx any, o *model.SubmittedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.orders[o.ID] = o
	return nil
}

func (m *memOrders) FindByID(ctx context.Context, qx any, id string) (*model.SubmittedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o := m.orders[id]; o != nil {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memOrders) FindAllByOwner(ctx context.Context, qx any, ownerID string) ([]*model.SubmittedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SubmittedOrder
	for _, o := range m.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

// ---- Shared fixtures ----

func fixtureLatte() *model.Beverage {
	return &model.Beverage{
		ID:             "latte",
		Name:           "Latte",
		Description:    "Espresso with steamed milk.",
		BasePriceCents: 450,
		Tags:           []string{"espresso", "milk", "hot"},
		Axes: []model.CustomizationAxis{
			{Name: "size", Values: []string{"small", "medium", "large"}, Required: true},
			{Name: "milk", Values: []string{"whole", "oat", "almond"}, Default: "whole"},
		},
	}
}

func fixtureColdBrew() *model.Beverage {
	return &model.Beverage{
		ID:             "cold-brew",
		Name:           "Cold Brew",
		Description:    "Slow-steeped coffee over ice.",
		BasePriceCents: 400,
		Tags:           []string{"cold", "iced"},
		Axes: []model.CustomizationAxis{
			{Name: "size", Values: []string{"medium", "large"}, Required: true},
		},
	}
}
