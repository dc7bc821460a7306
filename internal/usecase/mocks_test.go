package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"barista-ai-ordering/internal/config"
	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/repository"
	"barista-ai-ordering/internal/infra/logging"
	red "barista-ai-ordering/internal/infra/redis"
)

// ---- Fakes ----

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	messages map[string][]model.ChatMessage
	drafts   map[string]*model.OrderDraft

	saveErr     error // simulate persistence failures
	lastSaveQx  any   // qx handle seen by the latest Save
	lastDraftQx any   // qx handle seen by the latest UpsertDraft
}

var _ repository.SessionRepository = (*memSessionRepo)(nil)

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{
		sessions: map[string]*model.Session{},
		messages: map[string][]model.ChatMessage{},
		drafts:   map[string]*model.OrderDraft{},
	}
}

func (m *memSessionRepo) FindByID(ctx context.Context, qx any, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	if s == nil {
		return nil, domain.ErrNotFound
	}
	cp := *s
	cp.Messages = append([]model.ChatMessage(nil), m.messages[id]...)
	if d := m.drafts[id]; d != nil {
		dc := *d
		dc.Lines = append([]model.OrderLineItem(nil), d.Lines...)
		cp.Draft = &dc
	}
	return &cp, nil
}

func (m *memSessionRepo) Save(ctx context.Context, qx any, s *model.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSaveQx = qx
	cp := *s
	cp.Messages = nil
	cp.Draft = nil
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) AppendMessage(ctx context.Context, qx any, msg *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[msg.SessionID] == nil {
		return domain.ErrNotFound
	}
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], *msg)
	return nil
}

func (m *memSessionRepo) UpsertDraft(ctx context.Context, qx any, d *model.OrderDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDraftQx = qx
	dc := *d
	dc.Lines = append([]model.OrderLineItem(nil), d.Lines...)
	m.drafts[d.SessionID] = &dc
	return nil
}

func (m *memSessionRepo) FindAllByOwner(ctx context.Context, qx any, ownerID string) ([]*model.Session, error) {
	m.mu.Lock()
	ids := make([]string, 0)
	for id, s := range m.sessions {
		if s.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	sort.Strings(ids)
	out := make([]*model.Session, 0, len(ids))
	for _, id := range ids {
		s, err := m.FindByID(ctx, qx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

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

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.SubmittedOrder

	saveErr    error
	lastSaveQx any
}

var _ repository.SubmittedOrderRepository = (*memOrderRepo)(nil)

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[string]*model.SubmittedOrder{}}
}

func (m *memOrderRepo) Save(ctx context.Context, qx any, o *model.SubmittedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSaveQx = qx
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.orders[o.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.orders[o.ID] = o
	return nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, qx any, id string) (*model.SubmittedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o := m.orders[id]; o != nil {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memOrderRepo) FindAllByOwner(ctx context.Context, qx any, ownerID string) ([]*model.SubmittedOrder, error) {
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

// memTx is the sentinel handle memTxManager passes to callbacks so tests can
// assert every statement of a commit ran inside the same transaction.
type memTx struct{ rolledBack bool }

type memTxManager struct {
	mu  sync.Mutex
	txs []*memTx

	withTxFunc func(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*memTxManager)(nil)

func newMemTxManager() *memTxManager { return &memTxManager{} }

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.withTxFunc != nil {
		return m.withTxFunc(ctx, fn)
	}
	tx := &memTx{}
	m.mu.Lock()
	m.txs = append(m.txs, tx)
	m.mu.Unlock()
	if err := fn(ctx, tx); err != nil {
		tx.rolledBack = true
		return err
	}
	return nil
}

// memLocker mirrors the Redis locker's contract in memory so the
// SessionBusy property is testable without a server.
type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

var _ red.Locker = (*memLocker)(nil)

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]string{}}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return "", domain.ErrSessionBusy
	}
	token := key + "-token"
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// ---- Shared fixtures ----

func testLogger() *zerolog.Logger {
	return logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
}

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
