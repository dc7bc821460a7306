// File: internal/usecase/approval_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/repository"
	"barista-ai-ordering/internal/infra/logging"
	"barista-ai-ordering/internal/infra/metrics"
	red "barista-ai-ordering/internal/infra/redis"
	"barista-ai-ordering/internal/infra/worker"
)

// Compile-time check
var _ ApprovalUseCase = (*approvalUC)(nil)

// ApprovalUseCase owns the one-way transition from mutable draft to durable
// submitted order. It never runs from inside the tool-calling loop; the chat
// endpoint can only move a draft to awaiting_confirmation.
type ApprovalUseCase interface {
	Approve(ctx context.Context, ownerID, sessionID string) (*model.SubmittedOrder, error)
	Abandon(ctx context.Context, ownerID, sessionID string) error
	ListOrders(ctx context.Context, ownerID string) ([]*model.SubmittedOrder, error)
}

type approvalUC struct {
	sessions repository.SessionRepository
	orders   repository.SubmittedOrderRepository
	catalog  repository.CatalogRepository
	tm       repository.TransactionManager
	locker   red.Locker
	pool     *worker.Pool
	log      *zerolog.Logger
}

func NewApprovalUseCase(
	sessions repository.SessionRepository,
	orders repository.SubmittedOrderRepository,
	catalog repository.CatalogRepository,
	tm repository.TransactionManager,
	locker red.Locker,
	pool *worker.Pool,
	logger *zerolog.Logger,
) *approvalUC {
	return &approvalUC{sessions: sessions, orders: orders, catalog: catalog, tm: tm, locker: locker, pool: pool, log: logger}
}

func (a *approvalUC) Approve(ctx context.Context, ownerID, sessionID string) (*model.SubmittedOrder, error) {
	token, err := a.locker.TryLock(ctx, "session_lock:"+sessionID, lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.locker.Unlock(context.Background(), "session_lock:"+sessionID, token) }()

	ctx = logging.WithSessID(logging.WithOwnerID(ctx, ownerID), sessionID)
	log := logging.With(ctx, a.log)
	defer logging.TraceDuration(log, "ApprovalUC.Approve")()

	sess, err := a.loadOwned(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	draft := sess.Draft
	if draft == nil || draft.Status != model.DraftAwaitingConfirmation {
		return nil, domain.ErrDraftNotReady
	}

	// Every line is independently re-validated against the current catalog;
	// the menu may have changed since request_confirmation.
	var invalid []int
	var reasons []string
	for i, li := range draft.Lines {
		bev, err := a.catalog.Get(ctx, li.BeverageID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				invalid = append(invalid, i)
				reasons = append(reasons, fmt.Sprintf("beverage %q no longer on the menu", li.BeverageID))
				continue
			}
			return nil, fmt.Errorf("catalog lookup: %w", err)
		}
		if verr := bev.ValidateLineItem(li); verr != nil {
			invalid = append(invalid, i)
			reasons = append(reasons, verr.Error())
		}
	}
	if len(invalid) > 0 {
		draft.RevertToBuilding()
		if err := a.sessions.UpsertDraft(ctx, nil, draft); err != nil {
			return nil, fmt.Errorf("revert draft: %w", err)
		}
		metrics.IncOrderStale()
		log.Info().Ints("invalid_lines", invalid).Msg("approval rejected, draft reverted to building")
		return nil, &domain.StaleOrderError{SessionID: sessionID, InvalidLines: invalid, Reasons: reasons}
	}

	// Order snapshot and draft confirmation commit together. A failure
	// anywhere rolls the whole commit back, so a retried Approve finds the
	// draft still awaiting_confirmation and no orphaned order.
	order := model.NewSubmittedOrder(newOrderID(), draft, ownerID)
	draft.MarkConfirmed()
	err = a.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := a.orders.Save(ctx, tx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		if err := a.sessions.UpsertDraft(ctx, tx, draft); err != nil {
			return fmt.Errorf("confirm draft: %w", err)
		}
		if err := a.sessions.Save(ctx, tx, sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
	if err != nil {
		draft.Status = model.DraftAwaitingConfirmation
		return nil, err
	}
	metrics.IncOrderSubmitted()

	if a.pool != nil {
		orderID := order.ID
		total := order.TotalCents
		if err := a.pool.Submit(func(context.Context) error {
			a.log.Info().Str("order_id", orderID).Int64("total_cents", total).Msg("order receipt recorded")
			return nil
		}); err != nil {
			log.Warn().Err(err).Msg("receipt task not queued")
		}
	}
	return order, nil
}

func (a *approvalUC) Abandon(ctx context.Context, ownerID, sessionID string) error {
	token, err := a.locker.TryLock(ctx, "session_lock:"+sessionID, lockTTL)
	if err != nil {
		return err
	}
	defer func() { _ = a.locker.Unlock(context.Background(), "session_lock:"+sessionID, token) }()

	sess, err := a.loadOwned(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}
	if sess.Draft == nil || !sess.Draft.Active() {
		return domain.ErrNotFound
	}
	sess.Draft.MarkAbandoned()
	if err := a.sessions.UpsertDraft(ctx, nil, sess.Draft); err != nil {
		return fmt.Errorf("abandon draft: %w", err)
	}
	return a.sessions.Save(ctx, nil, sess)
}

func (a *approvalUC) ListOrders(ctx context.Context, ownerID string) ([]*model.SubmittedOrder, error) {
	return a.orders.FindAllByOwner(ctx, nil, ownerID)
}

func (a *approvalUC) loadOwned(ctx context.Context, ownerID, sessionID string) (*model.Session, error) {
	sess, err := a.sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return sess, nil
}

func newOrderID() string { return ulid.Make().String() }
