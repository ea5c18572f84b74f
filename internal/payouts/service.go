// Package payouts batches a seller's delivered orders into payout
// transactions and settles them against the seller's wallet.
package payouts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/safar/go-sql-marketplace/internal/notify"
	"github.com/safar/go-sql-marketplace/internal/store"
	"github.com/sirupsen/logrus"
)

// Locker runs fn inside an exclusive section named by key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

type CreatePayoutRequest struct {
	SellerID int64
	// OrderIDs selects orders to include; empty takes every eligible order.
	OrderIDs []int64
	// Destination overrides the seller's stored destination when set.
	Destination *models.PaymentDestination
}

type Service struct {
	db       *sql.DB
	locker   Locker
	observer notify.Observer
	txOpts   database.TxOptions
	now      func() time.Time
	log      logrus.FieldLogger
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(db *sql.DB, observer notify.Observer, maxRetries int, opts ...Option) *Service {
	txOpts := database.DefaultTxOptions()
	txOpts.MaxRetries = maxRetries

	if observer == nil {
		observer = notify.Nop{}
	}

	s := &Service{
		db:       db,
		observer: observer,
		txOpts:   txOpts,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CollectEligible(ctx context.Context, actor authz.Actor, sellerID int64) ([]models.Order, error) {
	if err := authz.RequireSeller(actor, sellerID); err != nil {
		return nil, err
	}
	return store.ListEligiblePayoutOrders(ctx, s.db, sellerID)
}

// CreatePayout batches the selected eligible orders into a new pending
// payout. Orders already taken by a concurrent batch are skipped.
func (s *Service) CreatePayout(ctx context.Context, actor authz.Actor, req CreatePayoutRequest) (*models.PayoutTransaction, error) {
	if err := authz.RequireSeller(actor, req.SellerID); err != nil {
		return nil, err
	}

	var payout *models.PayoutTransaction
	create := func(ctx context.Context) error {
		return database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
			seller, err := store.GetSeller(ctx, tx, req.SellerID)
			if err != nil {
				return err
			}

			dest := seller.PayoutDestination
			if req.Destination != nil && !req.Destination.IsZero() {
				dest = *req.Destination
			}
			if dest.IsZero() {
				return fmt.Errorf("seller %d: %w", req.SellerID, ErrNoDestination)
			}

			now := s.now()
			txnID := NewTransactionID(now)
			batched, err := store.BatchOrders(ctx, tx, req.SellerID, req.OrderIDs, txnID)
			if err != nil {
				return err
			}
			if len(batched) == 0 {
				return &NoEligibleOrdersError{SellerID: req.SellerID}
			}

			p := newPayout(txnID, req.SellerID, dest, batched, "")
			if err := store.InsertPayout(ctx, tx, p); err != nil {
				return err
			}
			payout = p
			return nil
		})
	}

	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, fmt.Sprintf("payout:%d", req.SellerID), create)
	} else {
		err = create(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payout": payout.TransactionID,
		"seller": payout.SellerID,
		"orders": len(payout.OrderIDs),
		"amount": payout.Amount.String(),
	}).Info("payout created")
	s.notify(ctx, notify.PayoutCreated, actor, payout, "", "")
	return payout, nil
}

func newPayout(txnID string, sellerID int64, dest models.PaymentDestination, orders []models.Order, retryOf string) *models.PayoutTransaction {
	breakdown := Breakdown(orders)
	return &models.PayoutTransaction{
		TransactionID: txnID,
		SellerID:      sellerID,
		Amount:        breakdown.NetAmount,
		OrderIDs:      orderIDs(orders),
		Destination:   dest,
		Status:        models.PayoutStatusPending,
		Breakdown:     breakdown,
		RetryOf:       retryOf,
	}
}

func (s *Service) MarkProcessing(ctx context.Context, actor authz.Actor, txnID string) (*models.PayoutTransaction, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, txnID, models.PayoutStatusProcessing, "", func(_ *sql.Tx, p *models.PayoutTransaction, now time.Time) error {
		p.ProcessingAt = &now
		p.ProcessedBy = &actor.ID
		return nil
	})
}

// MarkCompleted settles the payout: its orders become paid out and the amount
// moves from the seller's pending balance into lifetime withdrawn.
func (s *Service) MarkCompleted(ctx context.Context, actor authz.Actor, txnID, gatewayRef string) (*models.PayoutTransaction, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, txnID, models.PayoutStatusCompleted, "", func(tx *sql.Tx, p *models.PayoutTransaction, now time.Time) error {
		p.CompletedAt = &now
		p.GatewayRef = gatewayRef
		p.ProcessedBy = &actor.ID

		if _, err := store.MovePayoutOrders(ctx, tx, p.TransactionID, models.OrderPayoutBatched, models.OrderPayoutCompleted, p.TransactionID); err != nil {
			return err
		}
		_, err := store.ApplyWalletDelta(ctx, tx, p.SellerID, store.WalletDelta{
			Pending:           p.Amount.Neg(),
			LifetimeWithdrawn: p.Amount,
			PayoutAt:          &now,
		})
		return err
	})
}

// MarkFailed leaves the orders linked to the payout as failed until an admin
// retries it.
func (s *Service) MarkFailed(ctx context.Context, actor authz.Actor, txnID, reason, code string) (*models.PayoutTransaction, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, txnID, models.PayoutStatusFailed, reason, func(tx *sql.Tx, p *models.PayoutTransaction, now time.Time) error {
		p.FailedAt = &now
		p.FailureReason = reason
		p.FailureCode = code
		p.ProcessedBy = &actor.ID

		_, err := store.MovePayoutOrders(ctx, tx, p.TransactionID, models.OrderPayoutBatched, models.OrderPayoutFailed, p.TransactionID)
		return err
	})
}

// CancelPayout withdraws a payout before settlement and returns its orders to
// the eligible pool. The reason is kept in the failure reason column.
func (s *Service) CancelPayout(ctx context.Context, actor authz.Actor, txnID, reason string) (*models.PayoutTransaction, error) {
	return s.transition(ctx, actor, txnID, models.PayoutStatusCancelled, reason, func(tx *sql.Tx, p *models.PayoutTransaction, now time.Time) error {
		if err := authz.RequireSeller(actor, p.SellerID); err != nil {
			return err
		}
		p.CancelledAt = &now
		p.FailureReason = reason

		_, err := store.MovePayoutOrders(ctx, tx, p.TransactionID, models.OrderPayoutBatched, models.OrderPayoutUpcoming, "")
		return err
	})
}

// RetryPayout re-batches the orders of a failed payout into a new pending
// payout that points back at the failed one. The failed payout is untouched.
func (s *Service) RetryPayout(ctx context.Context, actor authz.Actor, txnID string) (*models.PayoutTransaction, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var payout *models.PayoutTransaction
	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		failed, err := store.GetPayoutForUpdate(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if failed.Status != models.PayoutStatusFailed {
			return &InvalidPayoutTransitionError{From: failed.Status, To: models.PayoutStatusPending}
		}

		newID := NewTransactionID(s.now())
		moved, err := store.MovePayoutOrders(ctx, tx, failed.TransactionID, models.OrderPayoutFailed, models.OrderPayoutBatched, newID)
		if err != nil {
			return err
		}
		if len(moved) == 0 {
			return &NoEligibleOrdersError{SellerID: failed.SellerID}
		}

		p := newPayout(newID, failed.SellerID, failed.Destination, moved, failed.TransactionID)
		if err := store.InsertPayout(ctx, tx, p); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.PayoutCreated, actor, payout, "", "retry of "+txnID)
	return payout, nil
}

func (s *Service) GetPayout(ctx context.Context, actor authz.Actor, txnID string) (*models.PayoutTransaction, error) {
	p, err := store.GetPayout(ctx, s.db, txnID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireSeller(actor, p.SellerID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListSellerPayouts(ctx context.Context, actor authz.Actor, sellerID int64, page, pageSize int) (*store.OffsetPage[models.PayoutTransaction], error) {
	if err := authz.RequireSeller(actor, sellerID); err != nil {
		return nil, err
	}
	return store.ListSellerPayouts(ctx, s.db, sellerID, page, pageSize)
}

func (s *Service) GetWallet(ctx context.Context, actor authz.Actor, sellerID int64) (*models.SellerWallet, error) {
	if err := authz.RequireSeller(actor, sellerID); err != nil {
		return nil, err
	}
	seller, err := store.GetSeller(ctx, s.db, sellerID)
	if err != nil {
		return nil, err
	}
	return &seller.Wallet, nil
}

// transition locks the payout, checks the edge, lets fn stamp the row and
// apply side effects, then writes it back as a compare-and-swap on the status
// it was read in.
func (s *Service) transition(ctx context.Context, actor authz.Actor, txnID string, to models.PayoutStatus, comment string, fn func(*sql.Tx, *models.PayoutTransaction, time.Time) error) (*models.PayoutTransaction, error) {
	var (
		payout *models.PayoutTransaction
		from   models.PayoutStatus
	)

	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		p, err := store.GetPayoutForUpdate(ctx, tx, txnID)
		if err != nil {
			return err
		}

		from = p.Status
		if !CanTransition(from, to) {
			return &InvalidPayoutTransitionError{From: from, To: to}
		}

		p.Status = to
		if err := fn(tx, p, s.now()); err != nil {
			return err
		}
		if err := store.UpdatePayout(ctx, tx, p, from); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.PayoutStatusChanged, actor, payout, from, comment)
	return payout, nil
}

func (s *Service) notify(ctx context.Context, typ notify.EventType, actor authz.Actor, p *models.PayoutTransaction, from models.PayoutStatus, comment string) {
	s.observer.Notify(ctx, notify.Event{
		Type:      typ,
		PayoutID:  p.TransactionID,
		From:      string(from),
		To:        string(p.Status),
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		SellerID:  p.SellerID,
		Amount:    p.Amount,
		Comment:   comment,
		At:        p.UpdatedAt,
	})
}
