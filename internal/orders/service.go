// Package orders runs the order lifecycle: placement, the status state
// machine and the stock, earnings and wallet side effects of each edge.
package orders

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/inventory"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/safar/go-sql-marketplace/internal/notify"
	"github.com/safar/go-sql-marketplace/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type EarningsComputer interface {
	Compute(ctx context.Context, order *models.Order) (*models.Earnings, error)
}

type Config struct {
	Pricing         PricingRules
	ReturnWindow    time.Duration
	RestockOnReturn bool
	MaxRetries      int
}

type ItemRequest struct {
	ProductID int64
	Quantity  int
	Size      string
	Color     string
}

// PlaceOrderRequest takes its items either from Items or, with FromCart, from
// the buyer's cart, which is cleared on success.
type PlaceOrderRequest struct {
	Items         []ItemRequest
	FromCart      bool
	Address       models.Address
	PaymentMethod models.PaymentMethod
}

type Service struct {
	db              *sql.DB
	earnings        EarningsComputer
	observer        notify.Observer
	pricing         PricingRules
	returnWindow    time.Duration
	restockOnReturn bool
	txOpts          database.TxOptions
	now             func() time.Time
	log             logrus.FieldLogger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(db *sql.DB, calc EarningsComputer, observer notify.Observer, cfg Config, opts ...Option) *Service {
	txOpts := database.DefaultTxOptions()
	txOpts.MaxRetries = cfg.MaxRetries

	if observer == nil {
		observer = notify.Nop{}
	}

	s := &Service{
		db:              db,
		earnings:        calc,
		observer:        observer,
		pricing:         cfg.Pricing,
		returnWindow:    cfg.ReturnWindow,
		restockOnReturn: cfg.RestockOnReturn,
		txOpts:          txOpts,
		now:             time.Now,
		log:             logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) PlaceOrder(ctx context.Context, actor authz.Actor, req PlaceOrderRequest) (*models.Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.PaymentMethod)
	}
	if !req.FromCart && len(req.Items) == 0 {
		return nil, &EmptyCartError{BuyerID: actor.ID}
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, inventory.ErrInvalidQuantity)
		}
	}

	var order *models.Order
	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		items := req.Items
		if req.FromCart {
			cart, err := store.ListCartItems(ctx, tx, actor.ID)
			if err != nil {
				return err
			}
			items = cartItems(cart)
		}
		if len(items) == 0 {
			return &EmptyCartError{BuyerID: actor.ID}
		}

		lines := make([]inventory.Line, len(items))
		for i, item := range items {
			lines[i] = inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity}
		}

		reservation, err := inventory.Prepare(ctx, tx, lines)
		if err != nil {
			return err
		}
		sellerID, err := singleSeller(reservation.Products)
		if err != nil {
			return err
		}
		if err := reservation.Commit(ctx, tx); err != nil {
			return err
		}

		order = s.newOrder(actor, sellerID, items, reservation.Products, req, s.now())
		if err := store.InsertOrder(ctx, tx, order); err != nil {
			return err
		}

		if req.FromCart {
			return store.ClearCart(ctx, tx, actor.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observer.Notify(ctx, notify.Event{
		Type:        notify.OrderPlaced,
		OrderNumber: order.OrderNumber,
		To:          string(order.Status),
		ActorID:     actor.ID,
		ActorRole:   string(actor.Role),
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		Amount:      order.Pricing.GrandTotal,
		At:          order.CreatedAt,
	})
	return order, nil
}

func cartItems(cart []models.CartItem) []ItemRequest {
	items := make([]ItemRequest, len(cart))
	for i, c := range cart {
		items[i] = ItemRequest{ProductID: c.ProductID, Quantity: c.Quantity, Size: c.Size, Color: c.Color}
	}
	return items
}

func singleSeller(products map[int64]*models.Product) (int64, error) {
	var sellers []int64
	for _, p := range products {
		if !slices.Contains(sellers, p.SellerID) {
			sellers = append(sellers, p.SellerID)
		}
	}
	if len(sellers) != 1 {
		slices.Sort(sellers)
		return 0, &MixedSellerOrderError{SellerIDs: sellers}
	}
	return sellers[0], nil
}

func (s *Service) newOrder(actor authz.Actor, sellerID int64, items []ItemRequest, products map[int64]*models.Product, req PlaceOrderRequest, now time.Time) *models.Order {
	order := &models.Order{
		OrderNumber:     NewOrderNumber(now),
		BuyerID:         actor.ID,
		SellerID:        sellerID,
		Items:           make([]models.OrderItem, 0, len(items)),
		ShippingAddress: req.Address,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		Status:          models.OrderStatusConfirmed,
		Payout:          models.OrderPayout{Status: models.OrderPayoutNone},
	}

	itemsTotal := decimal.Zero
	for _, item := range items {
		p := products[item.ProductID]
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		itemsTotal = itemsTotal.Add(subtotal)

		order.Items = append(order.Items, models.OrderItem{
			ProductID:  p.ID,
			SellerID:   p.SellerID,
			CategoryID: p.CategoryID,
			SKU:        p.SKU,
			Name:       p.Name,
			Quantity:   item.Quantity,
			UnitPrice:  p.Price,
			Subtotal:   subtotal,
			Size:       item.Size,
			Color:      item.Color,
		})
	}
	order.Pricing = s.pricing.Price(itemsTotal, req.PaymentMethod)

	// no gateway: prepaid methods are treated as captured at placement
	if req.PaymentMethod.IsPrepaid() {
		order.PaymentStatus = models.PaymentStatusCompleted
		order.PaidAt = &now
	}

	order.History = []models.HistoryEntry{{
		Status:    models.OrderStatusConfirmed,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		Comment:   "order placed",
		At:        now,
	}}
	return order
}

// TransitionOrder moves an order along one edge of the state machine.
func (s *Service) TransitionOrder(ctx context.Context, actor authz.Actor, number string, to models.OrderStatus, comment string, extra TransitionExtra) (*models.Order, error) {
	return s.mutate(ctx, actor, number, comment, func(tx *sql.Tx, o *models.Order, now time.Time) error {
		if !CanTransition(o.Status, to) {
			return &InvalidTransitionError{From: o.Status, To: to}
		}
		if err := authorizeTransition(actor, o, to); err != nil {
			return err
		}
		return s.apply(ctx, tx, o, to, actor, comment, extra, now)
	})
}

// CancelOrder lets the buyer withdraw an order that has not started
// processing. Stock for every line is restored.
func (s *Service) CancelOrder(ctx context.Context, actor authz.Actor, number, reason string) (*models.Order, error) {
	return s.mutate(ctx, actor, number, reason, func(tx *sql.Tx, o *models.Order, now time.Time) error {
		if actor.ID != o.BuyerID {
			return fmt.Errorf("%s is not the buyer of order %s: %w", actor, o.OrderNumber, authz.ErrForbidden)
		}
		if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusConfirmed {
			return &OrderNotCancellableError{OrderNumber: o.OrderNumber, Status: o.Status}
		}
		return s.apply(ctx, tx, o, models.OrderStatusCancelled, actor, reason, TransitionExtra{Reason: reason}, now)
	})
}

// RequestReturn opens a return for a delivered order while the return window,
// inclusive of its last instant, is still open.
func (s *Service) RequestReturn(ctx context.Context, actor authz.Actor, number, reason string) (*models.Order, error) {
	return s.mutate(ctx, actor, number, reason, func(tx *sql.Tx, o *models.Order, now time.Time) error {
		if actor.ID != o.BuyerID {
			return fmt.Errorf("%s is not the buyer of order %s: %w", actor, o.OrderNumber, authz.ErrForbidden)
		}
		if o.Status != models.OrderStatusDelivered {
			return &InvalidTransitionError{From: o.Status, To: models.OrderStatusReturnRequested}
		}
		if o.DeliveredAt == nil || now.Sub(*o.DeliveredAt) > s.returnWindow {
			var delivered time.Time
			if o.DeliveredAt != nil {
				delivered = *o.DeliveredAt
			}
			return &ReturnWindowExpiredError{OrderNumber: o.OrderNumber, DeliveredAt: delivered, Window: s.returnWindow}
		}
		return s.apply(ctx, tx, o, models.OrderStatusReturnRequested, actor, reason, TransitionExtra{Reason: reason}, now)
	})
}

func (s *Service) GetOrder(ctx context.Context, actor authz.Actor, number string) (*models.Order, error) {
	order, err := store.GetOrderByNumber(ctx, s.db, number)
	if err != nil {
		return nil, err
	}
	if !actor.ActsFor(order.BuyerID) && !(actor.Role == authz.RoleSeller && actor.ID == order.SellerID) {
		return nil, fmt.Errorf("%s may not read order %s: %w", actor, number, authz.ErrForbidden)
	}
	return order, nil
}

func (s *Service) ListBuyerOrders(ctx context.Context, actor authz.Actor, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	return store.ListBuyerOrders(ctx, s.db, actor.ID, cursor, limit)
}

func (s *Service) ListSellerOrders(ctx context.Context, actor authz.Actor, sellerID int64, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	if err := authz.RequireSeller(actor, sellerID); err != nil {
		return nil, err
	}
	return store.ListSellerOrders(ctx, s.db, sellerID, cursor, limit)
}

// mutate loads the order under a row lock, lets fn change it and writes it
// back as a compare-and-swap on the status it was read in. The whole
// read-modify-write is retried on conflicts.
func (s *Service) mutate(ctx context.Context, actor authz.Actor, number, comment string, fn func(*sql.Tx, *models.Order, time.Time) error) (*models.Order, error) {
	var (
		order *models.Order
		from  models.OrderStatus
		at    time.Time
	)

	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		o, err := store.GetOrderByNumberForUpdate(ctx, tx, number)
		if err != nil {
			return err
		}

		from = o.Status
		at = s.now()
		if err := fn(tx, o, at); err != nil {
			return err
		}
		if err := store.UpdateOrder(ctx, tx, o, from); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observer.Notify(ctx, notify.Event{
		Type:        notify.OrderTransitioned,
		OrderNumber: order.OrderNumber,
		From:        string(from),
		To:          string(order.Status),
		ActorID:     actor.ID,
		ActorRole:   string(actor.Role),
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		Amount:      order.NetSellerEarning(),
		Comment:     comment,
		At:          at,
	})
	return order, nil
}

func (s *Service) apply(ctx context.Context, tx *sql.Tx, o *models.Order, to models.OrderStatus, actor authz.Actor, comment string, extra TransitionExtra, now time.Time) error {
	if err := advance(o, to, actor, comment, extra, now); err != nil {
		return err
	}

	switch to {
	case models.OrderStatusDelivered:
		return s.settleDelivery(ctx, tx, o, now)
	case models.OrderStatusCancelled:
		return inventory.Release(ctx, tx, orderLines(o))
	case models.OrderStatusReturned:
		if s.restockOnReturn {
			return inventory.Release(ctx, tx, orderLines(o))
		}
	case models.OrderStatusRefunded:
		return s.reverseEarnings(ctx, tx, o)
	}
	return nil
}

// settleDelivery freezes the earnings snapshot and credits the seller's
// pending balance.
func (s *Service) settleDelivery(ctx context.Context, tx *sql.Tx, o *models.Order, now time.Time) error {
	if o.Earnings != nil {
		return nil
	}

	e, err := s.earnings.Compute(ctx, o)
	if err != nil {
		return fmt.Errorf("compute earnings for %s: %w", o.OrderNumber, err)
	}
	e.ComputedAt = now
	o.Earnings = e
	o.Payout.Status = models.OrderPayoutUpcoming

	if !e.NetSellerEarning.IsPositive() {
		return nil
	}
	_, err = store.ApplyWalletDelta(ctx, tx, o.SellerID, store.WalletDelta{
		Pending:          e.NetSellerEarning,
		LifetimeEarnings: e.NetSellerEarning,
	})
	return err
}

// reverseEarnings withdraws a refunded order's earning from the seller's
// pending balance. Orders already batched into a payout are left to that
// payout's settlement.
func (s *Service) reverseEarnings(ctx context.Context, tx *sql.Tx, o *models.Order) error {
	if o.Payout.Status != models.OrderPayoutUpcoming {
		if o.Payout.Status != models.OrderPayoutNone {
			s.log.WithFields(logrus.Fields{
				"order":  o.OrderNumber,
				"payout": o.Payout.TransactionID,
				"status": o.Payout.Status,
			}).Warn("refunded order is already part of a payout")
		}
		return nil
	}

	o.Payout.Status = models.OrderPayoutReversed
	net := o.NetSellerEarning()
	if !net.IsPositive() {
		return nil
	}
	_, err := store.ApplyWalletDelta(ctx, tx, o.SellerID, store.WalletDelta{
		Pending:          net.Neg(),
		LifetimeEarnings: net.Neg(),
	})
	return err
}

func orderLines(o *models.Order) []inventory.Line {
	lines := make([]inventory.Line, len(o.Items))
	for i, item := range o.Items {
		lines[i] = inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}
