package orders_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/earnings"
	"github.com/safar/go-sql-marketplace/internal/inventory"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/safar/go-sql-marketplace/internal/orders"
	"github.com/safar/go-sql-marketplace/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	svc   *orders.Service
	fx    *testutil.Fixtures
	clock *clock
}

func newEnv(t *testing.T, restockOnReturn bool) *env {
	db := testutil.NewPostgres(t)
	c := &clock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}

	calc := earnings.NewCalculator(earnings.NewStoreRates(db), decimal.RequireFromString("0.01"))
	svc := orders.NewService(db, calc, nil, orders.Config{
		Pricing: orders.PricingRules{
			FreeShippingThreshold:  decimal.NewFromInt(500),
			FlatShippingFee:        decimal.NewFromInt(40),
			PrepaidDiscountPercent: decimal.NewFromInt(5),
			TaxRate:                decimal.Zero,
		},
		ReturnWindow:    7 * 24 * time.Hour,
		RestockOnReturn: restockOnReturn,
		MaxRetries:      3,
	}, orders.WithClock(c.Now))

	return &env{svc: svc, fx: testutil.NewFixtures(t, db), clock: c}
}

func (e *env) deliver(t *testing.T, seller authz.Actor, number string) *models.Order {
	t.Helper()
	ctx := context.Background()

	var o *models.Order
	var err error
	for _, to := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		o, err = e.svc.TransitionOrder(ctx, seller, number, to, "", orders.TransitionExtra{})
		require.NoError(t, err, "transition to %s", to)
	}
	return o
}

func TestPlaceAndDeliver(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	buyer := e.fx.Buyer()
	seller := e.fx.Seller()
	category := e.fx.Category("0.10")
	product := e.fx.Product(seller.ID, category.ID, "100.00", 5)

	order, err := e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		Items:         []orders.ItemRequest{{ProductID: product.ID, Quantity: 2}},
		Address:       e.fx.Address(),
		PaymentMethod: models.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, 3, e.fx.Stock(product.ID))
	assert.True(t, decimal.NewFromInt(240).Equal(order.Pricing.GrandTotal))
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Regexp(t, `^ORD-\d{14}-\d{6}$`, order.OrderNumber)

	delivered := e.deliver(t, seller, order.OrderNumber)
	require.NotNil(t, delivered.Earnings)
	assert.True(t, decimal.NewFromInt(20).Equal(delivered.Earnings.PlatformCommission))
	assert.True(t, decimal.NewFromInt(2).Equal(delivered.Earnings.TotalTax))
	assert.True(t, decimal.NewFromInt(178).Equal(delivered.NetSellerEarning()))
	assert.Equal(t, models.OrderPayoutUpcoming, delivered.Payout.Status)
	assert.Equal(t, models.PaymentStatusCompleted, delivered.PaymentStatus)
	require.NotNil(t, delivered.PaidAt)

	wallet := e.fx.Wallet(seller.ID)
	assert.True(t, decimal.NewFromInt(178).Equal(wallet.Pending))
	assert.True(t, decimal.NewFromInt(178).Equal(wallet.LifetimeEarnings))

	stored, err := e.svc.GetOrder(ctx, buyer, order.OrderNumber)
	require.NoError(t, err)
	assert.Len(t, stored.History, 4)
	assert.True(t, orders.ValidHistory(stored.History))
	assert.True(t, delivered.Earnings.NetSellerEarning.Equal(stored.Earnings.NetSellerEarning))
}

func TestConcurrentPlacementNeverOversells(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	seller := e.fx.Seller()
	product := e.fx.Product(seller.ID, e.fx.Category("0.05").ID, "50.00", 5)
	buyers := []authz.Actor{e.fx.Buyer(), e.fx.Buyer()}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, buyer := range buyers {
		wg.Add(1)
		go func(i int, buyer authz.Actor) {
			defer wg.Done()
			_, errs[i] = e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
				Items:         []orders.ItemRequest{{ProductID: product.ID, Quantity: 3}},
				Address:       e.fx.Address(),
				PaymentMethod: models.PaymentMethodCard,
			})
		}(i, buyer)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *inventory.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 2, insufficient.Available)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, e.fx.Stock(product.ID))
}

func TestPlaceOrderFailureLeavesStockUntouched(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	buyer := e.fx.Buyer()
	seller := e.fx.Seller()
	category := e.fx.Category("0.05")
	plenty := e.fx.Product(seller.ID, category.ID, "10.00", 10)
	scarce := e.fx.Product(seller.ID, category.ID, "10.00", 1)

	_, err := e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		Items: []orders.ItemRequest{
			{ProductID: plenty.ID, Quantity: 4},
			{ProductID: scarce.ID, Quantity: 2},
		},
		PaymentMethod: models.PaymentMethodCOD,
	})
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, scarce.ID, insufficient.ProductID)

	other := e.fx.Seller()
	foreign := e.fx.Product(other.ID, category.ID, "10.00", 10)
	_, err = e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		Items: []orders.ItemRequest{
			{ProductID: plenty.ID, Quantity: 1},
			{ProductID: foreign.ID, Quantity: 1},
		},
		PaymentMethod: models.PaymentMethodCOD,
	})
	var mixed *orders.MixedSellerOrderError
	require.ErrorAs(t, err, &mixed)

	_, err = e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		Items:         []orders.ItemRequest{{ProductID: 987654, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	var notFound *inventory.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)

	assert.Equal(t, 10, e.fx.Stock(plenty.ID))
	assert.Equal(t, 1, e.fx.Stock(scarce.ID))
	assert.Equal(t, 10, e.fx.Stock(foreign.ID))
}

func TestPlaceFromCartClearsCart(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	buyer := e.fx.Buyer()
	seller := e.fx.Seller()
	product := e.fx.Product(seller.ID, e.fx.Category("0.05").ID, "600.00", 4)

	require.NoError(t, e.fx.AddToCart(buyer.ID, product.ID, 2))

	order, err := e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		FromCart:      true,
		Address:       e.fx.Address(),
		PaymentMethod: models.PaymentMethodUPI,
	})
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(order.Pricing.ShippingCharge))
	assert.True(t, decimal.NewFromInt(60).Equal(order.Pricing.Discount))
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Empty(t, e.fx.Cart(buyer.ID))

	_, err = e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		FromCart:      true,
		PaymentMethod: models.PaymentMethodUPI,
	})
	var empty *orders.EmptyCartError
	assert.ErrorAs(t, err, &empty)
}

func TestCancelRestoresStock(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	buyer := e.fx.Buyer()
	seller := e.fx.Seller()
	product := e.fx.Product(seller.ID, e.fx.Category("0.05").ID, "10.00", 8)

	order, err := e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		Items:         []orders.ItemRequest{{ProductID: product.ID, Quantity: 3}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, e.fx.Stock(product.ID))

	_, err = e.svc.CancelOrder(ctx, e.fx.Buyer(), order.OrderNumber, "not mine")
	assert.ErrorIs(t, err, authz.ErrForbidden)

	cancelled, err := e.svc.CancelOrder(ctx, buyer, order.OrderNumber, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.CancellationReason)
	assert.Equal(t, 8, e.fx.Stock(product.ID))

	_, err = e.svc.CancelOrder(ctx, buyer, order.OrderNumber, "again")
	var notCancellable *orders.OrderNotCancellableError
	require.ErrorAs(t, err, &notCancellable)

	admin := e.fx.Admin()
	_, err = e.svc.TransitionOrder(ctx, admin, order.OrderNumber, models.OrderStatusConfirmed, "", orders.TransitionExtra{})
	var invalid *orders.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	stored, err := e.svc.GetOrder(ctx, admin, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, 8, e.fx.Stock(product.ID))
}

func TestCancelAfterProcessingIsRefused(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	buyer := e.fx.Buyer()
	seller := e.fx.Seller()
	product := e.fx.Product(seller.ID, e.fx.Category("0.05").ID, "10.00", 8)

	order, err := e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		Items:         []orders.ItemRequest{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	require.NoError(t, err)

	_, err = e.svc.TransitionOrder(ctx, seller, order.OrderNumber, models.OrderStatusProcessing, "", orders.TransitionExtra{})
	require.NoError(t, err)

	_, err = e.svc.CancelOrder(ctx, buyer, order.OrderNumber, "too late")
	var notCancellable *orders.OrderNotCancellableError
	require.ErrorAs(t, err, &notCancellable)
	assert.Equal(t, models.OrderStatusProcessing, notCancellable.Status)
}

func TestReturnWindowBoundary(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	buyer := e.fx.Buyer()
	seller := e.fx.Seller()
	product := e.fx.Product(seller.ID, e.fx.Category("0.10").ID, "100.00", 10)

	place := func() string {
		order, err := e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
			Items:         []orders.ItemRequest{{ProductID: product.ID, Quantity: 1}},
			PaymentMethod: models.PaymentMethodCOD,
		})
		require.NoError(t, err)
		e.deliver(t, seller, order.OrderNumber)
		return order.OrderNumber
	}

	onTime := place()
	late := place()

	e.clock.Advance(7 * 24 * time.Hour)
	requested, err := e.svc.RequestReturn(ctx, buyer, onTime, "damaged")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReturnRequested, requested.Status)
	require.NotNil(t, requested.ReturnRequest)
	assert.Equal(t, "damaged", requested.ReturnRequest.Reason)

	e.clock.Advance(24 * time.Hour)
	_, err = e.svc.RequestReturn(ctx, buyer, late, "damaged")
	var expired *orders.ReturnWindowExpiredError
	require.ErrorAs(t, err, &expired)

	stockBefore := e.fx.Stock(product.ID)
	returned, err := e.svc.TransitionOrder(ctx, seller, onTime, models.OrderStatusReturned, "received", orders.TransitionExtra{})
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, stockBefore+1, e.fx.Stock(product.ID))
}

func TestRefundReversesPendingEarnings(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	buyer := e.fx.Buyer()
	seller := e.fx.Seller()
	admin := e.fx.Admin()
	product := e.fx.Product(seller.ID, e.fx.Category("0.10").ID, "100.00", 10)

	order, err := e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
		Items:         []orders.ItemRequest{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	require.NoError(t, err)
	e.deliver(t, seller, order.OrderNumber)
	assert.True(t, decimal.NewFromInt(89).Equal(e.fx.Wallet(seller.ID).Pending))

	_, err = e.svc.RequestReturn(ctx, buyer, order.OrderNumber, "faulty")
	require.NoError(t, err)
	_, err = e.svc.TransitionOrder(ctx, seller, order.OrderNumber, models.OrderStatusReturned, "", orders.TransitionExtra{})
	require.NoError(t, err)

	_, err = e.svc.TransitionOrder(ctx, seller, order.OrderNumber, models.OrderStatusRefunded, "", orders.TransitionExtra{})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	refunded, err := e.svc.TransitionOrder(ctx, admin, order.OrderNumber, models.OrderStatusRefunded, "", orders.TransitionExtra{})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPayoutReversed, refunded.Payout.Status)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)

	wallet := e.fx.Wallet(seller.ID)
	assert.True(t, wallet.Pending.IsZero())
	assert.True(t, wallet.LifetimeEarnings.IsZero())
	assert.True(t, orders.ValidHistory(refunded.History))
}

func TestListBuyerOrdersPages(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	buyer := e.fx.Buyer()
	seller := e.fx.Seller()
	product := e.fx.Product(seller.ID, e.fx.Category("0.10").ID, "10.00", 10)

	for i := 0; i < 3; i++ {
		_, err := e.svc.PlaceOrder(ctx, buyer, orders.PlaceOrderRequest{
			Items:         []orders.ItemRequest{{ProductID: product.ID, Quantity: 1}},
			PaymentMethod: models.PaymentMethodCOD,
		})
		require.NoError(t, err)
	}

	first, err := e.svc.ListBuyerOrders(ctx, buyer, "", 2)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)

	second, err := e.svc.ListBuyerOrders(ctx, buyer, first.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)

}
