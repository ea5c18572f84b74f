package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-sql-marketplace/internal/models"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

type EmptyCartError struct {
	BuyerID int64
}

func (e *EmptyCartError) Error() string {
	return fmt.Sprintf("buyer %d has nothing to order", e.BuyerID)
}

type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

type OrderNotCancellableError struct {
	OrderNumber string
	Status      models.OrderStatus
}

func (e *OrderNotCancellableError) Error() string {
	return fmt.Sprintf("order %s cannot be cancelled in status %s", e.OrderNumber, e.Status)
}

type ReturnWindowExpiredError struct {
	OrderNumber string
	DeliveredAt time.Time
	Window      time.Duration
}

func (e *ReturnWindowExpiredError) Error() string {
	return fmt.Sprintf("return window of %s for order %s closed at %s",
		e.Window, e.OrderNumber, e.DeliveredAt.Add(e.Window).Format(time.RFC3339))
}

// MixedSellerOrderError is returned when the requested items belong to more
// than one seller. Each order settles into exactly one seller's payout.
type MixedSellerOrderError struct {
	SellerIDs []int64
}

func (e *MixedSellerOrderError) Error() string {
	return fmt.Sprintf("items belong to several sellers %v; place one order per seller", e.SellerIDs)
}
