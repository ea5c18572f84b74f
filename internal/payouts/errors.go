package payouts

import (
	"errors"
	"fmt"

	"github.com/safar/go-sql-marketplace/internal/models"
)

var ErrNoDestination = errors.New("no payout destination")

type NoEligibleOrdersError struct {
	SellerID int64
}

func (e *NoEligibleOrdersError) Error() string {
	return fmt.Sprintf("seller %d has no orders eligible for payout", e.SellerID)
}

type InvalidPayoutTransitionError struct {
	From models.PayoutStatus
	To   models.PayoutStatus
}

func (e *InvalidPayoutTransitionError) Error() string {
	return fmt.Sprintf("invalid payout transition %s -> %s", e.From, e.To)
}
