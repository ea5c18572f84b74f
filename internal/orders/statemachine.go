package orders

import (
	"fmt"
	"time"

	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/models"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:         {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:       {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing:      {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:         {models.OrderStatusOutForDelivery, models.OrderStatusDelivered},
	models.OrderStatusOutForDelivery:  {models.OrderStatusDelivered},
	models.OrderStatusDelivered:       {models.OrderStatusReturnRequested},
	models.OrderStatusReturnRequested: {models.OrderStatusReturned},
	models.OrderStatusReturned:        {models.OrderStatusRefunded},
	models.OrderStatusCancelled:       nil,
	models.OrderStatusRefunded:        nil,
}

// sellerTargets are the statuses the order's own seller may move it to.
var sellerTargets = map[models.OrderStatus]bool{
	models.OrderStatusProcessing:     true,
	models.OrderStatusShipped:        true,
	models.OrderStatusOutForDelivery: true,
	models.OrderStatusDelivered:      true,
	models.OrderStatusReturned:       true,
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func AllowedTargets(from models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus(nil), transitions[from]...)
}

func IsTerminal(s models.OrderStatus) bool {
	return len(transitions[s]) == 0
}

// ValidHistory reports whether every consecutive pair of entries is an edge
// of the transition table.
func ValidHistory(history []models.HistoryEntry) bool {
	for i := 1; i < len(history); i++ {
		if !CanTransition(history[i-1].Status, history[i].Status) {
			return false
		}
	}
	return true
}

func authorizeTransition(actor authz.Actor, o *models.Order, to models.OrderStatus) error {
	if actor.IsAdmin() {
		return nil
	}
	if sellerTargets[to] && actor.Role == authz.RoleSeller && actor.ID == o.SellerID {
		return nil
	}
	return fmt.Errorf("%s may not move order %s to %s: %w", actor, o.OrderNumber, to, authz.ErrForbidden)
}

// TransitionExtra carries the optional payload of a transition.
type TransitionExtra struct {
	Tracking *models.Tracking
	// Reason is stored as the cancellation reason or the return reason.
	Reason string
}

// advance checks the edge, appends history and stamps the status timestamps.
// Side effects outside the order row are applied by the service.
func advance(o *models.Order, to models.OrderStatus, actor authz.Actor, comment string, extra TransitionExtra, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}

	o.History = append(o.History, models.HistoryEntry{
		Status:    to,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		Comment:   comment,
		At:        now,
	})
	o.Status = to

	switch to {
	case models.OrderStatusShipped:
		o.ShippedAt = &now
		if extra.Tracking != nil {
			o.Tracking = extra.Tracking
		}
	case models.OrderStatusOutForDelivery:
		if extra.Tracking != nil {
			o.Tracking = extra.Tracking
		}
	case models.OrderStatusDelivered:
		o.DeliveredAt = &now
		o.PaymentStatus = models.PaymentStatusCompleted
		if o.PaidAt == nil {
			o.PaidAt = &now
		}
	case models.OrderStatusCancelled:
		o.CancelledAt = &now
		o.CancellationReason = extra.Reason
		if o.PaymentStatus == models.PaymentStatusCompleted {
			o.PaymentStatus = models.PaymentStatusRefunded
		}
	case models.OrderStatusReturnRequested:
		o.ReturnRequest = &models.ReturnRequest{
			Reason:      extra.Reason,
			RequestedBy: actor.ID,
			RequestedAt: now,
		}
	case models.OrderStatusReturned:
		o.ReturnedAt = &now
	case models.OrderStatusRefunded:
		o.RefundedAt = &now
		o.PaymentStatus = models.PaymentStatusRefunded
	}

	return nil
}
