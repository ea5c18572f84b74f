// Package notify fans state changes out to observers. Observers run after the
// owning transaction has committed and can neither block nor fail the
// operation that produced the event.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type EventType string

const (
	OrderPlaced         EventType = "order.placed"
	OrderTransitioned   EventType = "order.transitioned"
	PayoutCreated       EventType = "payout.created"
	PayoutStatusChanged EventType = "payout.status_changed"
)

type Event struct {
	Type        EventType       `json:"type"`
	OrderNumber string          `json:"order_number,omitempty"`
	PayoutID    string          `json:"payout_id,omitempty"`
	From        string          `json:"from,omitempty"`
	To          string          `json:"to"`
	ActorID     int64           `json:"actor_id"`
	ActorRole   string          `json:"actor_role"`
	BuyerID     int64           `json:"buyer_id,omitempty"`
	SellerID    int64           `json:"seller_id"`
	Amount      decimal.Decimal `json:"amount"`
	Comment     string          `json:"comment,omitempty"`
	At          time.Time       `json:"at"`
}

type Observer interface {
	Notify(ctx context.Context, e Event)
}

// Multi delivers each event to every observer in order.
type Multi []Observer

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, o := range m {
		o.Notify(ctx, e)
	}
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

type LogObserver struct {
	log logrus.FieldLogger
}

func NewLogObserver(log logrus.FieldLogger) *LogObserver {
	return &LogObserver{log: log}
}

func (l *LogObserver) Notify(_ context.Context, e Event) {
	fields := logrus.Fields{
		"event": e.Type,
		"to":    e.To,
		"actor": e.ActorID,
		"role":  e.ActorRole,
	}
	if e.From != "" {
		fields["from"] = e.From
	}
	if e.OrderNumber != "" {
		fields["order"] = e.OrderNumber
	}
	if e.PayoutID != "" {
		fields["payout"] = e.PayoutID
		fields["amount"] = e.Amount.StringFixed(2)
	}
	l.log.WithFields(fields).Info("state changed")
}
