package orders

import (
	"testing"
	"time"

	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusProcessing,
	models.OrderStatusShipped,
	models.OrderStatusOutForDelivery,
	models.OrderStatusDelivered,
	models.OrderStatusCancelled,
	models.OrderStatusReturnRequested,
	models.OrderStatusReturned,
	models.OrderStatusRefunded,
}

func TestCanTransition_Table(t *testing.T) {
	allowed := map[[2]models.OrderStatus]bool{
		{models.OrderStatusPending, models.OrderStatusConfirmed}:         true,
		{models.OrderStatusPending, models.OrderStatusCancelled}:         true,
		{models.OrderStatusConfirmed, models.OrderStatusProcessing}:      true,
		{models.OrderStatusConfirmed, models.OrderStatusCancelled}:       true,
		{models.OrderStatusProcessing, models.OrderStatusShipped}:        true,
		{models.OrderStatusProcessing, models.OrderStatusCancelled}:      true,
		{models.OrderStatusShipped, models.OrderStatusOutForDelivery}:    true,
		{models.OrderStatusShipped, models.OrderStatusDelivered}:         true,
		{models.OrderStatusOutForDelivery, models.OrderStatusDelivered}:  true,
		{models.OrderStatusDelivered, models.OrderStatusReturnRequested}: true,
		{models.OrderStatusReturnRequested, models.OrderStatusReturned}:  true,
		{models.OrderStatusReturned, models.OrderStatusRefunded}:         true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[[2]models.OrderStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminal(models.OrderStatusCancelled))
	assert.True(t, IsTerminal(models.OrderStatusRefunded))
	assert.False(t, IsTerminal(models.OrderStatusDelivered))
	assert.Empty(t, AllowedTargets(models.OrderStatusCancelled))
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.OrderStatusOutForDelivery, models.OrderStatusDelivered},
		AllowedTargets(models.OrderStatusShipped))
}

func TestAdvance_RejectsIllegalEdge(t *testing.T) {
	o := &models.Order{Status: models.OrderStatusCancelled}

	err := advance(o, models.OrderStatusConfirmed, authz.Actor{ID: 1, Role: authz.RoleAdmin}, "", TransitionExtra{}, time.Now())

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.OrderStatusCancelled, invalid.From)
	assert.Equal(t, models.OrderStatusCancelled, o.Status)
	assert.Empty(t, o.History)
}

func TestAdvance_SideEffects(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seller := authz.Actor{ID: 7, Role: authz.RoleSeller}
	buyer := authz.Actor{ID: 3, Role: authz.RoleBuyer}

	o := &models.Order{
		Status:        models.OrderStatusConfirmed,
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		History:       []models.HistoryEntry{{Status: models.OrderStatusConfirmed}},
	}

	require.NoError(t, advance(o, models.OrderStatusProcessing, seller, "", TransitionExtra{}, now))
	tracking := &models.Tracking{Carrier: "BlueDart", TrackingNumber: "BD123"}
	require.NoError(t, advance(o, models.OrderStatusShipped, seller, "packed", TransitionExtra{Tracking: tracking}, now))
	assert.Equal(t, tracking, o.Tracking)
	require.NotNil(t, o.ShippedAt)

	require.NoError(t, advance(o, models.OrderStatusDelivered, seller, "", TransitionExtra{}, now))
	assert.Equal(t, models.PaymentStatusCompleted, o.PaymentStatus)
	require.NotNil(t, o.PaidAt)
	assert.True(t, now.Equal(*o.PaidAt))

	require.NoError(t, advance(o, models.OrderStatusReturnRequested, buyer, "", TransitionExtra{Reason: "wrong size"}, now))
	require.NotNil(t, o.ReturnRequest)
	assert.Equal(t, "wrong size", o.ReturnRequest.Reason)
	assert.Equal(t, int64(3), o.ReturnRequest.RequestedBy)

	assert.Len(t, o.History, 5)
	assert.True(t, ValidHistory(o.History))
	assert.Equal(t, "packed", o.History[2].Comment)
	assert.Equal(t, "seller", o.History[2].ActorRole)
}

func TestAdvance_CancelRefundsPrepaid(t *testing.T) {
	now := time.Now()
	o := &models.Order{Status: models.OrderStatusConfirmed, PaymentStatus: models.PaymentStatusCompleted}

	require.NoError(t, advance(o, models.OrderStatusCancelled, authz.Actor{ID: 3, Role: authz.RoleBuyer}, "", TransitionExtra{Reason: "changed mind"}, now))
	assert.Equal(t, models.PaymentStatusRefunded, o.PaymentStatus)
	assert.Equal(t, "changed mind", o.CancellationReason)
	require.NotNil(t, o.CancelledAt)
}

func TestValidHistory_DetectsSkippedEdge(t *testing.T) {
	history := []models.HistoryEntry{
		{Status: models.OrderStatusConfirmed},
		{Status: models.OrderStatusDelivered},
	}
	assert.False(t, ValidHistory(history))
}

func TestAuthorizeTransition(t *testing.T) {
	o := &models.Order{OrderNumber: "ORD-1", BuyerID: 3, SellerID: 7}

	tests := []struct {
		name    string
		actor   authz.Actor
		to      models.OrderStatus
		allowed bool
	}{
		{"admin refunds", authz.Actor{ID: 1, Role: authz.RoleAdmin}, models.OrderStatusRefunded, true},
		{"seller ships", authz.Actor{ID: 7, Role: authz.RoleSeller}, models.OrderStatusShipped, true},
		{"seller receives return", authz.Actor{ID: 7, Role: authz.RoleSeller}, models.OrderStatusReturned, true},
		{"seller refunds", authz.Actor{ID: 7, Role: authz.RoleSeller}, models.OrderStatusRefunded, false},
		{"other seller ships", authz.Actor{ID: 8, Role: authz.RoleSeller}, models.OrderStatusShipped, false},
		{"buyer marks delivered", authz.Actor{ID: 3, Role: authz.RoleBuyer}, models.OrderStatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizeTransition(tt.actor, o, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, authz.ErrForbidden)
			}
		})
	}
}
