package payouts

import (
	"testing"
	"time"

	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func deliveredOrder(id int64, itemsTotal, commission, tax, net string) models.Order {
	return models.Order{
		ID:      id,
		Status:  models.OrderStatusDelivered,
		Pricing: models.Pricing{ItemsTotal: decimal.RequireFromString(itemsTotal)},
		Earnings: &models.Earnings{
			PlatformCommission: decimal.RequireFromString(commission),
			TotalTax:           decimal.RequireFromString(tax),
			ShippingCharges:    decimal.NewFromInt(40),
			NetSellerEarning:   decimal.RequireFromString(net),
		},
	}
}

func TestBreakdown(t *testing.T) {
	orders := []models.Order{
		deliveredOrder(1, "112.36", "11.24", "1.12", "100.00"),
		deliveredOrder(2, "168.54", "16.85", "1.69", "150.00"),
		deliveredOrder(3, "224.72", "22.47", "2.25", "200.00"),
	}

	b := Breakdown(orders)
	assert.Equal(t, 3, b.TotalOrders)
	assert.True(t, decimal.RequireFromString("450.00").Equal(b.NetAmount))
	assert.True(t, decimal.RequireFromString("505.62").Equal(b.GrossSales))
	assert.True(t, decimal.RequireFromString("50.56").Equal(b.Commission))
	assert.True(t, decimal.RequireFromString("5.06").Equal(b.Tax))
	assert.True(t, decimal.NewFromInt(120).Equal(b.Shipping))
	assert.Equal(t, []int64{1, 2, 3}, orderIDs(orders))
}

func TestBreakdown_Empty(t *testing.T) {
	b := Breakdown(nil)
	assert.Zero(t, b.TotalOrders)
	assert.True(t, b.NetAmount.IsZero())
}

func TestNewTransactionID(t *testing.T) {
	at := time.Date(2026, 6, 1, 23, 59, 0, 0, time.UTC)
	id := NewTransactionID(at)
	assert.Regexp(t, `^PAY-20260601-[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, NewTransactionID(at))
}
