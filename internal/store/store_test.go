package store

import (
	"database/sql/driver"
	"encoding/json"
	"testing"
	"time"

	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/stretchr/testify/require"
)

var orderColumnNames = []string{
	"id", "order_number", "buyer_id", "seller_id", "items", "shipping_address",
	"payment_method", "payment_status", "paid_at",
	"items_total", "shipping_charge", "discount", "tax", "grand_total",
	"status", "status_history", "tracking",
	"shipped_at", "delivered_at", "cancelled_at", "returned_at", "refunded_at",
	"cancellation_reason", "return_request", "earnings",
	"payout_status", "payout_transaction_id", "created_at", "updated_at", "version",
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// deliveredOrderRow builds a result row for an order delivered with the given
// net earning and payout linkage.
func deliveredOrderRow(t *testing.T, id int64, net string, payout models.OrderPayoutStatus, txn any) []driver.Value {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	items := []models.OrderItem{{ProductID: 1, SellerID: 7, CategoryID: 2, Quantity: 1}}
	history := []models.HistoryEntry{{Status: models.OrderStatusConfirmed, At: now}}
	earnings := map[string]any{"net_seller_earning": net, "platform_commission": "0", "total_tax": "0", "shipping_charges": "0"}

	return []driver.Value{
		id, "ORD-20260301100000-000001", int64(3), int64(7),
		mustJSON(t, items), mustJSON(t, models.Address{City: "Pune"}),
		"card", "completed", now,
		"100.00", "40.00", "5.00", "0.00", "135.00",
		"delivered", mustJSON(t, history), nil,
		now, now, nil, nil, nil,
		"", nil, mustJSON(t, earnings),
		string(payout), txn, now, now, int64(4),
	}
}
