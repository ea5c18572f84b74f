package payouts

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

// Breakdown sums the frozen earnings snapshots of the batched orders. The
// payout amount is always its NetAmount.
func Breakdown(orders []models.Order) models.PayoutBreakdown {
	b := models.PayoutBreakdown{
		TotalOrders: len(orders),
		GrossSales:  decimal.Zero,
		Commission:  decimal.Zero,
		Tax:         decimal.Zero,
		Shipping:    decimal.Zero,
		NetAmount:   decimal.Zero,
	}

	for _, o := range orders {
		b.GrossSales = b.GrossSales.Add(o.Pricing.ItemsTotal)
		if o.Earnings == nil {
			continue
		}
		b.Commission = b.Commission.Add(o.Earnings.PlatformCommission)
		b.Tax = b.Tax.Add(o.Earnings.TotalTax)
		b.Shipping = b.Shipping.Add(o.Earnings.ShippingCharges)
		b.NetAmount = b.NetAmount.Add(o.Earnings.NetSellerEarning)
	}
	return b
}

func orderIDs(orders []models.Order) []int64 {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

// NewTransactionID returns PAY-<yyyymmdd>-<8 hex>.
func NewTransactionID(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("PAY-%s-%s", now.UTC().Format("20060102"), hex.EncodeToString(id[:4]))
}
