// Package earnings derives what a seller is owed for a delivered order.
package earnings

import (
	"context"
	"fmt"

	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

// CommissionSource returns the platform commission rate of a category as a
// fraction (0.10 for 10%).
type CommissionSource interface {
	CommissionRate(ctx context.Context, categoryID int64) (decimal.Decimal, error)
}

type Calculator struct {
	rates   CommissionSource
	taxRate decimal.Decimal
}

func NewCalculator(rates CommissionSource, taxRate decimal.Decimal) *Calculator {
	return &Calculator{rates: rates, taxRate: taxRate}
}

// Compute is a pure function of the order's lines and pricing and the
// current category rates. It does not stamp ComputedAt; the caller does that
// when it freezes the result on the order.
func (c *Calculator) Compute(ctx context.Context, order *models.Order) (*models.Earnings, error) {
	rates := make(map[int64]decimal.Decimal)
	result := &models.Earnings{
		PlatformCommission: decimal.Zero,
		ShippingCharges:    order.Pricing.ShippingCharge,
		Lines:              make([]models.CommissionLine, 0, len(order.Items)),
	}

	base := decimal.Zero
	for _, item := range order.Items {
		rate, ok := rates[item.CategoryID]
		if !ok {
			var err error
			rate, err = c.rates.CommissionRate(ctx, item.CategoryID)
			if err != nil {
				return nil, fmt.Errorf("commission rate for category %d: %w", item.CategoryID, err)
			}
			rates[item.CategoryID] = rate
		}

		lineBase := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		commission := lineBase.Mul(rate).Round(2)

		base = base.Add(lineBase)
		result.PlatformCommission = result.PlatformCommission.Add(commission)
		result.Lines = append(result.Lines, models.CommissionLine{
			ProductID:  item.ProductID,
			CategoryID: item.CategoryID,
			Rate:       rate,
			Base:       lineBase,
			Commission: commission,
		})
	}

	result.TotalTax = base.Mul(c.taxRate).Round(2)

	net := order.Pricing.ItemsTotal.Sub(result.PlatformCommission).Sub(result.TotalTax)
	if net.IsNegative() {
		net = decimal.Zero
	}
	result.NetSellerEarning = net

	return result, nil
}
