package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

type PricingRules struct {
	FreeShippingThreshold  decimal.Decimal
	FlatShippingFee        decimal.Decimal
	PrepaidDiscountPercent decimal.Decimal
	TaxRate                decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Price derives the order's pricing from its items total. Shipping is free
// from the threshold up, prepaid methods earn the discount and tax applies to
// the discounted total.
func (r PricingRules) Price(itemsTotal decimal.Decimal, method models.PaymentMethod) models.Pricing {
	p := models.Pricing{
		ItemsTotal:     itemsTotal,
		ShippingCharge: r.FlatShippingFee,
		Discount:       decimal.Zero,
	}

	if itemsTotal.GreaterThanOrEqual(r.FreeShippingThreshold) {
		p.ShippingCharge = decimal.Zero
	}
	if method.IsPrepaid() {
		p.Discount = itemsTotal.Mul(r.PrepaidDiscountPercent).Div(hundred).Round(2)
	}

	p.Tax = itemsTotal.Sub(p.Discount).Mul(r.TaxRate).Round(2)
	p.GrandTotal = itemsTotal.Add(p.ShippingCharge).Sub(p.Discount).Add(p.Tax)
	return p
}

var orderSuffixMax = big.NewInt(1_000_000)

// NewOrderNumber returns ORD-<yyyymmddhhmmss>-<6 random digits>.
func NewOrderNumber(now time.Time) string {
	n, err := rand.Int(rand.Reader, orderSuffixMax)
	if err != nil {
		n = big.NewInt(now.UnixNano() % orderSuffixMax.Int64())
	}
	return fmt.Sprintf("ORD-%s-%06d", now.UTC().Format("20060102150405"), n.Int64())
}
