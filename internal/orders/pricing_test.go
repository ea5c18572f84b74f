package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var defaultRules = PricingRules{
	FreeShippingThreshold:  d("500"),
	FlatShippingFee:        d("40"),
	PrepaidDiscountPercent: d("5"),
	TaxRate:                d("0"),
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		rules    PricingRules
		total    string
		method   models.PaymentMethod
		shipping string
		discount string
		tax      string
		grand    string
	}{
		{"cod below threshold", defaultRules, "200", models.PaymentMethodCOD, "40", "0", "0", "240"},
		{"prepaid below threshold", defaultRules, "200", models.PaymentMethodUPI, "40", "10", "0", "230"},
		{"threshold is inclusive", defaultRules, "500", models.PaymentMethodCOD, "0", "0", "0", "500"},
		{"prepaid with tax", PricingRules{
			FreeShippingThreshold:  d("500"),
			FlatShippingFee:        d("40"),
			PrepaidDiscountPercent: d("5"),
			TaxRate:                d("0.18"),
		}, "1000", models.PaymentMethodCard, "0", "50", "171", "1121"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.rules.Price(d(tt.total), tt.method)
			assert.True(t, d(tt.shipping).Equal(p.ShippingCharge), "shipping %s", p.ShippingCharge)
			assert.True(t, d(tt.discount).Equal(p.Discount), "discount %s", p.Discount)
			assert.True(t, d(tt.tax).Equal(p.Tax), "tax %s", p.Tax)
			assert.True(t, d(tt.grand).Equal(p.GrandTotal), "grand %s", p.GrandTotal)
			assert.True(t, p.GrandTotal.Equal(p.ItemsTotal.Add(p.ShippingCharge).Sub(p.Discount).Add(p.Tax)))
		})
	}
}

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 5, 3, 0, time.UTC)
	number := NewOrderNumber(now)

	assert.Regexp(t, regexp.MustCompile(`^ORD-20261014090503-\d{6}$`), number)
}
