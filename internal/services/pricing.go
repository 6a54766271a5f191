package services

import (
	"dropship-service/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Pricer turns supplier cost into retail price
type Pricer struct {
	defaultMarkup decimal.Decimal
}

// NewPricer creates a pricer with the platform-wide markup percentage
func NewPricer(markupPercent float64) *Pricer {
	return &Pricer{defaultMarkup: decimal.NewFromFloat(markupPercent)}
}

// MarkupFor returns the supplier override or the default markup
func (p *Pricer) MarkupFor(supplier *models.Supplier) decimal.Decimal {
	if supplier != nil {
		if v, ok := supplier.MarkupPercent(); ok && v >= 0 {
			return decimal.NewFromFloat(v)
		}
	}
	return p.defaultMarkup
}

// RetailPrice is cost × (1 + markup%) rounded to cents
func (p *Pricer) RetailPrice(cost decimal.Decimal, supplier *models.Supplier) decimal.Decimal {
	if cost.IsNegative() {
		cost = decimal.Zero
	}
	factor := decimal.NewFromInt(1).Add(p.MarkupFor(supplier).Div(hundred))
	return cost.Mul(factor).Round(2)
}
