package pricing

import (
	"github.com/shopspring/decimal"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"go.uber.org/zap"
)

// areaUnit: area-based prices are quoted per 100 area units.
var areaUnit = decimal.NewFromInt(100)

// Amount computes the bill amount for an attachment. Area-based pricing
// rounds half-up to currency precision; truncation would under-bill.
// An unknown billing type falls back to the base price (treated as fixed).
func (e *Engine) Amount(billingType propertydomain.BillingType, basePrice decimal.Decimal, area decimal.Decimal) decimal.Decimal {
	switch billingType {
	case propertydomain.BillingTypeFixed, propertydomain.BillingTypePrepaid:
		return basePrice.Round(2)
	case propertydomain.BillingTypeAreaBased:
		return basePrice.Mul(area).DivRound(areaUnit, 2)
	default:
		e.log.Warn("unknown billing type, falling back to base price",
			zap.String("billing_type", string(billingType)),
		)
		return basePrice.Round(2)
	}
}
