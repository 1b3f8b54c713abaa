// internal/pkg/money/money.go
package money

import (
	"github.com/shopspring/decimal"
)

// VATMode selects how a base amount relates to VAT.
type VATMode string

const (
	// VATExclusive means the base amount does not contain VAT; VAT is added on top.
	// All sales pricing uses this mode.
	VATExclusive VATMode = "exclusive"
	// VATInclusive means the base amount already contains VAT. Supplier prices
	// on the purchase side may use this mode.
	VATInclusive VATMode = "inclusive"
)

// VATBreakdown is the three-way split of an amount required for Thai tax
// reporting. Values are unrounded; call Round on each only at display or
// report aggregation time.
type VATBreakdown struct {
	PriceBeforeVAT    decimal.Decimal
	VATAmount         decimal.Decimal
	PriceIncludingVAT decimal.Decimal
}

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// LineTotal returns unit_price * quantity - discount. VAT is always computed
// on this post-discount total, never on the unit price alone.
func LineTotal(unitPrice decimal.Decimal, quantity int, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount)
}

// CalculateVAT splits baseAmount into the VAT breakdown for the given rate and
// mode. A non-applicable or zero rate yields zero VAT with the base carried
// through unchanged.
func CalculateVAT(baseAmount decimal.Decimal, ratePercent decimal.Decimal, applicable bool, mode VATMode) VATBreakdown {
	if !applicable || ratePercent.IsZero() {
		return VATBreakdown{
			PriceBeforeVAT:    baseAmount,
			VATAmount:         decimal.Zero,
			PriceIncludingVAT: baseAmount,
		}
	}

	rate := ratePercent.Div(hundred)

	switch mode {
	case VATInclusive:
		before := baseAmount.Div(one.Add(rate))
		return VATBreakdown{
			PriceBeforeVAT:    before,
			VATAmount:         baseAmount.Sub(before),
			PriceIncludingVAT: baseAmount,
		}
	default:
		vat := baseAmount.Mul(rate)
		return VATBreakdown{
			PriceBeforeVAT:    baseAmount,
			VATAmount:         vat,
			PriceIncludingVAT: baseAmount.Add(vat),
		}
	}
}

// Round applies the currency rounding rule: half-up at two decimal places.
// Only report aggregation and display call this; intermediate arithmetic stays
// exact to avoid compounding rounding error across line items.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
