package pricing

import "math"

// DiscountType distinguishes percentage discounts from fixed amounts.
type DiscountType string

const (
	// DiscountPercent applies a percentage of the tax-inclusive line amount.
	DiscountPercent DiscountType = "percentage"
	// DiscountAmount subtracts a fixed amount from the tax-inclusive line amount.
	DiscountAmount DiscountType = "amount"
)

// Discount describes a reduction applied to a line or to a running ticket total.
type Discount struct {
	Type  DiscountType `json:"type"`
	Value float64      `json:"value"`
}

// AmountOn returns the discount amount computed against the provided
// tax-inclusive base. Percentages are clamped to [0,100], fixed amounts are
// capped at the base so the result never exceeds it.
func (d Discount) AmountOn(base float64) float64 {
	if !finiteNonNegative(base) {
		return 0
	}
	switch d.Type {
	case DiscountPercent:
		pct := d.Value
		if !finiteNonNegative(pct) {
			return 0
		}
		if pct > 100 {
			pct = 100
		}
		return base * pct / 100
	case DiscountAmount:
		amount := d.Value
		if !finiteNonNegative(amount) {
			return 0
		}
		if amount > base {
			amount = base
		}
		return amount
	}
	return 0
}

// LineInput carries everything needed to price a single ticket line.
// UnitPrice is tax inclusive, VATRate is a percentage.
type LineInput struct {
	UnitPrice float64
	VATRate   float64
	Quantity  float64
	Discount  *Discount
	Gift      bool
}

// LineTotals holds the derived monetary components of a line.
type LineTotals struct {
	Subtotal float64 `json:"subtotal"`
	VAT      float64 `json:"vatAmount"`
	Total    float64 `json:"total"`
}

// ComputeLine derives subtotal (ex VAT), VAT amount and tax-inclusive total
// for a line. Invalid numeric input yields an all-zero result rather than an
// error: a malformed edit must never take the whole ticket down. Gift lines
// are forced to zero across all three components.
func ComputeLine(in LineInput) LineTotals {
	if in.Gift {
		return LineTotals{}
	}
	if !finitePositive(in.Quantity) || !finiteNonNegative(in.UnitPrice) {
		return LineTotals{}
	}
	rate := in.VATRate
	if !finiteNonNegative(rate) {
		rate = 0
	}

	gross := in.UnitPrice * in.Quantity
	unitExVAT := in.UnitPrice / (1 + rate/100)
	subtotal := unitExVAT * in.Quantity
	vat := subtotal * rate / 100

	var discount float64
	if in.Discount != nil {
		discount = in.Discount.AmountOn(gross)
	}
	total := gross - discount
	if total < 0 {
		total = 0
	}
	return LineTotals{Subtotal: subtotal, VAT: vat, Total: total}
}

// DiscountAmountFor returns the discount a line contributes to the ticket's
// discount total. Gift lines contribute nothing: their value is already
// zeroed out entirely.
func DiscountAmountFor(in LineInput) float64 {
	if in.Gift || in.Discount == nil {
		return 0
	}
	if !finitePositive(in.Quantity) || !finiteNonNegative(in.UnitPrice) {
		return 0
	}
	return in.Discount.AmountOn(in.UnitPrice * in.Quantity)
}

// ExcludingVAT converts a tax-inclusive price to its tax-exclusive
// counterpart.
func ExcludingVAT(incl, rate float64) float64 {
	if !finiteNonNegative(incl) || !finiteNonNegative(rate) {
		return 0
	}
	return incl / (1 + rate/100)
}

// IncludingVAT converts a tax-exclusive price to its tax-inclusive
// counterpart.
func IncludingVAT(excl, rate float64) float64 {
	if !finiteNonNegative(excl) || !finiteNonNegative(rate) {
		return 0
	}
	return excl * (1 + rate/100)
}

// RoundCurrency rounds to the smallest currency unit. Calculation keeps full
// precision; rounding only happens at edit-field and document boundaries so
// repeated edits do not accumulate drift.
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
