package cart

import "github.com/noah-isme/backend-pos/internal/pricing"

// Totals is the ticket-level aggregate derived from the current cart state.
// It has no storage of its own: it is recomputed from scratch on every
// mutation.
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	VAT           float64 `json:"totalVat"`
	Discount      float64 `json:"totalDiscount"`
	Total         float64 `json:"total"`
	AutoPromotion float64 `json:"autoPromotionAmount"`
}

// ComputeTotals folds the lines with the global discount, the promo code and
// the automatic promotion amount. The stacking order is a business rule, not
// an accident: the global discount applies to the running total, the promo
// code to the already-discounted total, while the automatic promotion was
// computed against the undiscounted cart and is subtracted as a flat amount.
func ComputeTotals(lines []Line, global, promoCode *pricing.Discount, autoAmount float64) Totals {
	var t Totals
	var itemDiscounts float64
	for i := range lines {
		line := &lines[i]
		t.Subtotal += line.Subtotal
		t.VAT += line.VAT
		t.Total += line.Total
		itemDiscounts += pricing.DiscountAmountFor(line.input())
	}

	var globalAmount float64
	if global != nil {
		globalAmount = global.AmountOn(t.Total)
		t.Total -= globalAmount
	}
	var promoAmount float64
	if promoCode != nil {
		promoAmount = promoCode.AmountOn(t.Total)
		t.Total -= promoAmount
	}
	if autoAmount > 0 {
		t.Total -= autoAmount
		t.AutoPromotion = autoAmount
	}

	t.Discount = itemDiscounts + globalAmount + promoAmount + t.AutoPromotion
	if t.Total < 0 {
		t.Total = 0
	}
	return t
}
