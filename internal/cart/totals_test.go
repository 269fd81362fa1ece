package cart

import (
	"testing"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

func lineWithTotal(id string, total float64) Line {
	l := Line{Product: unitProduct(id, total), Quantity: 1}
	l.LineTotals = pricing.ComputeLine(pricing.LineInput{UnitPrice: total, VATRate: 21, Quantity: 1})
	return l
}

func TestComputeTotalsGlobalDiscountOnRunningTotal(t *testing.T) {
	lines := []Line{lineWithTotal("a", 30.00), lineWithTotal("b", 20.00)}
	global := &pricing.Discount{Type: pricing.DiscountPercent, Value: 10}
	got := ComputeTotals(lines, global, nil, 0)
	if !almostEqual(got.Discount, 5.00) {
		t.Fatalf("discount = %.4f, want 5.00", got.Discount)
	}
	if !almostEqual(got.Total, 45.00) {
		t.Fatalf("total = %.4f, want 45.00", got.Total)
	}
}

func TestComputeTotalsPromoCodeCompoundsOnDiscountedTotal(t *testing.T) {
	lines := []Line{lineWithTotal("a", 100.00)}
	global := &pricing.Discount{Type: pricing.DiscountPercent, Value: 10}
	promo := &pricing.Discount{Type: pricing.DiscountPercent, Value: 10}
	got := ComputeTotals(lines, global, promo, 0)
	// 100 -> 90 after global, promo takes 10% of 90, not of 100.
	if !almostEqual(got.Total, 81.00) {
		t.Fatalf("total = %.4f, want 81.00", got.Total)
	}
	if !almostEqual(got.Discount, 19.00) {
		t.Fatalf("discount = %.4f, want 19.00", got.Discount)
	}
}

func TestComputeTotalsAutoPromotionFlatSubtract(t *testing.T) {
	lines := []Line{lineWithTotal("a", 50.00)}
	got := ComputeTotals(lines, nil, nil, 3.00)
	if !almostEqual(got.Total, 47.00) {
		t.Fatalf("total = %.4f, want 47.00", got.Total)
	}
	if !almostEqual(got.AutoPromotion, 3.00) {
		t.Fatalf("autoPromotion = %.4f, want 3.00", got.AutoPromotion)
	}
}

func TestComputeTotalsNeverNegative(t *testing.T) {
	lines := []Line{lineWithTotal("a", 10.00)}
	global := &pricing.Discount{Type: pricing.DiscountAmount, Value: 10000}
	promo := &pricing.Discount{Type: pricing.DiscountAmount, Value: 10000}
	got := ComputeTotals(lines, global, promo, 500)
	if got.Total != 0 {
		t.Fatalf("total = %.4f, want clamp at 0", got.Total)
	}
}

func TestComputeTotalsItemDiscountsCounted(t *testing.T) {
	l := Line{Product: unitProduct("a", 50.00), Quantity: 1,
		Discount: &pricing.Discount{Type: pricing.DiscountPercent, Value: 10}}
	l.recompute()
	got := ComputeTotals([]Line{l}, nil, nil, 0)
	if !almostEqual(got.Discount, 5.00) {
		t.Fatalf("discount = %.4f, want 5.00", got.Discount)
	}
	if !almostEqual(got.Total, 45.00) {
		t.Fatalf("total = %.4f, want 45.00", got.Total)
	}
}

func TestComputeTotalsGiftContributesNothing(t *testing.T) {
	gift := Line{Product: unitProduct("g", 99.00), Quantity: 1, Gift: true,
		Discount: &pricing.Discount{Type: pricing.DiscountPercent, Value: 50}}
	gift.recompute()
	paid := lineWithTotal("a", 10.00)
	got := ComputeTotals([]Line{gift, paid}, nil, nil, 0)
	if !almostEqual(got.Total, 10.00) {
		t.Fatalf("total = %.4f, want 10.00", got.Total)
	}
	if got.Discount != 0 {
		t.Fatalf("discount = %.4f, want 0", got.Discount)
	}
}
