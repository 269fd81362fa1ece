package pricing

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestComputeLineVATRoundTrip(t *testing.T) {
	cases := []struct {
		price float64
		rate  float64
	}{
		{12.10, 21},
		{1.00, 6},
		{99.99, 20},
		{0.05, 5.5},
		{250, 0},
	}
	for _, tc := range cases {
		got := ComputeLine(LineInput{UnitPrice: tc.price, VATRate: tc.rate, Quantity: 1})
		if !almostEqual(got.Subtotal*(1+tc.rate/100), tc.price) {
			t.Fatalf("price %.2f rate %.2f: subtotal %.6f does not round-trip", tc.price, tc.rate, got.Subtotal)
		}
		if !almostEqual(got.Subtotal+got.VAT, tc.price) {
			t.Fatalf("price %.2f rate %.2f: subtotal %.6f + vat %.6f != price", tc.price, tc.rate, got.Subtotal, got.VAT)
		}
	}
}

func TestComputeLineScenarioBelgianVAT(t *testing.T) {
	got := ComputeLine(LineInput{UnitPrice: 12.10, VATRate: 21, Quantity: 1})
	if !almostEqual(got.Subtotal, 10.00) {
		t.Fatalf("subtotal = %.4f, want 10.00", got.Subtotal)
	}
	if !almostEqual(got.VAT, 2.10) {
		t.Fatalf("vat = %.4f, want 2.10", got.VAT)
	}
	if !almostEqual(got.Total, 12.10) {
		t.Fatalf("total = %.4f, want 12.10", got.Total)
	}
}

func TestComputeLineGiftZeroesEverything(t *testing.T) {
	d := &Discount{Type: DiscountPercent, Value: 50}
	got := ComputeLine(LineInput{UnitPrice: 19.99, VATRate: 21, Quantity: 3, Discount: d, Gift: true})
	if got.Subtotal != 0 || got.VAT != 0 || got.Total != 0 {
		t.Fatalf("gift line not zeroed: %+v", got)
	}
}

func TestComputeLinePercentDiscount(t *testing.T) {
	d := &Discount{Type: DiscountPercent, Value: 10}
	got := ComputeLine(LineInput{UnitPrice: 50.00, VATRate: 0, Quantity: 1, Discount: d})
	if !almostEqual(got.Total, 45.00) {
		t.Fatalf("total = %.4f, want 45.00", got.Total)
	}
	if amt := DiscountAmountFor(LineInput{UnitPrice: 50.00, VATRate: 0, Quantity: 1, Discount: d}); !almostEqual(amt, 5.00) {
		t.Fatalf("discount amount = %.4f, want 5.00", amt)
	}
}

func TestComputeLinePercentDiscountClampedAt100(t *testing.T) {
	d := &Discount{Type: DiscountPercent, Value: 250}
	got := ComputeLine(LineInput{UnitPrice: 10.00, VATRate: 21, Quantity: 2, Discount: d})
	if got.Total != 0 {
		t.Fatalf("total = %.4f, want 0 for discount beyond 100%%", got.Total)
	}
}

func TestComputeLineAmountDiscountCappedAtLineTotal(t *testing.T) {
	d := &Discount{Type: DiscountAmount, Value: 25.00}
	in := LineInput{UnitPrice: 20.00, VATRate: 0, Quantity: 1, Discount: d}
	got := ComputeLine(in)
	if got.Total != 0 {
		t.Fatalf("total = %.4f, want 0.00", got.Total)
	}
	if amt := DiscountAmountFor(in); !almostEqual(amt, 20.00) {
		t.Fatalf("discount amount = %.4f, want cap at 20.00", amt)
	}
}

func TestComputeLineInvalidInputYieldsZeros(t *testing.T) {
	for _, in := range []LineInput{
		{UnitPrice: math.NaN(), VATRate: 21, Quantity: 1},
		{UnitPrice: 10, VATRate: 21, Quantity: math.Inf(1)},
		{UnitPrice: 10, VATRate: 21, Quantity: -2},
		{UnitPrice: -5, VATRate: 21, Quantity: 1},
	} {
		if got := ComputeLine(in); got != (LineTotals{}) {
			t.Fatalf("input %+v: expected zero totals, got %+v", in, got)
		}
	}
}

func TestComputeLineFractionalWeightQuantity(t *testing.T) {
	got := ComputeLine(LineInput{UnitPrice: 3.49, VATRate: 5.5, Quantity: 0.512})
	want := 3.49 * 0.512
	if !almostEqual(got.Total, want) {
		t.Fatalf("total = %.4f, want %.4f", got.Total, want)
	}
}

func TestExcludingIncludingVAT(t *testing.T) {
	excl := ExcludingVAT(12.10, 21)
	if !almostEqual(excl, 10.00) {
		t.Fatalf("excluding = %.4f, want 10.00", excl)
	}
	if incl := IncludingVAT(excl, 21); !almostEqual(incl, 12.10) {
		t.Fatalf("including = %.4f, want 12.10", incl)
	}
}

func TestRoundCurrency(t *testing.T) {
	if got := RoundCurrency(10.004999); got != 10.00 {
		t.Fatalf("got %v, want 10.00", got)
	}
	if got := RoundCurrency(10.005001); got != 10.01 {
		t.Fatalf("got %v, want 10.01", got)
	}
}
