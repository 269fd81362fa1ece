package cart

import (
	"errors"
	"math"
	"testing"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

func unitProduct(id string, price float64) catalog.Product {
	return catalog.Product{ID: id, Name: id, Price: price, VATRate: 21, Type: catalog.TypeUnit}
}

func weightProduct(id string, price float64) catalog.Product {
	return catalog.Product{ID: id, Name: id, Price: price, VATRate: 5.5, Type: catalog.TypeWeight}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestAddOrMergeMergesSameProduct(t *testing.T) {
	var c Cart
	p := unitProduct("p1", 2.00)
	if _, err := c.AddOrMerge(p, 2, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := c.AddOrMerge(p, 3, nil, nil); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(c.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(c.Lines))
	}
	if c.Lines[0].Quantity != 5 {
		t.Fatalf("quantity = %v, want 5", c.Lines[0].Quantity)
	}
}

func TestAddOrMergeRejectsBadQuantities(t *testing.T) {
	var c Cart
	p := unitProduct("p1", 2.00)
	for _, qty := range []float64{0, -1, math.NaN(), math.Inf(1), MaxQuantity + 1} {
		if _, err := c.AddOrMerge(p, qty, nil, nil); !errors.Is(err, ErrQuantity) {
			t.Fatalf("qty %v: expected ErrQuantity, got %v", qty, err)
		}
	}
	// Unit products need integral quantities; fractions come from scales.
	if _, err := c.AddOrMerge(p, 1.5, nil, nil); !errors.Is(err, ErrQuantity) {
		t.Fatalf("expected ErrQuantity for fractional unit, got %v", err)
	}
	if _, err := c.AddOrMerge(weightProduct("w1", 3.49), 0.512, nil, nil); err != nil {
		t.Fatalf("fractional weight quantity rejected: %v", err)
	}
}

func TestAddOrMergeZeroPriceNeedsExplicitPrice(t *testing.T) {
	var c Cart
	p := unitProduct("free", 0)
	if _, err := c.AddOrMerge(p, 1, nil, nil); !errors.Is(err, ErrPriceRequired) {
		t.Fatalf("expected ErrPriceRequired, got %v", err)
	}
	price := 4.50
	i, err := c.AddOrMerge(p, 1, nil, &price)
	if err != nil {
		t.Fatalf("add with explicit price: %v", err)
	}
	if got := c.Lines[i].EffectiveUnitPrice(); got != price {
		t.Fatalf("effective price = %v, want %v", got, price)
	}
	// Re-scanning merges into the confirmed line instead of demanding the
	// price again.
	if _, err := c.AddOrMerge(p, 1, nil, nil); err != nil {
		t.Fatalf("merge onto confirmed price: %v", err)
	}
	if len(c.Lines) != 1 || c.Lines[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %d lines qty %v", len(c.Lines), c.Lines[0].Quantity)
	}
	if got := c.Lines[0].EffectiveUnitPrice(); got != price {
		t.Fatalf("effective price after merge = %v, want %v", got, price)
	}
}

func TestUpdateQuantityClamps(t *testing.T) {
	var c Cart
	if _, err := c.AddOrMerge(weightProduct("w1", 3.49), 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.UpdateQuantity(0, 0.001); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Lines[0].Quantity != MinQuantity {
		t.Fatalf("quantity = %v, want clamp to %v", c.Lines[0].Quantity, MinQuantity)
	}
	if err := c.UpdateQuantity(0, 99999); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Lines[0].Quantity != MaxQuantity {
		t.Fatalf("quantity = %v, want clamp to %v", c.Lines[0].Quantity, MaxQuantity)
	}
	if err := c.UpdateQuantity(5, 1); !errors.Is(err, ErrLineIndex) {
		t.Fatalf("expected ErrLineIndex, got %v", err)
	}
}

func TestUpdateQuantityRoundsUnitProducts(t *testing.T) {
	var c Cart
	if _, err := c.AddOrMerge(unitProduct("p1", 2.00), 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.UpdateQuantity(0, 2.6); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Lines[0].Quantity != 3 {
		t.Fatalf("quantity = %v, want rounded to 3", c.Lines[0].Quantity)
	}
}

func TestUpdatePriceClampsRange(t *testing.T) {
	var c Cart
	if _, err := c.AddOrMerge(unitProduct("p1", 2.00), 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.UpdatePrice(0, -3); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := c.Lines[0].EffectiveUnitPrice(); got != 0 {
		t.Fatalf("price = %v, want clamp to 0", got)
	}
	if err := c.UpdatePrice(0, 2_000_000); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := c.Lines[0].EffectiveUnitPrice(); got != MaxPrice {
		t.Fatalf("price = %v, want clamp to %v", got, float64(MaxPrice))
	}
}

func TestGiftRefusesDiscountButKeepsExisting(t *testing.T) {
	var c Cart
	if _, err := c.AddOrMerge(unitProduct("p1", 10.00), 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.ApplyLineDiscount(0, pricing.Discount{Type: pricing.DiscountPercent, Value: 15}); err != nil {
		t.Fatalf("discount: %v", err)
	}
	discounted := c.Lines[0].Total
	if !almostEqual(discounted, 8.50) {
		t.Fatalf("discounted total = %v, want 8.50", discounted)
	}

	if err := c.ToggleGift(0); err != nil {
		t.Fatalf("toggle gift: %v", err)
	}
	if c.Lines[0].Total != 0 {
		t.Fatalf("gift total = %v, want 0", c.Lines[0].Total)
	}
	if err := c.ApplyLineDiscount(0, pricing.Discount{Type: pricing.DiscountPercent, Value: 50}); !errors.Is(err, ErrGiftDiscount) {
		t.Fatalf("expected ErrGiftDiscount, got %v", err)
	}

	// Toggling back restores the discounted total, not the full price.
	if err := c.ToggleGift(0); err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if !almostEqual(c.Lines[0].Total, discounted) {
		t.Fatalf("restored total = %v, want %v", c.Lines[0].Total, discounted)
	}
}

func TestMergeSpecialPricesReplacesAndClears(t *testing.T) {
	var c Cart
	if _, err := c.AddOrMerge(unitProduct("p1", 1.20), 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := c.AddOrMerge(unitProduct("p2", 2.00), 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	c.MergeSpecialPrices(map[string]float64{"p1": 0.95})
	if got := c.Lines[0].EffectiveUnitPrice(); got != 0.95 {
		t.Fatalf("p1 price = %v, want override 0.95", got)
	}
	if got := c.Lines[1].EffectiveUnitPrice(); got != 2.00 {
		t.Fatalf("p2 price = %v, want catalog 2.00", got)
	}
	// Detaching the customer drops every override.
	c.MergeSpecialPrices(nil)
	if got := c.Lines[0].EffectiveUnitPrice(); got != 1.20 {
		t.Fatalf("p1 price after clear = %v, want 1.20", got)
	}
}

func TestClampDiscount(t *testing.T) {
	d, err := ClampDiscount(pricing.Discount{Type: pricing.DiscountPercent, Value: 140})
	if err != nil {
		t.Fatalf("clamp: %v", err)
	}
	if d.Value != 100 {
		t.Fatalf("value = %v, want 100", d.Value)
	}
	d, err = ClampDiscount(pricing.Discount{Type: pricing.DiscountAmount, Value: 50000})
	if err != nil {
		t.Fatalf("clamp: %v", err)
	}
	if d.Value != MaxAmountDiscount {
		t.Fatalf("value = %v, want %v", d.Value, float64(MaxAmountDiscount))
	}
	if _, err := ClampDiscount(pricing.Discount{Type: "bogus", Value: 10}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if _, err := ClampDiscount(pricing.Discount{Type: pricing.DiscountAmount, Value: math.NaN()}); err == nil {
		t.Fatal("expected error for NaN value")
	}
}
