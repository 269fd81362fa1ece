package promo

import (
	"math"
	"testing"
	"time"
)

func ts(t time.Time) *time.Time { return &t }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func cartItems() []Item {
	return []Item{
		{ProductID: "espresso", Quantity: 2, UnitPrice: 1.20, Total: 2.40},
		{ProductID: "wine", Quantity: 1, UnitPrice: 8.50, Total: 8.50},
		{ProductID: "gifted", Quantity: 1, UnitPrice: 5.00, Total: 0},
	}
}

func TestActiveAt(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	p := Promotion{ValidFrom: ts(now.Add(-time.Hour)), ValidTo: ts(now.Add(time.Hour))}
	if !p.ActiveAt(now) {
		t.Fatal("expected promotion active inside window")
	}
	if p.ActiveAt(now.Add(2 * time.Hour)) {
		t.Fatal("expected promotion inactive after window")
	}
	open := Promotion{}
	if !open.ActiveAt(now) {
		t.Fatal("expected promotion with no window to be always active")
	}
}

func TestEligibleSubtotalScoping(t *testing.T) {
	items := cartItems()
	unscoped := Promotion{}
	if got := EligibleSubtotal(items, unscoped); !almostEqual(got, 10.90) {
		t.Fatalf("unscoped subtotal = %.4f, want 10.90", got)
	}
	scoped := Promotion{ProductIDs: []string{"wine"}}
	if got := EligibleSubtotal(items, scoped); !almostEqual(got, 8.50) {
		t.Fatalf("scoped subtotal = %.4f, want 8.50", got)
	}
	// Gift lines carry Total 0 and never contribute.
	giftOnly := Promotion{ProductIDs: []string{"gifted"}}
	if got := EligibleSubtotal(items, giftOnly); got != 0 {
		t.Fatalf("gift subtotal = %.4f, want 0", got)
	}
}

func TestAmountClamps(t *testing.T) {
	if got := Amount(50, Promotion{Kind: KindPercent, Value: 250}); !almostEqual(got, 50) {
		t.Fatalf("percent beyond 100 = %.4f, want clamp to eligible 50", got)
	}
	if got := Amount(20, Promotion{Kind: KindAmount, Value: 35}); !almostEqual(got, 20) {
		t.Fatalf("amount beyond eligible = %.4f, want 20", got)
	}
	if got := Amount(0, Promotion{Kind: KindAmount, Value: 5}); got != 0 {
		t.Fatalf("empty eligible = %.4f, want 0", got)
	}
	if got := Amount(50, Promotion{Kind: "bogus", Value: 5}); got != 0 {
		t.Fatalf("unknown kind = %.4f, want 0", got)
	}
}

func TestSelectPicksSingleBestPromotion(t *testing.T) {
	now := time.Now()
	promos := []Promotion{
		{ID: "1", Code: "SMALL", Kind: KindAmount, Value: 1},
		{ID: "2", Code: "BIG", Kind: KindAmount, Value: 3},
		{ID: "3", Code: "PCT", Kind: KindPercent, Value: 10},
	}
	got := Select(cartItems(), promos, "", now)
	if got.Applied == nil || got.Applied.Code != "BIG" {
		t.Fatalf("applied = %+v, want BIG", got.Applied)
	}
	if !almostEqual(got.Amount, 3) {
		t.Fatalf("amount = %.4f, want 3", got.Amount)
	}
}

func TestSelectTieBreaksDeterministically(t *testing.T) {
	now := time.Now()
	promos := []Promotion{
		{ID: "1", Code: "ZULU", Kind: KindAmount, Value: 2, Priority: 1},
		{ID: "2", Code: "ALPHA", Kind: KindAmount, Value: 2, Priority: 1},
		{ID: "3", Code: "LOW", Kind: KindAmount, Value: 2, Priority: 0},
	}
	got := Select(cartItems(), promos, "", now)
	if got.Applied == nil || got.Applied.Code != "ALPHA" {
		t.Fatalf("applied = %+v, want ALPHA on priority then code", got.Applied)
	}

	// Shuffled delivery order must not change the winner.
	reversed := []Promotion{promos[2], promos[0], promos[1]}
	again := Select(cartItems(), reversed, "", now)
	if again.Applied == nil || again.Applied.Code != "ALPHA" {
		t.Fatalf("applied = %+v after reorder, want ALPHA", again.Applied)
	}
}

func TestSelectRespectsMinSpendAndClass(t *testing.T) {
	now := time.Now()
	promos := []Promotion{
		{ID: "1", Code: "SPEND30", Kind: KindAmount, Value: 3, MinSpend: 30},
		{ID: "2", Code: "TRADE", Kind: KindAmount, Value: 2, CustomerClasses: []string{"wholesale"}},
	}
	got := Select(cartItems(), promos, "", now)
	if got.Applied != nil {
		t.Fatalf("applied = %+v, want none for retail cart under min spend", got.Applied)
	}
	got = Select(cartItems(), promos, "wholesale", now)
	if got.Applied == nil || got.Applied.Code != "TRADE" {
		t.Fatalf("applied = %+v, want TRADE for wholesale class", got.Applied)
	}
}

func TestSelectEmptyCart(t *testing.T) {
	got := Select(nil, []Promotion{{ID: "1", Code: "ANY", Kind: KindPercent, Value: 10}}, "", time.Now())
	if got.Applied != nil || got.Amount != 0 {
		t.Fatalf("expected nothing on empty cart, got %+v", got)
	}
}
