package promo

import (
	"time"
)

// Kind distinguishes percentage promotions from fixed amounts.
type Kind string

const (
	// KindPercent discounts a percentage of the eligible subtotal.
	KindPercent Kind = "percentage"
	// KindAmount discounts a fixed amount.
	KindAmount Kind = "amount"
)

// Promotion captures the runtime constraints of an automatic promotion rule.
type Promotion struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Kind            Kind       `json:"kind"`
	Value           float64    `json:"value"`
	MinSpend        float64    `json:"minSpend"`
	ProductIDs      []string   `json:"productIds"`
	CustomerClasses []string   `json:"customerClasses"`
	ValidFrom       *time.Time `json:"validFrom"`
	ValidTo         *time.Time `json:"validTo"`
	Priority        int        `json:"priority"`
}

// Item is the simplified cart view promotions are evaluated against.
// UnitPrice is the effective price (custom or catalog), Total is the line's
// tax-inclusive total after line discounts. Gift lines arrive with Total 0.
type Item struct {
	ProductID string
	Quantity  float64
	UnitPrice float64
	Total     float64
}

// Result is the outcome of promotion selection. Applied is nil when nothing
// qualifies, in which case Amount is 0.
type Result struct {
	Amount  float64    `json:"amount"`
	Applied *Promotion `json:"applied"`
}

// ActiveAt reports whether the promotion is inside its validity window.
func (p Promotion) ActiveAt(now time.Time) bool {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidTo != nil && now.After(*p.ValidTo) {
		return false
	}
	return true
}

func (p Promotion) matchesClass(class string) bool {
	if len(p.CustomerClasses) == 0 {
		return true
	}
	for _, c := range p.CustomerClasses {
		if c == class {
			return true
		}
	}
	return false
}

// EligibleSubtotal calculates the portion of the cart affected by the rule.
// An unscoped promotion covers the whole cart.
func EligibleSubtotal(items []Item, p Promotion) float64 {
	var total float64
	scoped := len(p.ProductIDs) > 0
	for _, it := range items {
		if it.Total <= 0 {
			continue
		}
		if !scoped || containsID(p.ProductIDs, it.ProductID) {
			total += it.Total
		}
	}
	return total
}

func containsID(ids []string, id string) bool {
	for _, el := range ids {
		if el == id {
			return true
		}
	}
	return false
}

// Amount determines the discount the rule yields on the eligible subtotal,
// clamped so it never exceeds it.
func Amount(eligible float64, p Promotion) float64 {
	if eligible <= 0 {
		return 0
	}
	var discount float64
	switch p.Kind {
	case KindPercent:
		pct := p.Value
		if pct <= 0 {
			return 0
		}
		if pct > 100 {
			pct = 100
		}
		discount = eligible * pct / 100
	case KindAmount:
		discount = p.Value
	default:
		return 0
	}
	if discount > eligible {
		discount = eligible
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Select picks at most one promotion for the cart snapshot. The highest
// discount wins; ties break on priority, then code, so the result does not
// depend on the order the rule catalog was delivered in.
func Select(items []Item, promos []Promotion, customerClass string, now time.Time) Result {
	var cartTotal float64
	for _, it := range items {
		if it.Total > 0 {
			cartTotal += it.Total
		}
	}
	var best Result
	for i := range promos {
		p := promos[i]
		if !p.ActiveAt(now) || !p.matchesClass(customerClass) {
			continue
		}
		if cartTotal < p.MinSpend {
			continue
		}
		amount := Amount(EligibleSubtotal(items, p), p)
		if amount <= 0 {
			continue
		}
		if best.Applied == nil || better(amount, p, best) {
			applied := p
			best = Result{Amount: amount, Applied: &applied}
		}
	}
	return best
}

func better(amount float64, p Promotion, current Result) bool {
	if amount != current.Amount {
		return amount > current.Amount
	}
	if p.Priority != current.Applied.Priority {
		return p.Priority > current.Applied.Priority
	}
	return p.Code < current.Applied.Code
}
