package cart

import (
	"errors"
	"math"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/promo"
)

// Quantity and price guards. Values outside these bounds are input errors
// (fat-fingered scans, broken scales), not legitimate tickets.
const (
	MinQuantity       = 0.01
	MaxQuantity       = 10000
	MaxPrice          = 1_000_000
	MaxAmountDiscount = 10000
)

var (
	// ErrLineIndex is returned when the referenced line does not exist.
	ErrLineIndex = errors.New("line index out of range")
	// ErrQuantity is returned when an added quantity is out of range.
	ErrQuantity = errors.New("quantity out of range")
	// ErrGiftDiscount is returned when a discount targets a gift line.
	ErrGiftDiscount = errors.New("gift lines cannot take a discount")
	// ErrWeightRequired indicates a weight product needs an explicit weight
	// before a line can be created.
	ErrWeightRequired = errors.New("weight value required")
	// ErrPriceRequired indicates a product without a usable catalog price
	// needs an explicit price before a line can be created.
	ErrPriceRequired = errors.New("price entry required")
)

// Line is a ticket line. The product is snapshotted at add time; Subtotal,
// VAT and Total are always re-derived from the other fields, never set
// directly.
type Line struct {
	Product      catalog.Product   `json:"product"`
	Quantity     float64           `json:"quantity"`
	CustomPrice  *float64          `json:"customPrice,omitempty"`
	SpecialPrice *float64          `json:"specialPrice,omitempty"`
	Discount     *pricing.Discount `json:"discount,omitempty"`
	Gift         bool              `json:"isGift"`

	pricing.LineTotals
}

// EffectiveUnitPrice is the price the line is actually computed with: cashier
// override first, then customer special price, then catalog price.
func (l *Line) EffectiveUnitPrice() float64 {
	if l.CustomPrice != nil {
		return *l.CustomPrice
	}
	if l.SpecialPrice != nil {
		return *l.SpecialPrice
	}
	return l.Product.Price
}

func (l *Line) input() pricing.LineInput {
	return pricing.LineInput{
		UnitPrice: l.EffectiveUnitPrice(),
		VATRate:   l.Product.VATRate,
		Quantity:  l.Quantity,
		Discount:  l.Discount,
		Gift:      l.Gift,
	}
}

func (l *Line) recompute() {
	l.LineTotals = pricing.ComputeLine(l.input())
}

// Cart is the ordered collection of lines for one register session. It is
// not safe for concurrent use; the owning session serialises access.
type Cart struct {
	Lines []Line `json:"lines"`
}

// AddOrMerge adds a product to the cart, merging into an existing line for
// the same product id. explicitPrice carries a confirmed price entry for
// products whose catalog price is zero; it becomes the line's custom price.
func (c *Cart) AddOrMerge(p catalog.Product, qty float64, specialPrice, explicitPrice *float64) (int, error) {
	if !validQuantity(qty) {
		return 0, ErrQuantity
	}
	if p.Type == catalog.TypeUnit && qty != math.Trunc(qty) {
		return 0, ErrQuantity
	}

	for i := range c.Lines {
		if c.Lines[i].Product.ID == p.ID {
			line := &c.Lines[i]
			line.Quantity += qty
			if line.Quantity > MaxQuantity {
				line.Quantity = MaxQuantity
			}
			if specialPrice != nil {
				line.SpecialPrice = specialPrice
			}
			if explicitPrice != nil {
				line.CustomPrice = explicitPrice
			}
			line.recompute()
			return i, nil
		}
	}

	// Price entry is only demanded for a new line; an existing line already
	// carries a confirmed price.
	if explicitPrice == nil && specialPrice == nil && p.Price <= 0 {
		return 0, ErrPriceRequired
	}

	line := Line{
		Product:      p,
		Quantity:     qty,
		CustomPrice:  explicitPrice,
		SpecialPrice: specialPrice,
	}
	line.recompute()
	c.Lines = append(c.Lines, line)
	return len(c.Lines) - 1, nil
}

// UpdateQuantity sets a line's quantity, clamped to the allowed range.
func (c *Cart) UpdateQuantity(i int, qty float64) error {
	if i < 0 || i >= len(c.Lines) {
		return ErrLineIndex
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return ErrQuantity
	}
	if qty < MinQuantity {
		qty = MinQuantity
	}
	if qty > MaxQuantity {
		qty = MaxQuantity
	}
	line := &c.Lines[i]
	if line.Product.Type == catalog.TypeUnit {
		qty = math.Round(qty)
		if qty < 1 {
			qty = 1
		}
	}
	line.Quantity = qty
	line.recompute()
	return nil
}

// UpdatePrice sets a cashier price override on the line.
func (c *Cart) UpdatePrice(i int, price float64) error {
	if i < 0 || i >= len(c.Lines) {
		return ErrLineIndex
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return ErrQuantity
	}
	if price < 0 {
		price = 0
	}
	if price > MaxPrice {
		price = MaxPrice
	}
	line := &c.Lines[i]
	line.CustomPrice = &price
	line.recompute()
	return nil
}

// ApplyLineDiscount attaches a discount to a line. Gift lines refuse
// discounts outright: their totals are forced to zero anyway.
func (c *Cart) ApplyLineDiscount(i int, d pricing.Discount) error {
	if i < 0 || i >= len(c.Lines) {
		return ErrLineIndex
	}
	line := &c.Lines[i]
	if line.Gift {
		return ErrGiftDiscount
	}
	clamped, err := ClampDiscount(d)
	if err != nil {
		return err
	}
	line.Discount = &clamped
	line.recompute()
	return nil
}

// ClearLineDiscount removes a line's discount.
func (c *Cart) ClearLineDiscount(i int) error {
	if i < 0 || i >= len(c.Lines) {
		return ErrLineIndex
	}
	c.Lines[i].Discount = nil
	c.Lines[i].recompute()
	return nil
}

// ToggleGift flips the gift flag. An existing discount is kept: it is moot
// while the line is a gift and reactivates when toggled back.
func (c *Cart) ToggleGift(i int) error {
	if i < 0 || i >= len(c.Lines) {
		return ErrLineIndex
	}
	c.Lines[i].Gift = !c.Lines[i].Gift
	c.Lines[i].recompute()
	return nil
}

// Remove drops a line.
func (c *Cart) Remove(i int) error {
	if i < 0 || i >= len(c.Lines) {
		return ErrLineIndex
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = nil
}

// MergeSpecialPrices replaces every line's special price with the resolver
// output for the currently attached customer and recomputes. Lines absent
// from the map lose any previous override.
func (c *Cart) MergeSpecialPrices(prices map[string]float64) {
	for i := range c.Lines {
		line := &c.Lines[i]
		if price, ok := prices[line.Product.ID]; ok {
			p := price
			line.SpecialPrice = &p
		} else {
			line.SpecialPrice = nil
		}
		line.recompute()
	}
}

// Recompute re-derives every line, used after a snapshot restore so derived
// values never come from storage.
func (c *Cart) Recompute() {
	for i := range c.Lines {
		c.Lines[i].recompute()
	}
}

// PromoView projects the cart into the simplified shape the promotion
// evaluator consumes.
func (c *Cart) PromoView() []promo.Item {
	items := make([]promo.Item, 0, len(c.Lines))
	for i := range c.Lines {
		line := &c.Lines[i]
		items = append(items, promo.Item{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.EffectiveUnitPrice(),
			Total:     line.Total,
		})
	}
	return items
}

// ProductIDs lists the distinct product ids currently in the cart.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	seen := make(map[string]struct{}, len(c.Lines))
	for i := range c.Lines {
		id := c.Lines[i].Product.ID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ClampDiscount validates a discount and clamps its value to the range the
// register accepts: [0,100] for percentages, [0,10000] for amounts.
func ClampDiscount(d pricing.Discount) (pricing.Discount, error) {
	if math.IsNaN(d.Value) || math.IsInf(d.Value, 0) || d.Value < 0 {
		return pricing.Discount{}, errors.New("invalid discount value")
	}
	switch d.Type {
	case pricing.DiscountPercent:
		if d.Value > 100 {
			d.Value = 100
		}
	case pricing.DiscountAmount:
		if d.Value > MaxAmountDiscount {
			d.Value = MaxAmountDiscount
		}
	default:
		return pricing.Discount{}, errors.New("unknown discount type")
	}
	return d, nil
}

func validQuantity(qty float64) bool {
	return !math.IsNaN(qty) && !math.IsInf(qty, 0) && qty > 0 && qty <= MaxQuantity
}
