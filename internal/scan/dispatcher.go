package scan

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/backend-pos/internal/catalog"
)

// Resolution kinds.
const (
	// KindProduct means the barcode matched a catalog entry.
	KindProduct = "product"
	// KindUnknown means no catalog entry matched; the unknown-barcode flow
	// takes over.
	KindUnknown = "unknown"
	// KindIgnored means the scan was absorbed by the duplicate guard.
	KindIgnored = "ignored"
	// KindQuantity means the input was a bare numeric token, consumed as the
	// quantity prefix for the next resolved product.
	KindQuantity = "quantity"
)

// Bare numeric tokens up to this many digits are quantity prefixes; real
// barcodes are longer.
const quantityPrefixMaxDigits = 4

// Resolution is the outcome of one scan event.
type Resolution struct {
	Kind     string           `json:"kind"`
	Product  *catalog.Product `json:"product,omitempty"`
	Quantity float64          `json:"quantity,omitempty"`
	Barcode  string           `json:"barcode,omitempty"`
}

// ProductSource supplies the catalog the dispatcher matches against.
type ProductSource interface {
	Products(ctx context.Context) ([]catalog.Product, error)
}

// Dispatcher normalizes scanner input and routes it to a product or to the
// unknown-barcode flow. One dispatcher per register session: the quantity
// prefix and the duplicate guard are screen state.
type Dispatcher struct {
	Source ProductSource
	// Window is the duplicate guard horizon; scanner double-fires land well
	// inside 2 seconds.
	Window time.Duration
	Now    func() time.Time

	mu          sync.Mutex
	pendingQty  *float64
	openBarcode string
	openedAt    time.Time
}

func (d *Dispatcher) window() time.Duration {
	if d.Window <= 0 {
		return 2 * time.Second
	}
	return d.Window
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Scan resolves one raw scanner event.
func (d *Dispatcher) Scan(ctx context.Context, raw string) (Resolution, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.openBarcode != "" && raw == d.openBarcode && now.Sub(d.openedAt) <= d.window() {
		return Resolution{Kind: KindIgnored, Barcode: Normalize(raw)}, nil
	}

	normalized := Normalize(raw)
	if len(normalized) <= quantityPrefixMaxDigits && IsBareNumeric(raw) {
		if qty, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64); err == nil && qty > 0 {
			d.pendingQty = &qty
			return Resolution{Kind: KindQuantity, Quantity: qty}, nil
		}
	}
	if normalized == "" {
		d.openBarcode = raw
		d.openedAt = now
		return Resolution{Kind: KindUnknown, Barcode: raw}, nil
	}

	products, err := d.Source.Products(ctx)
	if err != nil {
		return Resolution{}, err
	}
	for i := range products {
		p := products[i]
		if p.Barcode == "" || NormalizeBarcode(p.Barcode) != normalized {
			continue
		}
		qty := 1.0
		if d.pendingQty != nil {
			qty = *d.pendingQty
			d.pendingQty = nil
		}
		return Resolution{Kind: KindProduct, Product: &p, Quantity: qty, Barcode: normalized}, nil
	}

	d.openBarcode = raw
	d.openedAt = now
	return Resolution{Kind: KindUnknown, Barcode: normalized}, nil
}

// CloseResolution marks the unknown-barcode dialog as dismissed, re-arming
// the duplicate guard for that code.
func (d *Dispatcher) CloseResolution() {
	d.mu.Lock()
	d.openBarcode = ""
	d.mu.Unlock()
}
