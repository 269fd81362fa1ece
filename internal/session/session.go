package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/promo"
	"github.com/noah-isme/backend-pos/internal/sale"
	"github.com/noah-isme/backend-pos/internal/scan"
)

var (
	// ErrEmptyCart is returned when payment is attempted on an empty ticket.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPromoCode is returned when a manually entered code does not resolve.
	ErrPromoCode = errors.New("unknown promo code")
)

// PromoCode is a manually entered promotion code applied to the ticket.
type PromoCode struct {
	Code     string           `json:"code"`
	Discount pricing.Discount `json:"discount"`
}

// CatalogSource supplies product reads.
type CatalogSource interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	ProductByID(ctx context.Context, id string) (catalog.Product, error)
}

// PromotionSource supplies the active promotion catalog.
type PromotionSource interface {
	Active(ctx context.Context, now time.Time) ([]promo.Promotion, error)
	ByCode(ctx context.Context, code string, now time.Time) (promo.Promotion, bool, error)
}

// Ticket is the rendered view of a session: lines plus derived totals.
type Ticket struct {
	RegisterID     string             `json:"registerId"`
	Lines          []cart.Line        `json:"lines"`
	Customer       *customer.Customer `json:"customer,omitempty"`
	GlobalDiscount *pricing.Discount  `json:"globalDiscount,omitempty"`
	PromoCode      *PromoCode         `json:"promoCode,omitempty"`
	AutoPromotion  promo.Result       `json:"autoPromotion"`
	InvoiceMode    bool               `json:"invoiceMode"`
	Totals         cart.Totals        `json:"totals"`
}

// Session owns one register's cart and everything that hangs off it. It is
// the single point of truth for mutations: handlers may run concurrently but
// every change is serialised against the current state, so an async price
// resolution can never overwrite edits made while it was in flight.
type Session struct {
	RegisterID string

	mu          sync.Mutex
	cart        cart.Cart
	cust        *customer.Customer
	customerRev uint64
	global      *pricing.Discount
	promoCode   *PromoCode
	auto        promo.Result
	invoiceMode bool

	// snapRev counts mutations. It orders snapshot writes and tells restore
	// that the session has been touched since creation.
	snapRev atomic.Uint64
	// snapMu serialises snapshot writes and deletes so an older operation
	// can never land after a newer one.
	snapMu sync.Mutex

	dispatcher *scan.Dispatcher
	catalog    CatalogSource
	promos     PromotionSource
	resolver   pricing.Resolver
	snapshots  SnapshotStore
	log        zerolog.Logger
	now        func() time.Time
}

func (s *Session) timeNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// restore applies a persisted snapshot. Derived totals are recomputed, and
// the automatic promotion is re-evaluated rather than restored. A session
// that was mutated while the snapshot was loading keeps its current state;
// the snapshot is stale by definition.
func (s *Session) restore(ctx context.Context, snap *Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapRev.Load() != 0 {
		return
	}
	s.cart.Lines = snap.Lines
	s.cart.Recompute()
	s.cust = snap.Customer
	s.global = snap.GlobalDiscount
	s.promoCode = snap.PromoCode
	s.invoiceMode = snap.InvoiceMode
	s.reevaluatePromotion(ctx)
}

// Ticket returns the current rendered view.
func (s *Session) Ticket() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticketLocked()
}

func (s *Session) ticketLocked() Ticket {
	lines := make([]cart.Line, len(s.cart.Lines))
	copy(lines, s.cart.Lines)
	var promoDiscount *pricing.Discount
	if s.promoCode != nil {
		d := s.promoCode.Discount
		promoDiscount = &d
	}
	return Ticket{
		RegisterID:     s.RegisterID,
		Lines:          lines,
		Customer:       s.cust,
		GlobalDiscount: s.global,
		PromoCode:      s.promoCode,
		AutoPromotion:  s.auto,
		InvoiceMode:    s.invoiceMode,
		Totals:         cart.ComputeTotals(lines, s.global, promoDiscount, s.auto.Amount),
	}
}

// Scan routes one raw scanner event through the dispatcher and, when it
// resolves to a product, into the cart. Weight products and products without
// a usable price are reported back instead of being added; the screen
// collects the missing value and calls AddItem.
func (s *Session) Scan(ctx context.Context, raw string) (scan.Resolution, Ticket, error) {
	res, err := s.dispatcher.Scan(ctx, raw)
	if err != nil {
		obs.ScansTotal.WithLabelValues("error").Inc()
		return scan.Resolution{}, s.Ticket(), err
	}
	if res.Kind != scan.KindProduct {
		obs.ScansTotal.WithLabelValues(res.Kind).Inc()
		return res, s.Ticket(), nil
	}

	p := *res.Product
	if p.Type == catalog.TypeWeight {
		// Never default a weight product to quantity 1; the scale value
		// comes through AddItem.
		obs.ScansTotal.WithLabelValues("weight_required").Inc()
		return scan.Resolution{Kind: "weight_required", Product: res.Product, Barcode: res.Barcode}, s.Ticket(), nil
	}

	special := s.specialPriceFor(ctx, p.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.cart.AddOrMerge(p, res.Quantity, special, nil); err != nil {
		if errors.Is(err, cart.ErrPriceRequired) {
			obs.ScansTotal.WithLabelValues("price_required").Inc()
			return scan.Resolution{Kind: "price_required", Product: res.Product, Quantity: res.Quantity, Barcode: res.Barcode}, s.ticketLocked(), nil
		}
		obs.ScansTotal.WithLabelValues("error").Inc()
		return scan.Resolution{}, s.ticketLocked(), err
	}
	obs.ScansTotal.WithLabelValues("product").Inc()
	s.refreshLocked(ctx)
	return res, s.ticketLocked(), nil
}

// CloseResolution dismisses the unknown-barcode dialog.
func (s *Session) CloseResolution() {
	s.dispatcher.CloseResolution()
}

// AddItem adds a product by id with an explicit quantity, used for manual
// adds, confirmed weights and confirmed price entries.
func (s *Session) AddItem(ctx context.Context, productID string, qty float64, price *float64) (Ticket, error) {
	p, err := s.catalog.ProductByID(ctx, productID)
	if err != nil {
		return s.Ticket(), err
	}
	special := s.specialPriceFor(ctx, p.ID)
	s.dispatcher.CloseResolution()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.cart.AddOrMerge(p, qty, special, price); err != nil {
		return s.ticketLocked(), err
	}
	s.refreshLocked(ctx)
	return s.ticketLocked(), nil
}

// UpdateQuantity changes a line's quantity.
func (s *Session) UpdateQuantity(ctx context.Context, line int, qty float64) (Ticket, error) {
	return s.mutate(ctx, func() error { return s.cart.UpdateQuantity(line, qty) })
}

// UpdatePrice sets a cashier price override on a line.
func (s *Session) UpdatePrice(ctx context.Context, line int, price float64) (Ticket, error) {
	return s.mutate(ctx, func() error { return s.cart.UpdatePrice(line, price) })
}

// ApplyLineDiscount attaches a discount to a line.
func (s *Session) ApplyLineDiscount(ctx context.Context, line int, d pricing.Discount) (Ticket, error) {
	return s.mutate(ctx, func() error { return s.cart.ApplyLineDiscount(line, d) })
}

// ClearLineDiscount removes a line's discount.
func (s *Session) ClearLineDiscount(ctx context.Context, line int) (Ticket, error) {
	return s.mutate(ctx, func() error { return s.cart.ClearLineDiscount(line) })
}

// ToggleGift flips a line's gift flag.
func (s *Session) ToggleGift(ctx context.Context, line int) (Ticket, error) {
	return s.mutate(ctx, func() error { return s.cart.ToggleGift(line) })
}

// RemoveLine drops a line from the ticket.
func (s *Session) RemoveLine(ctx context.Context, line int) (Ticket, error) {
	return s.mutate(ctx, func() error { return s.cart.Remove(line) })
}

// SetGlobalDiscount applies the cart-wide discount.
func (s *Session) SetGlobalDiscount(ctx context.Context, d pricing.Discount) (Ticket, error) {
	clamped, err := cart.ClampDiscount(d)
	if err != nil {
		return s.Ticket(), err
	}
	return s.mutate(ctx, func() error {
		s.global = &clamped
		return nil
	})
}

// ClearGlobalDiscount removes the cart-wide discount.
func (s *Session) ClearGlobalDiscount(ctx context.Context) (Ticket, error) {
	return s.mutate(ctx, func() error {
		s.global = nil
		return nil
	})
}

// ApplyPromoCode resolves a manually entered code against the promotion
// catalog and attaches it to the ticket.
func (s *Session) ApplyPromoCode(ctx context.Context, code string) (Ticket, error) {
	p, ok, err := s.promos.ByCode(ctx, code, s.timeNow())
	if err != nil {
		return s.Ticket(), err
	}
	if !ok {
		return s.Ticket(), ErrPromoCode
	}
	discount := pricing.Discount{Type: pricing.DiscountAmount, Value: p.Value}
	if p.Kind == promo.KindPercent {
		discount.Type = pricing.DiscountPercent
	}
	clamped, err := cart.ClampDiscount(discount)
	if err != nil {
		return s.Ticket(), err
	}
	return s.mutate(ctx, func() error {
		s.promoCode = &PromoCode{Code: p.Code, Discount: clamped}
		return nil
	})
}

// RemovePromoCode detaches the manually entered code.
func (s *Session) RemovePromoCode(ctx context.Context) (Ticket, error) {
	return s.mutate(ctx, func() error {
		s.promoCode = nil
		return nil
	})
}

// AttachCustomer binds a customer to the session and kicks off asynchronous
// re-resolution of every line's special price. The result is merged into the
// cart as it is at merge time; if the customer changed again meanwhile the
// stale result is discarded.
func (s *Session) AttachCustomer(ctx context.Context, c customer.Customer) Ticket {
	s.mu.Lock()
	s.cust = &c
	s.customerRev++
	rev := s.customerRev
	ids := s.cart.ProductIDs()
	s.refreshLocked(ctx)
	s.mu.Unlock()

	go s.resolvePrices(rev, c.ID, ids)
	return s.Ticket()
}

// DetachCustomer removes the customer and any special prices it brought.
func (s *Session) DetachCustomer(ctx context.Context) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cust = nil
	s.customerRev++
	s.cart.MergeSpecialPrices(nil)
	s.refreshLocked(ctx)
	return s.ticketLocked()
}

func (s *Session) resolvePrices(rev uint64, customerID string, productIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	prices := s.resolver.ResolveAll(ctx, customerID, productIDs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rev != s.customerRev {
		// Customer changed while the lookup was in flight.
		return
	}
	s.cart.MergeSpecialPrices(prices)
	s.refreshLocked(ctx)
}

func (s *Session) specialPriceFor(ctx context.Context, productID string) *float64 {
	s.mu.Lock()
	cust := s.cust
	s.mu.Unlock()
	if cust == nil {
		return nil
	}
	if price := s.resolver.ResolveAll(ctx, cust.ID, []string{productID}); len(price) == 1 {
		p := price[productID]
		return &p
	}
	return nil
}

// SetInvoiceMode toggles invoice emission for the next payment.
func (s *Session) SetInvoiceMode(ctx context.Context, invoice bool) (Ticket, error) {
	return s.mutate(ctx, func() error {
		s.invoiceMode = invoice
		return nil
	})
}

// Clear resets the whole session in one step: lines, discounts, promo code,
// automatic promotion, customer and invoice mode go together, never
// partially.
func (s *Session) Clear(ctx context.Context) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	return s.ticketLocked()
}

func (s *Session) clearLocked() {
	s.cart.Clear()
	s.global = nil
	s.promoCode = nil
	s.auto = promo.Result{}
	s.cust = nil
	s.customerRev++
	s.invoiceMode = false
	s.dispatcher.CloseResolution()
	go s.discard(s.snapRev.Add(1))
}

// Pay records the sale from the current totals snapshot. On success the
// session is cleared; on failure the ticket stays intact so the cashier can
// retry.
func (s *Session) Pay(ctx context.Context, svc *sale.Service, method sale.Method, invoice bool) (sale.Result, Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cart.Lines) == 0 {
		return sale.Result{}, s.ticketLocked(), ErrEmptyCart
	}
	ticket := s.ticketLocked()

	rec := sale.Record{
		RegisterID:    s.RegisterID,
		Kind:          sale.KindSale,
		Invoice:       invoice || s.invoiceMode,
		Method:        method,
		Subtotal:      ticket.Totals.Subtotal,
		VAT:           ticket.Totals.VAT,
		DiscountTotal: ticket.Totals.Discount,
		Total:         ticket.Totals.Total,
	}
	if s.cust != nil {
		id := s.cust.ID
		rec.CustomerID = &id
	}
	for i := range ticket.Lines {
		line := &ticket.Lines[i]
		rec.Items = append(rec.Items, sale.Item{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Barcode:   line.Product.Barcode,
			Quantity:  line.Quantity,
			UnitPrice: line.EffectiveUnitPrice(),
			VATRate:   line.Product.VATRate,
			Discount:  line.Discount,
			Subtotal:  line.Subtotal,
			VAT:       line.VAT,
			Total:     line.Total,
		})
	}

	res, err := svc.Record(ctx, rec)
	if err != nil {
		return sale.Result{}, ticket, err
	}
	s.clearLocked()
	return res, s.ticketLocked(), nil
}

// mutate runs a cart mutation under the session lock, then re-evaluates the
// automatic promotion and persists the snapshot.
func (s *Session) mutate(ctx context.Context, fn func() error) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		return s.ticketLocked(), err
	}
	s.refreshLocked(ctx)
	return s.ticketLocked(), nil
}

// refreshLocked recomputes the automatic promotion against the current cart
// and schedules a snapshot write. Caller holds the lock.
func (s *Session) refreshLocked(ctx context.Context) {
	s.reevaluatePromotion(ctx)
	rev := s.snapRev.Add(1)
	snap := Snapshot{
		Lines:          append([]cart.Line(nil), s.cart.Lines...),
		Customer:       s.cust,
		GlobalDiscount: s.global,
		PromoCode:      s.promoCode,
		InvoiceMode:    s.invoiceMode,
	}
	// Fire and forget: persistence must never block the next mutation.
	go s.persist(rev, snap)
}

// persist writes one snapshot. Writes are serialised through snapMu and a
// snapshot that has been superseded while waiting is dropped, so the stored
// state always reflects the latest mutation.
func (s *Session) persist(rev uint64, snap Snapshot) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	if rev != s.snapRev.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.snapshots.Save(ctx, s.RegisterID, snap); err != nil {
		s.log.Warn().Err(err).Str("register_id", s.RegisterID).Msg("persist session snapshot")
	}
}

// discard removes the stored snapshot, going through the same gate as
// persist so a save in flight when the session cleared cannot resurrect it.
func (s *Session) discard(rev uint64) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	if rev != s.snapRev.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.snapshots.Delete(ctx, s.RegisterID); err != nil {
		s.log.Warn().Err(err).Str("register_id", s.RegisterID).Msg("delete session snapshot")
	}
}

func (s *Session) reevaluatePromotion(ctx context.Context) {
	if len(s.cart.Lines) == 0 {
		s.auto = promo.Result{}
		return
	}
	promos, err := s.promos.Active(ctx, s.timeNow())
	if err != nil {
		// Promotion catalog unreachable: sell without promotions.
		s.log.Warn().Err(err).Msg("promotion catalog unavailable")
		s.auto = promo.Result{}
		return
	}
	class := ""
	if s.cust != nil {
		class = s.cust.Class
	}
	previous := s.auto.Applied
	s.auto = promo.Select(s.cart.PromoView(), promos, class, s.timeNow())
	if s.auto.Applied != nil && (previous == nil || previous.ID != s.auto.Applied.ID) {
		obs.PromotionsApplied.WithLabelValues(s.auto.Applied.Code).Inc()
	}
}
