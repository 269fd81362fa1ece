package pricing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/resilience"
)

// SpecialPricer looks up a per-customer unit price override. A nil price with
// a nil error means no override exists for the pair.
type SpecialPricer interface {
	SpecialPrice(ctx context.Context, customerID, productID string) (*float64, error)
}

// Resolver determines the effective unit price for a product given an
// optional customer. Lookup failures fail open to the catalog price; the till
// keeps selling even when the backend is unreachable.
type Resolver struct {
	Source SpecialPricer
	Log    zerolog.Logger
	// Breaker short-circuits lookups while the backend is known bad, so a
	// dead database does not add a timeout to every scan.
	Breaker *resilience.Breaker
}

// UnitPrice returns the customer-specific price when one exists, otherwise
// the provided catalog price.
func (r Resolver) UnitPrice(ctx context.Context, customerID, productID string, catalogPrice float64) float64 {
	if override := r.lookup(ctx, customerID, productID); override != nil {
		return *override
	}
	return catalogPrice
}

// ResolveAll fetches the special prices for every product id that has one.
// Products without an override are absent from the result.
func (r Resolver) ResolveAll(ctx context.Context, customerID string, productIDs []string) map[string]float64 {
	out := make(map[string]float64, len(productIDs))
	for _, id := range productIDs {
		if override := r.lookup(ctx, customerID, id); override != nil {
			out[id] = *override
		}
	}
	return out
}

func (r Resolver) lookup(ctx context.Context, customerID, productID string) *float64 {
	if r.Source == nil || customerID == "" || productID == "" {
		return nil
	}
	if r.Breaker != nil && !r.Breaker.Allow(ctx) {
		return nil
	}
	price, err := r.Source.SpecialPrice(ctx, customerID, productID)
	if r.Breaker != nil {
		r.Breaker.Report(ctx, err == nil)
	}
	if err != nil {
		r.Log.Warn().Err(err).
			Str("customer_id", customerID).
			Str("product_id", productID).
			Msg("special price lookup failed, falling back to catalog price")
		return nil
	}
	if price == nil || !finiteNonNegative(*price) {
		return nil
	}
	return price
}
