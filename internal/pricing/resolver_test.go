package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type pricerFunc func(ctx context.Context, customerID, productID string) (*float64, error)

func (f pricerFunc) SpecialPrice(ctx context.Context, customerID, productID string) (*float64, error) {
	return f(ctx, customerID, productID)
}

func TestResolverPrefersOverride(t *testing.T) {
	override := 0.95
	r := Resolver{
		Source: pricerFunc(func(context.Context, string, string) (*float64, error) { return &override, nil }),
		Log:    zerolog.Nop(),
	}
	got := r.UnitPrice(context.Background(), "c1", "p1", 1.20)
	if got != override {
		t.Fatalf("got %v, want override %v", got, override)
	}
}

func TestResolverFailsOpenOnError(t *testing.T) {
	r := Resolver{
		Source: pricerFunc(func(context.Context, string, string) (*float64, error) {
			return nil, errors.New("backend down")
		}),
		Log: zerolog.Nop(),
	}
	got := r.UnitPrice(context.Background(), "c1", "p1", 1.20)
	if got != 1.20 {
		t.Fatalf("got %v, want catalog price 1.20", got)
	}
}

func TestResolveAllSkipsMissingOverrides(t *testing.T) {
	override := 2.50
	r := Resolver{
		Source: pricerFunc(func(_ context.Context, _, productID string) (*float64, error) {
			if productID == "p1" {
				return &override, nil
			}
			return nil, nil
		}),
		Log: zerolog.Nop(),
	}
	got := r.ResolveAll(context.Background(), "c1", []string{"p1", "p2"})
	if len(got) != 1 || got["p1"] != override {
		t.Fatalf("unexpected result: %v", got)
	}
}
