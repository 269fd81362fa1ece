package catalog

import (
	"errors"
	"testing"
)

func TestParseProductDefaultsToUnit(t *testing.T) {
	p, err := ParseProduct(Product{ID: "p1", Name: "Espresso", Price: 1.20, VATRate: 10})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Type != TypeUnit {
		t.Fatalf("type = %q, want unit", p.Type)
	}
}

func TestParseProductRejectsMalformedRecords(t *testing.T) {
	cases := []Product{
		{Name: "no id", Price: 1, Type: TypeUnit},
		{ID: "p1", Price: 1, Type: TypeUnit},
		{ID: "p1", Name: "negative", Price: -1, Type: TypeUnit},
		{ID: "p1", Name: "negative vat", Price: 1, VATRate: -21, Type: TypeUnit},
		{ID: "p1", Name: "bad type", Price: 1, Type: "volume"},
	}
	for _, c := range cases {
		if _, err := ParseProduct(c); !errors.Is(err, ErrInvalidProduct) {
			t.Fatalf("product %+v: expected ErrInvalidProduct, got %v", c, err)
		}
	}
}
