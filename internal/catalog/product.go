package catalog

import (
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
)

// ProductType distinguishes items sold per piece from items sold by weight.
type ProductType string

const (
	// TypeUnit products have integral quantities.
	TypeUnit ProductType = "unit"
	// TypeWeight products carry fractional quantities obtained from a scale.
	TypeWeight ProductType = "weight"
)

// ErrInvalidProduct is returned when a backend record fails boundary validation.
var ErrInvalidProduct = errors.New("invalid product record")

// Product is a read-only catalog entity. Price is tax inclusive, VATRate is a
// percentage. Records are validated once when they cross the backend
// boundary; everything downstream assumes well-formed values.
type Product struct {
	ID       string      `json:"id" validate:"required"`
	Name     string      `json:"name" validate:"required"`
	Barcode  string      `json:"barcode"`
	Price    float64     `json:"price" validate:"gte=0"`
	VATRate  float64     `json:"vatRate" validate:"gte=0"`
	Type     ProductType `json:"type" validate:"oneof=unit weight"`
	Stock    float64     `json:"stock"`
	MinStock float64     `json:"minStock"`
	Unit     string      `json:"unit"`
}

var validate = validator.New()

// ParseProduct validates a record loaded from the backend. Rows that fail
// validation are rejected here so calculation code never sees them.
func ParseProduct(p Product) (Product, error) {
	if p.Type == "" {
		p.Type = TypeUnit
	}
	if err := validate.Struct(p); err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	return p, nil
}
