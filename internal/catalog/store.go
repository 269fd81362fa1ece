package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

const productsCacheKey = "catalog:products"

// Store reads catalog data from the backend database. The product list is
// cached as a whole: a register scans against the full catalog anyway.
type Store struct {
	Pool  *pgxpool.Pool
	Cache *Cache
}

// Products returns the full catalog, served from cache when possible.
func (s *Store) Products(ctx context.Context) ([]Product, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog store not configured")
	}
	var cached []Product
	if ok, err := s.Cache.GetJSON(ctx, productsCacheKey, &cached); err == nil && ok {
		return cached, nil
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, COALESCE(barcode, ''), price, vat_rate, type, stock, min_stock, COALESCE(unit, '')
		FROM products
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var typ string
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.VATRate, &typ, &p.Stock, &p.MinStock, &p.Unit); err != nil {
			return nil, err
		}
		p.Type = ProductType(typ)
		parsed, err := ParseProduct(p)
		if err != nil {
			// Malformed rows are skipped, not fatal. The register keeps
			// working with the rest of the catalog.
			continue
		}
		products = append(products, parsed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, productsCacheKey, products)
	return products, nil
}

// ProductByID loads a single product.
func (s *Store) ProductByID(ctx context.Context, id string) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog store not configured")
	}
	var p Product
	var typ string
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(barcode, ''), price, vat_rate, type, stock, min_stock, COALESCE(unit, '')
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.VATRate, &typ, &p.Stock, &p.MinStock, &p.Unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	p.Type = ProductType(typ)
	return ParseProduct(p)
}

// SpecialPrice returns the per-customer override for a product, or nil when
// none exists. Implements pricing.SpecialPricer.
func (s *Store) SpecialPrice(ctx context.Context, customerID, productID string) (*float64, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog store not configured")
	}
	var price float64
	err := s.Pool.QueryRow(ctx, `
		SELECT price FROM special_prices
		WHERE customer_id = $1 AND product_id = $2`, customerID, productID).
		Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &price, nil
}

// InvalidateProducts drops the cached product list.
func (s *Store) InvalidateProducts(ctx context.Context) {
	_ = s.Cache.Invalidate(ctx, productsCacheKey)
}

// WarmCache preloads the product cache at startup so the first scan of the
// day does not pay the full catalog read.
func (s *Store) WarmCache(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := s.Products(ctx)
	return err
}
