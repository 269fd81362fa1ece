package promo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads the active promotion catalog from the backend database.
type Store struct {
	Pool *pgxpool.Pool
}

// Active returns promotions whose validity window covers now. Scoping and
// class checks stay in the evaluator so the query remains a plain read.
func (s *Store) Active(ctx context.Context, now time.Time) ([]Promotion, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("promo store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, code, name, kind, value, min_spend,
		       COALESCE(product_ids, '{}'), COALESCE(customer_classes, '{}'),
		       valid_from, valid_to, priority
		FROM promotions
		WHERE (valid_from IS NULL OR valid_from <= $1)
		  AND (valid_to IS NULL OR valid_to >= $1)
		ORDER BY priority DESC, code`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promos []Promotion
	for rows.Next() {
		var p Promotion
		var kind string
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &kind, &p.Value, &p.MinSpend,
			&p.ProductIDs, &p.CustomerClasses, &p.ValidFrom, &p.ValidTo, &p.Priority); err != nil {
			return nil, err
		}
		p.Kind = Kind(kind)
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

// ByCode resolves a manually entered promo code against the catalog.
func (s *Store) ByCode(ctx context.Context, code string, now time.Time) (Promotion, bool, error) {
	promos, err := s.Active(ctx, now)
	if err != nil {
		return Promotion{}, false, err
	}
	for _, p := range promos {
		if p.Code == code {
			return p, true, nil
		}
	}
	return Promotion{}, false, nil
}
