package customer

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer is an external backend entity attached to a register session.
// Class drives promotion eligibility, CreditBalance backs credit payments.
type Customer struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Class         string  `json:"class"`
	CreditBalance float64 `json:"creditBalance"`
}

// Store reads customers from the backend database.
type Store struct {
	Pool *pgxpool.Pool
}

// ByID loads a single customer.
func (s *Store) ByID(ctx context.Context, id string) (Customer, error) {
	if s == nil || s.Pool == nil {
		return Customer{}, errors.New("customer store not configured")
	}
	var c Customer
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(class, ''), credit_balance
		FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Class, &c.CreditBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}
