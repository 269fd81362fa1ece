package sale

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the referenced sale does not exist.
var ErrNotFound = errors.New("sale not found")

// Store is the persistence collaborator for completed sales.
type Store interface {
	InsertSale(ctx context.Context, rec Record) (Result, error)
	AdjustCredit(ctx context.Context, customerID string, delta float64, saleID string) error
	SaleByID(ctx context.Context, id string) (Record, error)
	DailyReport(ctx context.Context, day time.Time) (Report, error)
}

// PGStore persists sales in the backend database.
type PGStore struct {
	Pool *pgxpool.Pool
}

// InsertSale writes the sale and its items in one transaction. The sale
// number comes from a database sequence; the register never invents numbers.
func (s *PGStore) InsertSale(ctx context.Context, rec Record) (Result, error) {
	if s == nil || s.Pool == nil {
		return Result{}, errors.New("sale store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var res Result
	err = tx.QueryRow(ctx, `
		INSERT INTO sales (id, number, register_id, kind, original_sale_id, customer_id,
		                   invoice, method, subtotal, vat_total, discount_total, total, created_at)
		VALUES ($1, nextval('sale_number_seq'), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, number`,
		rec.ID, rec.RegisterID, string(rec.Kind), rec.OriginalSaleID, rec.CustomerID,
		rec.Invoice, string(rec.Method), rec.Subtotal, rec.VAT, rec.DiscountTotal, rec.Total, rec.CreatedAt).
		Scan(&res.ID, &res.Number)
	if err != nil {
		return Result{}, err
	}

	for _, item := range rec.Items {
		var discount []byte
		if item.Discount != nil {
			discount, err = json.Marshal(item.Discount)
			if err != nil {
				return Result{}, err
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, barcode, quantity,
			                        unit_price, vat_rate, discount, subtotal, vat_amount, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			res.ID, item.ProductID, item.Name, item.Barcode, item.Quantity,
			item.UnitPrice, item.VATRate, discount, item.Subtotal, item.VAT, item.Total); err != nil {
			return Result{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, err
	}
	return res, nil
}

// AdjustCredit moves the customer's credit balance and records the movement.
func (s *PGStore) AdjustCredit(ctx context.Context, customerID string, delta float64, saleID string) error {
	if s == nil || s.Pool == nil {
		return errors.New("sale store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	tag, err := tx.Exec(ctx, `
		UPDATE customers SET credit_balance = credit_balance + $1 WHERE id = $2`, delta, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("customer not found for credit adjustment")
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO credit_movements (customer_id, sale_id, amount, created_at)
		VALUES ($1, $2, $3, now())`, customerID, saleID, delta); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaleByID loads a full sale document including items.
func (s *PGStore) SaleByID(ctx context.Context, id string) (Record, error) {
	if s == nil || s.Pool == nil {
		return Record{}, errors.New("sale store not configured")
	}
	var rec Record
	var kind, method string
	err := s.Pool.QueryRow(ctx, `
		SELECT id, register_id, kind, original_sale_id, customer_id, invoice, method,
		       subtotal, vat_total, discount_total, total, created_at
		FROM sales WHERE id = $1`, id).
		Scan(&rec.ID, &rec.RegisterID, &kind, &rec.OriginalSaleID, &rec.CustomerID, &rec.Invoice,
			&method, &rec.Subtotal, &rec.VAT, &rec.DiscountTotal, &rec.Total, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Kind = Kind(kind)
	rec.Method = Method(method)

	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, name, COALESCE(barcode, ''), quantity, unit_price, vat_rate,
		       discount, subtotal, vat_amount, total
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		var discount []byte
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Barcode, &item.Quantity,
			&item.UnitPrice, &item.VATRate, &discount, &item.Subtotal, &item.VAT, &item.Total); err != nil {
			return Record{}, err
		}
		if len(discount) > 0 {
			if err := json.Unmarshal(discount, &item.Discount); err != nil {
				return Record{}, err
			}
		}
		rec.Items = append(rec.Items, item)
	}
	return rec, rows.Err()
}

// DailyReport aggregates the day's documents per payment method.
func (s *PGStore) DailyReport(ctx context.Context, day time.Time) (Report, error) {
	if s == nil || s.Pool == nil {
		return Report{}, errors.New("sale store not configured")
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	report := Report{Date: start.Format("2006-01-02")}
	rows, err := s.Pool.Query(ctx, `
		SELECT method, COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(vat_total), 0)
		FROM sales
		WHERE kind = 'sale' AND created_at >= $1 AND created_at < $2
		GROUP BY method ORDER BY method`, start, end)
	if err != nil {
		return Report{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var mt MethodTotal
		var method string
		if err := rows.Scan(&method, &mt.Count, &mt.Total, &mt.VAT); err != nil {
			return Report{}, err
		}
		mt.Method = Method(method)
		report.Methods = append(report.Methods, mt)
		report.Count += mt.Count
		report.Total += mt.Total
		report.VAT += mt.VAT
	}
	if err := rows.Err(); err != nil {
		return Report{}, err
	}

	err = s.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM sales
		WHERE kind = 'credit_note' AND created_at >= $1 AND created_at < $2`, start, end).
		Scan(&report.CreditNotes)
	if err != nil {
		return Report{}, err
	}
	return report, nil
}
