package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

var (
	// ErrEmptySale is returned when a payment is attempted on an empty ticket.
	ErrEmptySale = errors.New("sale has no items")
	// ErrUnknownMethod is returned for payment methods the register does not accept.
	ErrUnknownMethod = errors.New("unknown payment method")
	// ErrCreditCustomer is returned when a credit payment has no attached customer.
	ErrCreditCustomer = errors.New("credit payment requires a customer")
	// ErrNotCreditable is returned when a credit note targets something other
	// than a regular sale.
	ErrNotCreditable = errors.New("only regular sales can be credited")
)

// Service records completed sales. It is called exactly once per payment;
// there is no automatic retry, the caller surfaces failures and keeps the
// ticket intact so the cashier retries manually.
type Service struct {
	Store Store
	Log   zerolog.Logger
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Record persists the sale. A credit payment additionally charges the
// customer's credit account; that charge is a non-blocking side effect and
// never rolls back the already-created sale.
func (s *Service) Record(ctx context.Context, rec Record) (Result, error) {
	if s == nil || s.Store == nil {
		return Result{}, errors.New("sale service not configured")
	}
	if len(rec.Items) == 0 {
		return Result{}, ErrEmptySale
	}
	if !rec.Method.Known() {
		return Result{}, ErrUnknownMethod
	}
	if rec.Method == MethodCredit && (rec.CustomerID == nil || *rec.CustomerID == "") {
		return Result{}, ErrCreditCustomer
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Kind == "" {
		rec.Kind = KindSale
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	roundRecord(&rec)

	res, err := s.Store.InsertSale(ctx, rec)
	if err != nil {
		obs.SalesTotal.WithLabelValues(string(rec.Method), "error").Inc()
		return Result{}, fmt.Errorf("persist sale: %w", err)
	}
	obs.SalesTotal.WithLabelValues(string(rec.Method), "ok").Inc()
	obs.SaleAmount.Observe(rec.Total)

	if rec.Method == MethodCredit {
		if err := s.Store.AdjustCredit(ctx, *rec.CustomerID, -rec.Total, res.ID); err != nil {
			// The sale stands. The charge is reconciled out of band.
			s.Log.Error().Err(err).
				Str("sale_id", res.ID).
				Str("customer_id", *rec.CustomerID).
				Float64("amount", rec.Total).
				Msg("credit charge failed after sale creation")
			obs.CreditChargeTotal.WithLabelValues("error").Inc()
		} else {
			obs.CreditChargeTotal.WithLabelValues("ok").Inc()
		}
	}
	return res, nil
}

// CreditNote reverses an earlier sale in full: same lines with negated
// quantities and amounts, stored as its own document referencing the
// original.
func (s *Service) CreditNote(ctx context.Context, originalID, registerID string) (Result, error) {
	if s == nil || s.Store == nil {
		return Result{}, errors.New("sale service not configured")
	}
	original, err := s.Store.SaleByID(ctx, originalID)
	if err != nil {
		return Result{}, err
	}
	if original.Kind != KindSale {
		return Result{}, ErrNotCreditable
	}

	note := Record{
		ID:             uuid.NewString(),
		RegisterID:     registerID,
		Kind:           KindCreditNote,
		OriginalSaleID: &original.ID,
		CustomerID:     original.CustomerID,
		Method:         original.Method,
		Subtotal:       -original.Subtotal,
		VAT:            -original.VAT,
		DiscountTotal:  -original.DiscountTotal,
		Total:          -original.Total,
		CreatedAt:      s.now(),
	}
	for _, item := range original.Items {
		item.Quantity = -item.Quantity
		item.Subtotal = -item.Subtotal
		item.VAT = -item.VAT
		item.Total = -item.Total
		note.Items = append(note.Items, item)
	}

	res, err := s.Store.InsertSale(ctx, note)
	if err != nil {
		return Result{}, fmt.Errorf("persist credit note: %w", err)
	}
	if original.Method == MethodCredit && original.CustomerID != nil {
		if err := s.Store.AdjustCredit(ctx, *original.CustomerID, original.Total, res.ID); err != nil {
			s.Log.Error().Err(err).Str("sale_id", res.ID).Msg("credit refund failed after credit note creation")
		}
	}
	return res, nil
}

// Daily builds the end-of-day cash report.
func (s *Service) Daily(ctx context.Context, day time.Time) (Report, error) {
	if s == nil || s.Store == nil {
		return Report{}, errors.New("sale service not configured")
	}
	return s.Store.DailyReport(ctx, day)
}

// roundRecord rounds monetary fields to the currency unit at the document
// boundary. Calculation upstream keeps full precision.
func roundRecord(rec *Record) {
	rec.Subtotal = pricing.RoundCurrency(rec.Subtotal)
	rec.VAT = pricing.RoundCurrency(rec.VAT)
	rec.DiscountTotal = pricing.RoundCurrency(rec.DiscountTotal)
	rec.Total = pricing.RoundCurrency(rec.Total)
	for i := range rec.Items {
		item := &rec.Items[i]
		item.UnitPrice = pricing.RoundCurrency(item.UnitPrice)
		item.Subtotal = pricing.RoundCurrency(item.Subtotal)
		item.VAT = pricing.RoundCurrency(item.VAT)
		item.Total = pricing.RoundCurrency(item.Total)
	}
}
