package sale

import (
	"time"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Method is the payment method of a completed sale.
type Method string

const (
	// MethodCash settles against the register drawer.
	MethodCash Method = "cash"
	// MethodCard settles through the card terminal.
	MethodCard Method = "card"
	// MethodCredit charges the customer's credit account.
	MethodCredit Method = "credit"
)

// Known reports whether the method is one the register accepts.
func (m Method) Known() bool {
	switch m {
	case MethodCash, MethodCard, MethodCredit:
		return true
	}
	return false
}

// Kind distinguishes regular sales from credit notes.
type Kind string

const (
	// KindSale is a regular completed sale.
	KindSale Kind = "sale"
	// KindCreditNote reverses all or part of an earlier sale.
	KindCreditNote Kind = "credit_note"
)

// Item is a persisted sale line, denormalised so the document survives later
// catalog edits.
type Item struct {
	ProductID string            `json:"productId"`
	Name      string            `json:"name"`
	Barcode   string            `json:"barcode"`
	Quantity  float64           `json:"quantity"`
	UnitPrice float64           `json:"unitPrice"`
	VATRate   float64           `json:"vatRate"`
	Discount  *pricing.Discount `json:"discount,omitempty"`
	Subtotal  float64           `json:"subtotal"`
	VAT       float64           `json:"vatAmount"`
	Total     float64           `json:"total"`
}

// Record is the sale document handed to persistence, built from the ticket
// totals snapshot at payment time.
type Record struct {
	ID             string    `json:"id"`
	RegisterID     string    `json:"registerId"`
	Kind           Kind      `json:"kind"`
	OriginalSaleID *string   `json:"originalSaleId,omitempty"`
	CustomerID     *string   `json:"customerId,omitempty"`
	Invoice        bool      `json:"invoice"`
	Method         Method    `json:"method"`
	Subtotal       float64   `json:"subtotal"`
	VAT            float64   `json:"totalVat"`
	DiscountTotal  float64   `json:"totalDiscount"`
	Total          float64   `json:"total"`
	Items          []Item    `json:"items"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Result carries the identifiers assigned by the backend: sale numbering is
// not a register concern.
type Result struct {
	ID     string `json:"id"`
	Number int64  `json:"number"`
}

// MethodTotal is one row of the daily cash report.
type MethodTotal struct {
	Method Method  `json:"method"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
	VAT    float64 `json:"vat"`
}

// Report is the end-of-day summary per payment method.
type Report struct {
	Date        string        `json:"date"`
	Methods     []MethodTotal `json:"methods"`
	Count       int           `json:"count"`
	Total       float64       `json:"total"`
	VAT         float64       `json:"vat"`
	CreditNotes float64       `json:"creditNotes"`
}
