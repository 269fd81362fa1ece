package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/sale"
)

var validate = validator.New()

// CustomerSource looks up customers for attachment.
type CustomerSource interface {
	ByID(ctx context.Context, id string) (customer.Customer, error)
}

// Handler exposes the register session API.
type Handler struct {
	Manager   *Manager
	Customers CustomerSource
	Sales     *sale.Service
	// ScanLimiter rate limits the scan endpoint per register; nil disables.
	ScanLimiter func(http.Handler) http.Handler
	// PayIdem makes payment requests idempotent across retries; nil disables.
	PayIdem func(http.Handler) http.Handler
	// PayLock serialises payment across server instances sharing a register.
	PayLock *lock.Locker
}

type scanRequest struct {
	Raw string `json:"raw" validate:"required"`
}

type addItemRequest struct {
	ProductID string   `json:"productId" validate:"required"`
	Quantity  float64  `json:"quantity" validate:"required,gt=0"`
	Price     *float64 `json:"price,omitempty"`
}

type patchItemRequest struct {
	Quantity      *float64          `json:"quantity,omitempty"`
	Price         *float64          `json:"price,omitempty"`
	Discount      *pricing.Discount `json:"discount,omitempty"`
	ClearDiscount bool              `json:"clearDiscount,omitempty"`
	ToggleGift    bool              `json:"toggleGift,omitempty"`
}

type promoCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type customerRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
}

type invoiceModeRequest struct {
	Invoice bool `json:"invoice"`
}

type payRequest struct {
	Method  sale.Method `json:"method" validate:"required"`
	Invoice bool        `json:"invoice"`
}

// Routes mounts the register session endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/registers/{registerID}", func(r chi.Router) {
		r.Post("/session", h.Open)
		r.Get("/session", h.Ticket)
		r.Delete("/session", h.Clear)
		r.Delete("/", h.CloseRegister)
		if h.ScanLimiter != nil {
			r.With(h.ScanLimiter).Post("/scan", h.Scan)
		} else {
			r.Post("/scan", h.Scan)
		}
		r.Delete("/resolution", h.CloseResolution)
		r.Put("/invoice-mode", h.SetInvoiceMode)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{idx}", h.PatchItem)
		r.Delete("/items/{idx}", h.RemoveItem)
		r.Put("/discount", h.SetDiscount)
		r.Delete("/discount", h.ClearDiscount)
		r.Post("/promo-code", h.ApplyPromoCode)
		r.Delete("/promo-code", h.RemovePromoCode)
		r.Put("/customer", h.AttachCustomer)
		r.Delete("/customer", h.DetachCustomer)
		if h.PayIdem != nil {
			r.With(h.PayIdem).Post("/pay", h.Pay)
		} else {
			r.Post("/pay", h.Pay)
		}
	})
}

func (h *Handler) session(r *http.Request) *Session {
	return h.Manager.Session(r.Context(), chi.URLParam(r, "registerID"))
}

// Open creates or restores the register session and returns the ticket.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	common.JSON(w, http.StatusOK, s.Ticket())
}

// Ticket returns the current ticket view.
func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	common.JSON(w, http.StatusOK, s.Ticket())
}

// Clear resets the whole session atomically.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	common.JSON(w, http.StatusOK, s.Clear(r.Context()))
}

// CloseRegister clears the register's ticket and releases its in-memory
// session, for end of shift.
func (h *Handler) CloseRegister(w http.ResponseWriter, r *http.Request) {
	h.Manager.Close(r.Context(), chi.URLParam(r, "registerID"))
	w.WriteHeader(http.StatusNoContent)
}

// CloseResolution dismisses the open unknown-barcode dialog, re-arming the
// duplicate scan guard for that code.
func (h *Handler) CloseResolution(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	s.CloseResolution()
	w.WriteHeader(http.StatusNoContent)
}

// SetInvoiceMode toggles invoice emission for the next payment.
func (h *Handler) SetInvoiceMode(w http.ResponseWriter, r *http.Request) {
	var req invoiceModeRequest
	if !decode(w, r, &req) {
		return
	}
	s := h.session(r)
	ticket, err := s.SetInvoiceMode(r.Context(), req.Invoice)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, ticket)
}

// Scan routes one raw scanner event.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decode(w, r, &req) {
		return
	}
	s := h.session(r)
	res, ticket, err := s.Scan(r.Context(), req.Raw)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"resolution": res, "ticket": ticket})
}

// AddItem adds a product manually, with an explicit quantity and optional
// price entry.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decode(w, r, &req) {
		return
	}
	s := h.session(r)
	ticket, err := s.AddItem(r.Context(), req.ProductID, req.Quantity, req.Price)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, ticket)
}

// PatchItem applies line edits: quantity, price override, discount, gift.
func (h *Handler) PatchItem(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(w, r)
	if !ok {
		return
	}
	var req patchItemRequest
	if !decode(w, r, &req) {
		return
	}
	s := h.session(r)
	ctx := r.Context()

	var ticket Ticket
	var err error
	switch {
	case req.Quantity != nil:
		ticket, err = s.UpdateQuantity(ctx, idx, *req.Quantity)
	case req.Price != nil:
		ticket, err = s.UpdatePrice(ctx, idx, *req.Price)
	case req.Discount != nil:
		ticket, err = s.ApplyLineDiscount(ctx, idx, *req.Discount)
	case req.ClearDiscount:
		ticket, err = s.ClearLineDiscount(ctx, idx)
	case req.ToggleGift:
		ticket, err = s.ToggleGift(ctx, idx)
	default:
		common.JSONError(w, http.StatusBadRequest, "EMPTY_PATCH", "no edit in request", nil)
		return
	}
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, ticket)
}

// RemoveItem drops a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(w, r)
	if !ok {
		return
	}
	s := h.session(r)
	ticket, err := s.RemoveLine(r.Context(), idx)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, ticket)
}

// SetDiscount applies the cart-wide discount.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var d pricing.Discount
	if !decode(w, r, &d) {
		return
	}
	s := h.session(r)
	ticket, err := s.SetGlobalDiscount(r.Context(), d)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, ticket)
}

// ClearDiscount removes the cart-wide discount.
func (h *Handler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	ticket, err := s.ClearGlobalDiscount(r.Context())
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, ticket)
}

// ApplyPromoCode attaches a manually entered promotion code.
func (h *Handler) ApplyPromoCode(w http.ResponseWriter, r *http.Request) {
	var req promoCodeRequest
	if !decode(w, r, &req) {
		return
	}
	s := h.session(r)
	ticket, err := s.ApplyPromoCode(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, ErrPromoCode) {
			common.JSONError(w, http.StatusNotFound, "PROMO_CODE_UNKNOWN", "promo code not found", nil)
			return
		}
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, ticket)
}

// RemovePromoCode detaches the promotion code.
func (h *Handler) RemovePromoCode(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	ticket, err := s.RemovePromoCode(r.Context())
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, ticket)
}

// AttachCustomer binds a customer to the session.
func (h *Handler) AttachCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Customers.ByID(r.Context(), req.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "customer not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customer lookup failed", nil)
		return
	}
	s := h.session(r)
	common.JSON(w, http.StatusOK, s.AttachCustomer(r.Context(), c))
}

// DetachCustomer removes the attached customer.
func (h *Handler) DetachCustomer(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	common.JSON(w, http.StatusOK, s.DetachCustomer(r.Context()))
}

// Pay finalises the ticket as a sale.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if !decode(w, r, &req) {
		return
	}
	s := h.session(r)
	var res sale.Result
	var ticket Ticket
	pay := func(ctx context.Context) error {
		var err error
		res, ticket, err = s.Pay(ctx, h.Sales, req.Method, req.Invoice)
		return err
	}
	var err error
	if h.PayLock != nil {
		err = h.PayLock.WithLock(r.Context(), "pos:pay:"+s.RegisterID, 10*time.Second, pay)
	} else {
		err = pay(r.Context())
	}
	if err != nil {
		writePayError(w, err, ticket)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"sale": res, "ticket": ticket})
}

func lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_LINE", "line index must be an integer", nil)
		return 0, false
	}
	return idx, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body", nil)
		return false
	}
	if err := validate.Struct(v); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "request validation failed", err.Error())
		return false
	}
	return true
}

func writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrLineIndex):
		common.JSONError(w, http.StatusNotFound, "LINE_NOT_FOUND", "line does not exist", nil)
	case errors.Is(err, cart.ErrQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", "quantity out of range", nil)
	case errors.Is(err, cart.ErrGiftDiscount):
		common.JSONError(w, http.StatusConflict, "GIFT_DISCOUNT", "gift lines cannot take a discount", nil)
	case errors.Is(err, cart.ErrWeightRequired):
		common.JSONError(w, http.StatusBadRequest, "WEIGHT_REQUIRED", "weight value required", nil)
	case errors.Is(err, cart.ErrPriceRequired):
		common.JSONError(w, http.StatusBadRequest, "PRICE_REQUIRED", "price entry required", nil)
	default:
		common.JSONError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}
}

func writePayError(w http.ResponseWriter, err error, ticket Ticket) {
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, sale.ErrEmptySale):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, sale.ErrUnknownMethod):
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_METHOD", "unknown payment method", nil)
	case errors.Is(err, sale.ErrCreditCustomer):
		common.JSONError(w, http.StatusConflict, "CREDIT_CUSTOMER_REQUIRED", "credit payment needs an attached customer", nil)
	default:
		// Sale persistence failed; the ticket is preserved for retry.
		common.JSON(w, http.StatusBadGateway, map[string]any{
			"error":  common.ErrorBody{Code: "SALE_FAILED", Message: "sale could not be recorded"},
			"ticket": ticket,
		})
	}
}
