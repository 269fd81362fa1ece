package sale

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes sale documents and reports.
type Handler struct {
	Svc      *Service
	Currency string
}

// CreditNote creates a full credit note for an earlier sale.
func (h *Handler) CreditNote(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sale service not configured", nil)
		return
	}
	saleID := chi.URLParam(r, "id")
	registerID := r.URL.Query().Get("register")
	res, err := h.Svc.CreditNote(r.Context(), saleID, registerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
		case errors.Is(err, ErrNotCreditable):
			common.JSONError(w, http.StatusConflict, "CONFLICT", "only regular sales can be credited", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to create credit note", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": res})
}

// Daily returns the daily cash report. Defaults to today when no date is
// provided.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sale service not configured", nil)
		return
	}
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "date must be YYYY-MM-DD", nil)
			return
		}
		day = parsed
	}
	report, err := h.Svc.Daily(r.Context(), day)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to build daily report", nil)
		return
	}
	if report.Methods == nil {
		report.Methods = []MethodTotal{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": report, "currency": h.Currency})
}
