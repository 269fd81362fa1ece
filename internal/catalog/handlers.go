package catalog

import (
	"net/http"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes catalog reads to the POS screens.
type Handler struct {
	Store *Store
}

// Products returns the full product list the register works against.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog store not configured", nil)
		return
	}
	products, err := h.Store.Products(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load products", nil)
		return
	}
	if products == nil {
		products = []Product{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// Refresh drops the cached product list so the next read hits the database.
// Called after back office catalog edits.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog store not configured", nil)
		return
	}
	h.Store.InvalidateProducts(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
