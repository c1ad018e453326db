package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// ListProducts handles GET /api/v1/products. Without page or per_page the
// whole catalog is returned as a bare array.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params, paged := pagination.FromRequest(r)

	filter := repository.ProductFilter{}
	if paged {
		filter.Offset = params.Offset()
		filter.Limit = params.PerPage
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if !paged {
		httputil.WriteJSON(w, http.StatusOK, toProductResponses(products))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(toProductResponses(products), total, params))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toProductResponse(product))
}

// SeedProducts handles POST /api/v1/dev/seed-products
func (h *ProductHandler) SeedProducts(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.SeedProducts(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, MessageResponse{Message: "Products seeded"})
}
