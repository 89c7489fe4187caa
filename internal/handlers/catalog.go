package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aaane/member-portal/backend/internal/models"
)

// CatalogSource lists the sellable products and active promo codes.
type CatalogSource interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetPromoCodes(ctx context.Context) ([]models.PromoCode, error)
}

// CatalogHandler serves the membership catalog the wizard's plan step
// renders.
type CatalogHandler struct {
	Source CatalogSource
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(source CatalogSource) *CatalogHandler {
	return &CatalogHandler{Source: source}
}

// RegisterRoutes registers the catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/products", h.ListProducts())
	router.Get("/api/promos", h.ListPromos())
}

type productView struct {
	models.Product
	Benefits *models.MembershipBenefit `json:"benefits,omitempty"`
}

// ListProducts returns the catalog sorted by tier rank, each product
// annotated with the benefit list its level carries.
func (h *CatalogHandler) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := h.Source.GetProducts(r.Context())
		if err != nil {
			log.Printf("ListProducts: catalog fetch failed: %v", err)
			http.Error(w, "failed to load the membership catalog", http.StatusBadGateway)
			return
		}

		views := make([]productView, 0, len(products))
		for _, p := range products {
			view := productView{Product: p}
			if b, ok := models.BenefitsFor(p.Level); ok {
				view.Benefits = &b
			}
			views = append(views, view)
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": views})
	}
}

// ListPromos returns the promo codes currently in their active window.
func (h *CatalogHandler) ListPromos() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promos, err := h.Source.GetPromoCodes(r.Context())
		if err != nil {
			log.Printf("ListPromos: promo fetch failed: %v", err)
			http.Error(w, "failed to load promo codes", http.StatusBadGateway)
			return
		}

		active := make([]models.PromoCode, 0, len(promos))
		for _, p := range promos {
			if p.Active() {
				active = append(active, p)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"promo_codes": active})
	}
}
