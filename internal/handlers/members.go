package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aaane/member-portal/backend/internal/models"
)

// MemberSource reads member accounts and their subscriptions from the
// billing platform.
type MemberSource interface {
	SearchAccountsByName(ctx context.Context, name string) ([]models.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (models.Account, error)
	GetAccountProductsByAccountID(ctx context.Context, accountID string) ([]models.AccountProduct, error)
	GetProductByID(ctx context.Context, productID string) (models.Product, error)
}

// MemberHandler serves the member lookup screens: the search used to start
// an upgrade session and the detail view behind it.
type MemberHandler struct {
	Source MemberSource
}

// NewMemberHandler creates a MemberHandler.
func NewMemberHandler(source MemberSource) *MemberHandler {
	return &MemberHandler{Source: source}
}

// RegisterRoutes registers the member endpoints.
func (h *MemberHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/members", h.Search())
	router.Get("/api/members/{accountID}", h.Get())
}

// Search finds member accounts by partial name match.
func (h *MemberHandler) Search() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			http.Error(w, "name query parameter is required", http.StatusBadRequest)
			return
		}

		accounts, err := h.Source.SearchAccountsByName(r.Context(), name)
		if err != nil {
			log.Printf("Search: account search failed: %v", err)
			http.Error(w, "failed to search member accounts", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	}
}

type memberDetail struct {
	Account       models.Account `json:"account"`
	Subscriptions []subscription `json:"subscriptions"`
}

type subscription struct {
	models.AccountProduct
	Product  *models.Product           `json:"product,omitempty"`
	Benefits *models.MembershipBenefit `json:"benefits,omitempty"`
}

// Get returns one member with their subscription history. Each active
// subscription is joined to its catalog product; retired products fall back
// to the synthetic product derived from the subscription record.
func (h *MemberHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "accountID")

		account, err := h.Source.GetAccountByID(r.Context(), accountID)
		if err != nil {
			log.Printf("Get: account %s lookup failed: %v", accountID, err)
			http.Error(w, "member account not found", http.StatusNotFound)
			return
		}

		aps, err := h.Source.GetAccountProductsByAccountID(r.Context(), accountID)
		if err != nil {
			log.Printf("Get: subscriptions for account %s failed: %v", accountID, err)
			http.Error(w, "failed to load member subscriptions", http.StatusBadGateway)
			return
		}

		detail := memberDetail{Account: account, Subscriptions: make([]subscription, 0, len(aps))}
		for _, ap := range aps {
			sub := subscription{AccountProduct: ap}
			product, err := h.Source.GetProductByID(r.Context(), ap.ProductID)
			if err != nil {
				product = models.SyntheticProduct(ap)
			}
			sub.Product = &product
			if b, ok := models.BenefitsFor(product.Level); ok {
				sub.Benefits = &b
			}
			detail.Subscriptions = append(detail.Subscriptions, sub)
		}

		writeJSON(w, http.StatusOK, detail)
	}
}
