package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aaane/member-portal/backend/internal/models"
)

// IncidentStore exposes the provisioning-incident support queue.
type IncidentStore interface {
	ListOpenIncidents(ctx context.Context, limit int) ([]models.ProvisioningIncident, error)
	AcknowledgeIncident(ctx context.Context, id int64) error
}

// IncidentHandler serves the support queue of partial-provisioning
// incidents.
type IncidentHandler struct {
	Store IncidentStore
}

// NewIncidentHandler creates an IncidentHandler.
func NewIncidentHandler(store IncidentStore) *IncidentHandler {
	return &IncidentHandler{Store: store}
}

// RegisterRoutes registers the incident endpoints.
func (h *IncidentHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/incidents", h.ListOpen())
	router.Post("/api/incidents/{incidentID}/acknowledge", h.Acknowledge())
}

// ListOpen returns open incidents, oldest first.
func (h *IncidentHandler) ListOpen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		incidents, err := h.Store.ListOpenIncidents(r.Context(), limit)
		if err != nil {
			log.Printf("ListOpen: incident query failed: %v", err)
			http.Error(w, "failed to load incidents", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"incidents": incidents})
	}
}

// Acknowledge marks an incident as picked up by support.
func (h *IncidentHandler) Acknowledge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "incidentID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid incident id", http.StatusBadRequest)
			return
		}

		if err := h.Store.AcknowledgeIncident(r.Context(), id); err != nil {
			log.Printf("Acknowledge: incident %d: %v", id, err)
			http.Error(w, "failed to acknowledge incident", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "acknowledged"})
	}
}
