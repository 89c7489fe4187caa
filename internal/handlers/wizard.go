package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aaane/member-portal/backend/internal/hpp"
	"github.com/aaane/member-portal/backend/internal/models"
	"github.com/aaane/member-portal/backend/internal/store"
	"github.com/aaane/member-portal/backend/internal/wizard"
)

// SessionStore defines the behaviour required from the storage client
// backing the wizard handler.
type SessionStore interface {
	CreateSession(ctx context.Context, session wizard.Session) error
	GetSession(ctx context.Context, id string) (*wizard.Session, error)
	UpdateSession(ctx context.Context, session wizard.Session) error
}

// PaymentStore persists captured charges.
type PaymentStore interface {
	RecordPayment(ctx context.Context, payment *models.PaymentRecord) error
}

// BillingClient is the subset of the billing platform client the wizard
// handler drives.
type BillingClient interface {
	GetProductByID(ctx context.Context, productID string) (models.Product, error)
	CreateAccount(ctx context.Context, input models.NewAccountInput) (models.Account, error)
	CreateBillingProfile(ctx context.Context, input models.NewAccountInput, accountID, billTo string, cycle models.BillingCycle) (models.BillingProfile, error)
	GetAccountByID(ctx context.Context, accountID string) (models.Account, error)
	GetBillingProfileByAccountID(ctx context.Context, accountID string) (models.BillingProfile, error)
	GetAccountProductsByAccountID(ctx context.Context, accountID string) ([]models.AccountProduct, error)
	FindPromoCode(ctx context.Context, code string) (models.PromoCode, bool, error)
}

// WizardHandler holds dependencies for the sale/upgrade wizard endpoints.
type WizardHandler struct {
	Sessions SessionStore
	Payments PaymentStore
	Billing  BillingClient
	Bridges  *hpp.Manager

	// HPPEnvironmentID and HPPURL are passed through to the widget config.
	HPPEnvironmentID string
	HPPURL           string
}

// NewWizardHandler creates a WizardHandler.
func NewWizardHandler(sessions SessionStore, payments PaymentStore, billing BillingClient, bridges *hpp.Manager, hppEnvID, hppURL string) *WizardHandler {
	return &WizardHandler{
		Sessions:         sessions,
		Payments:         payments,
		Billing:          billing,
		Bridges:          bridges,
		HPPEnvironmentID: hppEnvID,
		HPPURL:           hppURL,
	}
}

// RegisterRoutes registers the wizard endpoints.
func (h *WizardHandler) RegisterRoutes(router chi.Router) {
	router.Post("/api/wizard", h.StartSession())
	router.Get("/api/wizard/{sessionID}", h.GetSession())
	router.Post("/api/wizard/{sessionID}/product", h.SelectProduct())
	router.Post("/api/wizard/{sessionID}/account", h.CreateAccount())
	router.Post("/api/wizard/{sessionID}/promo", h.ApplyPromo())
	router.Delete("/api/wizard/{sessionID}/promo", h.ClearPromo())
	router.Post("/api/wizard/{sessionID}/payment-method", h.SetPaymentMethod())
	router.Post("/api/wizard/{sessionID}/step", h.SetStep())
	router.Post("/api/wizard/{sessionID}/payment", h.EnterPayment())
	router.Post("/api/wizard/{sessionID}/payment/success", h.PaymentSuccess())
	router.Post("/api/wizard/{sessionID}/payment/error", h.PaymentError())
	router.Post("/api/wizard/{sessionID}/cancel", h.CancelSession())
}

// sessionView is the wizard state as rendered to the client: the raw state
// plus the sequencer's verdicts.
type sessionView struct {
	ID           string               `json:"id"`
	Flow         wizard.Flow          `json:"flow"`
	Status       wizard.SessionStatus `json:"status"`
	State        wizard.State         `json:"state"`
	CurrentStep  wizard.Step          `json:"current_step"`
	PromoWarning string               `json:"promo_warning,omitempty"`
	ChargeAmount float64              `json:"charge_amount"`
	ChangeMode   models.ChangeMode    `json:"change_mode,omitempty"`
}

func viewOf(s *wizard.Session) sessionView {
	view := sessionView{
		ID:           s.ID,
		Flow:         s.Flow,
		Status:       s.Status,
		State:        s.State,
		CurrentStep:  wizard.ClampStep(s.State, s.Flow),
		PromoWarning: wizard.PromoWarning(s.State),
		ChargeAmount: wizard.ChargeAmount(s.State, s.Flow),
	}
	if s.Flow == wizard.FlowUpgrade && s.State.CurrentProduct != nil && s.State.SelectedProduct != nil {
		ctx := wizard.UpgradeContext{Current: *s.State.CurrentProduct, New: *s.State.SelectedProduct}
		view.ChangeMode = ctx.Mode()
	}
	return view
}

type startSessionPayload struct {
	Flow      string `json:"flow"`
	AccountID string `json:"account_id,omitempty"`
}

// StartSession creates a fresh wizard session. Upgrade sessions bind the
// pre-existing account, its billing profile, and a snapshot of the active
// subscription at start.
func (h *WizardHandler) StartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload startSessionPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}

		flow := wizard.Flow(payload.Flow)
		if flow != wizard.FlowSale && flow != wizard.FlowUpgrade {
			http.Error(w, "flow must be \"sale\" or \"upgrade\"", http.StatusBadRequest)
			return
		}

		session := wizard.NewSession(flow)

		if flow == wizard.FlowUpgrade {
			if payload.AccountID == "" {
				http.Error(w, "account_id is required for upgrade sessions", http.StatusBadRequest)
				return
			}
			state, err := h.bindUpgradeAccount(r.Context(), session.State, payload.AccountID)
			if err != nil {
				log.Printf("StartSession: failed to bind upgrade account %s: %v", payload.AccountID, err)
				http.Error(w, "failed to load member account", http.StatusBadGateway)
				return
			}
			session.State = state
		}

		if err := h.Sessions.CreateSession(r.Context(), session); err != nil {
			log.Printf("StartSession: failed to persist session: %v", err)
			http.Error(w, "failed to create wizard session", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, viewOf(&session))
	}
}

// bindUpgradeAccount loads the member's account, billing profile, and active
// subscription snapshot into a fresh upgrade state.
func (h *WizardHandler) bindUpgradeAccount(ctx context.Context, state wizard.State, accountID string) (wizard.State, error) {
	account, err := h.Billing.GetAccountByID(ctx, accountID)
	if err != nil {
		return state, err
	}
	profile, err := h.Billing.GetBillingProfileByAccountID(ctx, accountID)
	if err != nil {
		return state, err
	}
	state, err = state.RecordAccountAndBilling(account, profile)
	if err != nil {
		return state, err
	}

	subscriptions, err := h.Billing.GetAccountProductsByAccountID(ctx, accountID)
	if err != nil {
		return state, err
	}
	for _, ap := range subscriptions {
		if ap.Status != models.AccountProductActive {
			continue
		}
		product, err := h.Billing.GetProductByID(ctx, ap.ProductID)
		if err != nil {
			// The catalog row may have been retired; fall back to what the
			// subscription record itself knows.
			log.Printf("bindUpgradeAccount: product %s lookup failed (%v), using synthetic product", ap.ProductID, err)
			product = models.SyntheticProduct(ap)
		}
		state.CurrentProduct = &product
		break
	}
	return state, nil
}

// GetSession returns the session with the sequencer's clamped step. A stale
// client that advanced past its data renders the clamped step, never a step
// with missing requirements.
func (h *WizardHandler) GetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, false)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, viewOf(session))
	}
}

type selectProductPayload struct {
	ProductID string `json:"product_id"`
	Advance   bool   `json:"advance,omitempty"`
}

// SelectProduct sets the chosen membership product. The product remains
// replaceable until payment begins.
func (h *WizardHandler) SelectProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}

		var payload selectProductPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ProductID == "" {
			http.Error(w, "product_id is required", http.StatusBadRequest)
			return
		}

		product, err := h.Billing.GetProductByID(r.Context(), payload.ProductID)
		if err != nil {
			log.Printf("SelectProduct: product %s lookup failed: %v", payload.ProductID, err)
			http.Error(w, "product not found", http.StatusBadGateway)
			return
		}

		session.State = session.State.SelectProduct(product)
		if payload.Advance {
			next := wizard.StepCreateAccount
			if session.Flow == wizard.FlowUpgrade {
				next = wizard.StepPay
			}
			session.State = session.State.AdvanceTo(next)
		}

		h.saveAndRender(w, r, session)
	}
}

// CreateAccount provisions the member account and billing profile as a unit
// for the sale flow. Account creation must complete and return an id before
// the billing profile is attempted; the profile references the account.
func (h *WizardHandler) CreateAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}
		if session.Flow != wizard.FlowSale {
			http.Error(w, "account creation applies to sale sessions only", http.StatusBadRequest)
			return
		}
		if session.State.SelectedProduct == nil {
			http.Error(w, "select a membership before creating the account", http.StatusConflict)
			return
		}
		if session.State.Account != nil {
			http.Error(w, "account already created for this session", http.StatusConflict)
			return
		}

		var input models.NewAccountInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}
		if msg := validateAccountInput(input); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		account, err := h.Billing.CreateAccount(r.Context(), input)
		if err != nil {
			log.Printf("CreateAccount: account creation failed: %v", err)
			http.Error(w, "failed to create account", http.StatusBadGateway)
			return
		}

		cycle := models.CycleMonthly
		if session.State.SelectedProduct.Cycle == models.CycleYearly {
			cycle = models.CycleYearly
		}
		profile, err := h.Billing.CreateBillingProfile(r.Context(), input, account.ID, account.Name, cycle)
		if err != nil {
			log.Printf("CreateAccount: billing profile creation failed for account %s: %v", account.ID, err)
			http.Error(w, "account created but billing profile failed; re-submit the step", http.StatusBadGateway)
			return
		}

		state, err := session.State.RecordAccountAndBilling(account, profile)
		if err != nil {
			log.Printf("CreateAccount: record pair failed: %v", err)
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		session.State = state.AdvanceTo(wizard.StepPay)

		h.saveAndRender(w, r, session)
	}
}

type promoPayload struct {
	Code string `json:"code"`
}

// ApplyPromo validates and overlays a promo code. Promos requiring autopay
// are accepted here; the conflict with a one-time payment method surfaces as
// a blocking warning, not a rejection.
func (h *WizardHandler) ApplyPromo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}

		var payload promoPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Code) == "" {
			http.Error(w, "code is required", http.StatusBadRequest)
			return
		}

		promo, found, err := h.Billing.FindPromoCode(r.Context(), strings.TrimSpace(payload.Code))
		if err != nil {
			log.Printf("ApplyPromo: promo lookup failed: %v", err)
			http.Error(w, "failed to look up promo code", http.StatusBadGateway)
			return
		}
		if !found {
			http.Error(w, "promo code not found or inactive", http.StatusNotFound)
			return
		}

		session.State = session.State.ApplyPromo(wizard.Promo{
			Code:            promo.Code,
			DiscountPercent: promo.DiscountPercent,
			RequiresAutopay: promo.RequiresAutopay,
		})

		h.saveAndRender(w, r, session)
	}
}

// ClearPromo removes the promo overlay.
func (h *WizardHandler) ClearPromo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}
		session.State = session.State.ClearPromo()
		h.saveAndRender(w, r, session)
	}
}

type paymentMethodPayload struct {
	Method string `json:"method"`
}

// SetPaymentMethod switches between one-time and autopay.
func (h *WizardHandler) SetPaymentMethod() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}

		var payload paymentMethodPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}
		method := wizard.PaymentMethod(payload.Method)
		if method != wizard.PayOneTime && method != wizard.PayAutopay {
			http.Error(w, "method must be \"onetime\" or \"autopay\"", http.StatusBadRequest)
			return
		}

		session.State = session.State.SetPaymentMethod(method)
		h.saveAndRender(w, r, session)
	}
}

type stepPayload struct {
	Step int `json:"step"`
}

// SetStep records a navigation request. The step is stored as requested and
// clamped at render time.
func (h *WizardHandler) SetStep() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}

		var payload stepPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}

		session.State = session.State.AdvanceTo(wizard.Step(payload.Step))
		h.saveAndRender(w, r, session)
	}
}

// CancelSession resets the wizard and marks the session cancelled.
func (h *WizardHandler) CancelSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}

		session.State = session.State.Reset()
		session.Status = wizard.SessionCancelled
		h.Bridges.Remove(session.ID)

		h.saveAndRender(w, r, session)
	}
}

// loadSession fetches the session from the path parameter. When
// requireActive is set, sessions that already finished are rejected so
// late completions cannot mutate a torn-down transaction.
func (h *WizardHandler) loadSession(w http.ResponseWriter, r *http.Request, requireActive bool) (*wizard.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.Sessions.GetSession(r.Context(), sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		http.Error(w, "wizard session not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Printf("wizard: failed to load session %s: %v", sessionID, err)
		http.Error(w, "failed to load wizard session", http.StatusInternalServerError)
		return nil, false
	}
	if requireActive && !session.Active() {
		http.Error(w, "wizard session is no longer active", http.StatusGone)
		return nil, false
	}
	return session, true
}

func (h *WizardHandler) saveAndRender(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	if err := h.Sessions.UpdateSession(r.Context(), *session); err != nil {
		log.Printf("wizard: failed to persist session %s: %v", session.ID, err)
		http.Error(w, "failed to persist wizard session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

// validateAccountInput mirrors the portal's inline form validation; nothing
// reaches the network until these pass.
func validateAccountInput(input models.NewAccountInput) string {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return "both first name and last name are required"
	}
	if strings.TrimSpace(input.Email) == "" {
		return "email is required"
	}
	if !emailPattern.MatchString(input.Email) {
		return "please enter a valid email address"
	}
	if strings.TrimSpace(input.Address1) == "" {
		return "address is required"
	}
	if strings.TrimSpace(input.City) == "" {
		return "city is required"
	}
	if strings.TrimSpace(input.State) == "" {
		return "state is required"
	}
	if !zipPattern.MatchString(strings.TrimSpace(input.Zip)) {
		return "please enter a valid 5-digit ZIP code"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
