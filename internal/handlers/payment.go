package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/aaane/member-portal/backend/internal/hpp"
	"github.com/aaane/member-portal/backend/internal/models"
	"github.com/aaane/member-portal/backend/internal/wizard"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipPattern   = regexp.MustCompile(`^\d{5}$`)
)

// supportMessage is shown when the charge went through but a follow-up
// provisioning write failed. Nothing is rolled back automatically.
const supportMessage = "Your payment was received but we could not finish setting up your membership. Please contact member support."

// EnterPayment prepares the hosted payment widget for the session: it
// verifies the state is payment-ready, computes the charge, starts a fresh
// bridge (fetching a new security token), and returns the widget render
// configuration.
func (h *WizardHandler) EnterPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}

		if !wizard.ReadyForPayment(session.State, session.Flow) {
			if warning := wizard.PromoWarning(session.State); warning != "" {
				http.Error(w, warning, http.StatusConflict)
				return
			}
			http.Error(w, "wizard state is not ready for payment", http.StatusConflict)
			return
		}

		state := session.State
		amount := wizard.ChargeAmount(state, session.Flow)

		provision := hpp.ProvisionRequest{
			SessionID: session.ID,
			AccountID: state.Account.ID,
			Product:   *state.SelectedProduct,
		}
		if state.Promo != nil {
			provision.PromoCode = state.Promo.Code
		}
		if session.Flow == wizard.FlowUpgrade && state.CurrentProduct != nil {
			provision.PriorProductID = state.CurrentProduct.ID
		}

		bridge, err := h.Bridges.Enter(r.Context(), hpp.BridgeConfig{
			SessionID:                session.ID,
			Amount:                   amount,
			EnvironmentID:            h.HPPEnvironmentID,
			APIURL:                   h.HPPURL,
			BillingProfileExternalID: state.BillingProfile.HostedPaymentPageExternalID,
			Provision:                provision,
		})
		if errors.Is(err, hpp.ErrScriptLoadFailed) {
			log.Printf("EnterPayment: session %s: %v", session.ID, err)
			http.Error(w, "the payment form is unavailable; please try again later", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			log.Printf("EnterPayment: session %s: bridge start failed: %v", session.ID, err)
			http.Error(w, "failed to prepare the payment form", http.StatusBadGateway)
			return
		}

		config, err := bridge.RenderConfig()
		if err != nil {
			log.Printf("EnterPayment: session %s: render config failed: %v", session.ID, err)
			http.Error(w, "failed to prepare the payment form", http.StatusBadGateway)
			return
		}

		session.State = state.AdvanceTo(wizard.StepPay)
		if err := h.Sessions.UpdateSession(r.Context(), *session); err != nil {
			log.Printf("EnterPayment: session %s: persist failed: %v", session.ID, err)
			http.Error(w, "failed to persist wizard session", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"widget_config": config,
			"amount":        amount,
		})
	}
}

type successPayload struct {
	WidgetReference string `json:"widget_reference"`
}

// PaymentSuccess reconciles the widget's success callback. The bridge's
// state machine guarantees at most one provisioning run per rendered form: a
// duplicate callback is acknowledged and discarded. Callbacks for sessions
// that already finished are likewise discarded without touching the backend.
func (h *WizardHandler) PaymentSuccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, false)
		if !ok {
			return
		}
		if !session.Active() {
			// The session was torn down (cancelled, expired) before the
			// callback landed; the result is dropped.
			http.Error(w, "wizard session is no longer active; result discarded", http.StatusGone)
			return
		}

		var payload successPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}

		bridge, found := h.Bridges.Get(session.ID)
		if !found {
			http.Error(w, "no payment form is active for this session", http.StatusConflict)
			return
		}

		result, err := bridge.HandleSuccess(r.Context(), payload.WidgetReference)
		if errors.Is(err, hpp.ErrCallbackNotActionable) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"status": "duplicate_ignored",
			})
			return
		}

		h.recordPayment(r, session, payload.WidgetReference, result)

		if err != nil {
			log.Printf("PaymentSuccess: session %s: %v", session.ID, err)
			if errors.Is(err, hpp.ErrPartialProvisioning) {
				writeJSON(w, http.StatusBadGateway, map[string]any{
					"status":  "partial",
					"message": supportMessage,
				})
				return
			}
			http.Error(w, "failed to finalize the payment", http.StatusBadGateway)
			return
		}

		session.Status = wizard.SessionCompleted
		if err := h.Sessions.UpdateSession(r.Context(), *session); err != nil {
			log.Printf("PaymentSuccess: session %s: persist failed: %v", session.ID, err)
		}
		h.Bridges.Remove(session.ID)

		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "completed",
			"account_product": result.AccountProduct,
			"promo_applied":   result.PromoApplied,
			"prior_ended":     result.PriorEnded,
		})
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

// PaymentError records the widget's error callback and returns the form to a
// renderable state so the member can retry.
func (h *WizardHandler) PaymentError() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.loadSession(w, r, true)
		if !ok {
			return
		}

		var payload errorPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}

		bridge, found := h.Bridges.Get(session.ID)
		if !found {
			http.Error(w, "no payment form is active for this session", http.StatusConflict)
			return
		}

		if err := bridge.HandleError(payload.Message); err != nil {
			log.Printf("PaymentError: session %s: %v", session.ID, err)
			http.Error(w, "error callback not applicable in the current state", http.StatusConflict)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": "retry",
		})
	}
}

// recordPayment writes the local payment record. The charge happened on the
// widget side either way, so the record is written for partial failures too.
func (h *WizardHandler) recordPayment(r *http.Request, session *wizard.Session, widgetReference string, result hpp.ProvisionResult) {
	state := session.State
	if state.Account == nil || state.SelectedProduct == nil {
		return
	}

	record := &models.PaymentRecord{
		SessionID:     session.ID,
		AccountID:     state.Account.ID,
		ProductID:     state.SelectedProduct.ID,
		Amount:        wizard.ChargeAmount(state, session.Flow),
		Currency:      "USD",
		PaymentMethod: string(state.PaymentMethod),
		CreatedAt:     time.Now().UTC(),
	}
	if widgetReference != "" {
		record.WidgetReference = &widgetReference
	}
	if state.Promo != nil {
		code := state.Promo.Code
		record.PromoCode = &code
	}
	if result.AccountProduct.ID != "" {
		apID := result.AccountProduct.ID
		record.AccountProductID = &apID
	}

	if err := h.Payments.RecordPayment(r.Context(), record); err != nil {
		log.Printf("recordPayment: session %s: %v", session.ID, err)
	}
}
