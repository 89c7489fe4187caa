// Package hpp bridges wizard sessions to the externally hosted payment
// widget: it performs the process-wide script bootstrap, issues render
// configuration bound to a computed charge amount, and reconciles the
// widget's asynchronous success/error callbacks into backend provisioning.
package hpp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sync"
)

// ErrScriptLoadFailed is returned when the widget bootstrap fails. The
// failure is terminal for this process; no reload is attempted.
var ErrScriptLoadFailed = errors.New("hpp: widget script failed to load")

// ErrCallbackNotActionable is returned when a success callback arrives while
// the bridge is not awaiting one, typically when a duplicate callback
// races a provisioning run already in flight. The duplicate performs no
// writes.
var ErrCallbackNotActionable = errors.New("hpp: success callback not actionable in current state")

// ErrNotReady is returned when render configuration is requested before the
// bridge reached the ready state.
var ErrNotReady = errors.New("hpp: widget not ready to render")

// PaymentGateways mirrors the gateway routing block in the widget config.
type PaymentGateways struct {
	CreditCard  Gateway `json:"creditCard"`
	DirectDebit Gateway `json:"directDebit"`
}

// Gateway names a processor route.
type Gateway struct {
	Gateway string `json:"gateway"`
}

// RenderConfig is handed to the portal client, which passes it verbatim to
// the widget's renderPaymentForm entry point.
type RenderConfig struct {
	SecurityToken    string          `json:"securityToken"`
	EnvironmentID    string          `json:"environmentId"`
	APIURL           string          `json:"apiUrl"`
	Amount           float64         `json:"amount"`
	CurrencyCode     string          `json:"currencyCode"`
	CountryCode      string          `json:"countryCode"`
	TargetSelector   string          `json:"targetSelector"`
	BillingProfileID string          `json:"billingProfileId"`
	PaymentGateways  PaymentGateways `json:"paymentGateways"`
	WalletMode       bool            `json:"walletMode"`
	AllowEditPrice   bool            `json:"allowEditPrice"`
	ContainerWidth   string          `json:"containerWidth"`
}

// BridgeConfig carries the per-session inputs for one payment form.
type BridgeConfig struct {
	SessionID string

	// Amount is the computed charge: full product price for sales, the
	// prorated difference for tier upgrades.
	Amount float64

	EnvironmentID string
	APIURL        string

	// BillingProfileExternalID is the hosted-payment-page external id from
	// the session's billing profile.
	BillingProfileExternalID string

	// Provision is the request template executed when the success callback
	// fires.
	Provision ProvisionRequest
}

// Bridge owns one widget session: one mounted payment form for one wizard
// session. Separate sessions get separate bridges and separate forms; only
// the script bootstrap is shared process-wide.
type Bridge struct {
	cfg     BridgeConfig
	machine Machine
	loader  *ScriptLoader
	tokens  *TokenCache
	prov    SubscriptionProvisioner

	mu        sync.Mutex
	token     string
	lastError string
}

// NewBridge creates a bridge in the unloaded state.
func NewBridge(cfg BridgeConfig, loader *ScriptLoader, tokens *TokenCache, prov SubscriptionProvisioner, handler slog.Handler) (*Bridge, error) {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	machine, err := NewMachine(handler)
	if err != nil {
		return nil, fmt.Errorf("hpp: create widget machine: %w", err)
	}
	return &Bridge{
		cfg:     cfg,
		machine: machine,
		loader:  loader,
		tokens:  tokens,
		prov:    prov,
	}, nil
}

// Start performs the bootstrap and token fetch for the payment step. A prior
// session's completed bootstrap is reused (unloaded goes straight to ready);
// the security token is always invalidated and re-fetched on step entry.
func (b *Bridge) Start(ctx context.Context) error {
	if b.loader.Loaded() {
		if err := b.machine.Transition(StateReady); err != nil {
			return fmt.Errorf("hpp: %w", err)
		}
	} else {
		if err := b.machine.Transition(StateScriptLoading); err != nil {
			return fmt.Errorf("hpp: %w", err)
		}
		if _, err := b.loader.Load(ctx); err != nil {
			if terr := b.machine.Transition(StateFailed); terr != nil {
				log.Printf("[hpp] session %s: failed-state transition error: %v", b.cfg.SessionID, terr)
			}
			b.setLastError(err.Error())
			return fmt.Errorf("%w: %v", ErrScriptLoadFailed, err)
		}
		if err := b.machine.Transition(StateReady); err != nil {
			return fmt.Errorf("hpp: %w", err)
		}
	}

	b.tokens.Invalidate()
	token, err := b.tokens.Get(ctx)
	if err != nil {
		b.setLastError(err.Error())
		return err
	}

	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
	return nil
}

// RenderConfig transitions the widget to awaiting-callback and returns the
// configuration the client renders the form with. The widget owns its UI
// from here until a callback fires.
func (b *Bridge) RenderConfig() (RenderConfig, error) {
	if err := b.machine.TransitionIfCurrentState(StateReady, StateAwaitingCallback); err != nil {
		return RenderConfig{}, fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	b.mu.Lock()
	token := b.token
	b.mu.Unlock()

	return RenderConfig{
		SecurityToken:    token,
		EnvironmentID:    b.cfg.EnvironmentID,
		APIURL:           b.cfg.APIURL,
		Amount:           b.cfg.Amount,
		CurrencyCode:     "USD",
		CountryCode:      "US",
		TargetSelector:   "#payment-form",
		BillingProfileID: b.cfg.BillingProfileExternalID,
		PaymentGateways: PaymentGateways{
			CreditCard:  Gateway{Gateway: "Adyen_CC"},
			DirectDebit: Gateway{Gateway: "Adyen_DD"},
		},
		WalletMode:     false,
		AllowEditPrice: false,
		ContainerWidth: "100%",
	}, nil
}

// HandleSuccess processes the widget's success callback. The transition into
// post_processing is the at-most-once guard: it succeeds for exactly one
// caller, so a duplicate callback firing before provisioning completes is
// rejected without performing any writes. The guard is not released until
// provisioning finishes or fails.
func (b *Bridge) HandleSuccess(ctx context.Context, widgetReference string) (ProvisionResult, error) {
	if err := b.machine.TransitionIfCurrentState(StateAwaitingCallback, StatePostProcessing); err != nil {
		return ProvisionResult{}, fmt.Errorf("%w (state=%s)", ErrCallbackNotActionable, b.machine.GetState())
	}

	log.Printf("[hpp] session %s: payment captured (ref=%s), provisioning", b.cfg.SessionID, widgetReference)

	result, err := b.prov.Provision(ctx, b.cfg.Provision)
	if err != nil {
		b.setLastError(err.Error())
		if terr := b.machine.Transition(StateFailed); terr != nil {
			log.Printf("[hpp] session %s: failed-state transition error: %v", b.cfg.SessionID, terr)
		}
		return result, err
	}

	if err := b.machine.Transition(StateCompleted); err != nil {
		return result, fmt.Errorf("hpp: %w", err)
	}
	return result, nil
}

// HandleError processes the widget's error callback: the widget session
// returns to ready so the form can be rendered again.
func (b *Bridge) HandleError(message string) error {
	if err := b.machine.TransitionIfCurrentState(StateAwaitingCallback, StateReady); err != nil {
		return fmt.Errorf("hpp: error callback in state %s: %w", b.machine.GetState(), err)
	}
	b.setLastError(message)
	log.Printf("[hpp] session %s: widget error: %s", b.cfg.SessionID, message)
	return nil
}

// State returns the widget session state.
func (b *Bridge) State() string {
	return b.machine.GetState()
}

// LastError returns the most recent surfaced error message, if any.
func (b *Bridge) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}

func (b *Bridge) setLastError(msg string) {
	b.mu.Lock()
	b.lastError = msg
	b.mu.Unlock()
}
