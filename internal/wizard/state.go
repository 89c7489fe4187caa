// Package wizard holds the in-progress sale/upgrade transaction state and
// the step sequencing rules that decide which wizard step is currently
// renderable. State transitions are pure: they take the current state plus a
// payload and return a new state, with no I/O. All navigation policy lives
// in the sequencer, one layer up.
package wizard

import (
	"errors"

	"github.com/aaane/member-portal/backend/internal/models"
)

// Step identifies a wizard stage. Steps advance monotonically under normal
// flow and reset to StepSelectPlan on a full reset.
type Step int

const (
	StepSelectPlan    Step = 1
	StepCreateAccount Step = 2
	StepPay           Step = 3
)

// PaymentMethod selects between a one-time charge and recurring autopay.
type PaymentMethod string

const (
	PayOneTime PaymentMethod = "onetime"
	PayAutopay PaymentMethod = "autopay"
)

// Flow distinguishes a new-member sale from an existing-member tier change.
type Flow string

const (
	FlowSale    Flow = "sale"
	FlowUpgrade Flow = "upgrade"
)

// ErrPartialAccountPair is returned when an account/billing-profile pair is
// recorded with one half missing. The two are provisioned as a unit and the
// state never holds one without the other.
var ErrPartialAccountPair = errors.New("wizard: account and billing profile must be recorded together")

// ErrAccountAlreadyRecorded is returned on an attempt to overwrite a
// provisioned account. Once set, the account is immutable for the rest of
// the wizard run.
var ErrAccountAlreadyRecorded = errors.New("wizard: account already recorded for this session")

// Promo is the discount overlay applied to the displayed and charged amount.
type Promo struct {
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
	RequiresAutopay bool    `json:"requires_autopay"`
}

// State is the single record for one in-progress transaction. One wizard
// session owns exactly one State; it is never shared across sessions.
type State struct {
	Step            Step                   `json:"step"`
	SelectedProduct *models.Product        `json:"selected_product,omitempty"`
	Account         *models.Account        `json:"account,omitempty"`
	BillingProfile  *models.BillingProfile `json:"billing_profile,omitempty"`
	Promo           *Promo                 `json:"promo,omitempty"`
	PaymentMethod   PaymentMethod          `json:"payment_method"`

	// CurrentProduct is a read-only snapshot of the active subscription at
	// wizard start. Only set for upgrade sessions.
	CurrentProduct *models.Product `json:"current_product,omitempty"`
}

// NewState returns the documented initial state: all optional fields nil,
// step 1, one-time payment.
func NewState() State {
	return State{
		Step:          StepSelectPlan,
		PaymentMethod: PayOneTime,
	}
}

// SelectProduct sets the chosen membership tier/cycle pairing. It does not
// change the step; the calling handler advances explicitly.
func (s State) SelectProduct(p models.Product) State {
	s.SelectedProduct = &p
	return s
}

// RecordAccountAndBilling sets the provisioned account and billing profile
// atomically. Both are set together or neither is.
func (s State) RecordAccountAndBilling(a models.Account, bp models.BillingProfile) (State, error) {
	if a.ID == "" || bp.ID == "" {
		return s, ErrPartialAccountPair
	}
	if s.Account != nil {
		return s, ErrAccountAlreadyRecorded
	}
	s.Account = &a
	s.BillingProfile = &bp
	return s, nil
}

// ApplyPromo overlays a promo discount. Whether the promo is compatible with
// the current payment method is the sequencer's call, not the store's.
func (s State) ApplyPromo(p Promo) State {
	s.Promo = &p
	return s
}

// ClearPromo removes the discount overlay.
func (s State) ClearPromo() State {
	s.Promo = nil
	return s
}

// SetPaymentMethod switches between one-time and autopay. The store accepts
// the transition even when it conflicts with an active promo; the sequencer
// surfaces the blocking warning.
func (s State) SetPaymentMethod(m PaymentMethod) State {
	s.PaymentMethod = m
	return s
}

// AdvanceTo moves the step counter. The requested step is recorded as-is;
// the sequencer clamps to the highest legal step at render time.
func (s State) AdvanceTo(step Step) State {
	s.Step = step
	return s
}

// Reset returns the initial state, discarding the whole run.
func (s State) Reset() State {
	return NewState()
}
