package wizard

import "github.com/aaane/member-portal/backend/internal/models"

// ClampStep computes the step that is actually renderable for the given
// state: the requested step when its preconditions hold, otherwise the
// highest step whose preconditions are met. A stale client that advances the
// counter past what the state supports is clamped down rather than handed a
// step with missing required data.
func ClampStep(s State, flow Flow) Step {
	max := maxLegalStep(s, flow)
	if s.Step > max {
		return max
	}
	if s.Step < StepSelectPlan {
		return StepSelectPlan
	}
	return s.Step
}

func maxLegalStep(s State, flow Flow) Step {
	if s.SelectedProduct == nil {
		return StepSelectPlan
	}
	if flow == FlowUpgrade {
		// The account pre-exists for upgrades; selecting the new product is
		// the only gate before payment.
		return StepPay
	}
	if s.Account == nil || s.BillingProfile == nil {
		return StepCreateAccount
	}
	return StepPay
}

// PromoWarning returns a blocking warning when the active promo requires
// autopay but the payment method is one-time. Switching to autopay clears
// the warning without touching the promo itself.
func PromoWarning(s State) string {
	if s.Promo == nil || !s.Promo.RequiresAutopay {
		return ""
	}
	if s.PaymentMethod == PayAutopay {
		return ""
	}
	return "This promo code requires automatic renewal. Switch to autopay to keep the discount."
}

// ReadyForPayment reports whether payment submission is currently legal:
// the pay step must be reachable and no promo/autopay conflict outstanding.
func ReadyForPayment(s State, flow Flow) bool {
	return maxLegalStep(s, flow) == StepPay && PromoWarning(s) == ""
}

// ChargeAmount computes the amount handed to the payment widget. Sale flows
// charge the selected product's price; upgrade flows charge the prorated
// difference when moving up a tier and the full new price otherwise. An
// active promo discount is applied last.
func ChargeAmount(s State, flow Flow) float64 {
	if s.SelectedProduct == nil {
		return 0
	}
	amount := s.SelectedProduct.Price
	if flow == FlowUpgrade && s.CurrentProduct != nil {
		ctx := UpgradeContext{Current: *s.CurrentProduct, New: *s.SelectedProduct}
		if ctx.Mode() == models.ModeUpgrade {
			amount = ctx.ProratedAmount()
		}
	}
	if s.Promo != nil && s.Promo.DiscountPercent > 0 {
		amount = amount * (1 - s.Promo.DiscountPercent/100)
	}
	if amount < 0 {
		return 0
	}
	return amount
}
