package wizard

import "github.com/aaane/member-portal/backend/internal/models"

// UpgradeContext compares the member's active subscription against the
// candidate product for a tier change. Current is a read-only snapshot taken
// at wizard start.
type UpgradeContext struct {
	Current models.Product `json:"current"`
	New     models.Product `json:"new"`
}

// Mode classifies the change by comparing ordinal tier ranks: a higher rank
// is an upgrade, a lower rank a downgrade, and equal ranks a lateral change
// (e.g. monthly to annual on the same tier).
func (u UpgradeContext) Mode() models.ChangeMode {
	switch {
	case u.New.Level.Rank() > u.Current.Level.Rank():
		return models.ModeUpgrade
	case u.New.Level.Rank() < u.Current.Level.Rank():
		return models.ModeDowngrade
	default:
		return models.ModeChange
	}
}

// ProratedAmount is the simple linear proration used when moving up a tier:
// the price difference, clamped at zero so a downgrade never produces a
// negative charge. No day-of-cycle weighting is applied; the amount is
// derived for display and charging, not authoritative billing.
func (u UpgradeContext) ProratedAmount() float64 {
	diff := u.New.Price - u.Current.Price
	if diff < 0 {
		return 0
	}
	return diff
}
