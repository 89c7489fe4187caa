package models

// PromoCode is a promotional discount definition (AAANE_PROMO_CODES table).
type PromoCode struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Code            string   `json:"code"`
	Description     string   `json:"description,omitempty"`
	Status          string   `json:"status"`
	RequiresAutopay bool     `json:"requires_autopay"`
	DiscountPercent float64  `json:"discount_percent"`
	ValidProducts   []string `json:"valid_products,omitempty"`
}

// Active reports whether the promo code can currently be applied.
func (p PromoCode) Active() bool {
	return p.Status == "ACTIVE"
}

// AccountPromoCode is a promo attached to an account
// (AAANE_ACCOUNT_PROMO_CODES table).
type AccountPromoCode struct {
	ID        string `json:"id,omitempty"`
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
	StartDate string `json:"start_date"`
	Status    string `json:"status"`
}
