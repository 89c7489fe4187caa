package models

import "time"

// PaymentRecord mirrors a captured hosted-payment charge locally so support
// can reconcile wizard sessions against the billing platform.
type PaymentRecord struct {
	ID               int64      `json:"id"`
	SessionID        string     `json:"session_id"`
	AccountID        string     `json:"account_id"`
	ProductID        string     `json:"product_id"`
	AccountProductID *string    `json:"account_product_id,omitempty"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	PaymentMethod    string     `json:"payment_method"`
	PromoCode        *string    `json:"promo_code,omitempty"`
	WidgetReference  *string    `json:"widget_reference,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	RecordedAt       *time.Time `json:"recorded_at,omitempty"`
}
