package models

// Product is a membership tier/billing-cycle pairing from the platform
// catalog (PRODUCT object).
type Product struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	DisplayName  string       `json:"display_name"`
	Rate         string       `json:"rate"`
	Price        float64      `json:"price"`
	Cycle        BillingCycle `json:"cycle"`
	Level        Level        `json:"level"`
	RatingMethod string       `json:"rating_method_id,omitempty"`
	ProductType  string       `json:"product_type,omitempty"`
}

// AccountProductStatus is the lifecycle state of a subscription record.
type AccountProductStatus string

const (
	AccountProductActive      AccountProductStatus = "ACTIVE"
	AccountProductDeactivated AccountProductStatus = "DEACTIVATED"
)

// AccountProduct is a subscription record linking an account to a product
// (ACCOUNT_PRODUCT object).
type AccountProduct struct {
	ID           string               `json:"id"`
	Name         string               `json:"name,omitempty"`
	AccountID    string               `json:"account_id"`
	ProductID    string               `json:"product_id"`
	Quantity     int                  `json:"quantity"`
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date,omitempty"`
	Status       AccountProductStatus `json:"status"`
	BenefitSet   int                  `json:"benefit_set"`
	Rate         string               `json:"rate,omitempty"`
	RenewalDate  string               `json:"renewal_date,omitempty"`
	RatingMethod string               `json:"rating_method_id,omitempty"`
}

// SyntheticProduct builds a display product from an AccountProduct when the
// catalog lookup for its ProductId fails. The platform sometimes returns
// subscription rows whose product has been retired from the catalog; this
// fallback mirrors what the row itself knows.
func SyntheticProduct(ap AccountProduct) Product {
	price, _ := ParsePrice(ap.Rate)
	return Product{
		ID:          ap.ProductID,
		Name:        ap.Name,
		DisplayName: ap.Name,
		Rate:        ap.Rate,
		Price:       price,
		Cycle:       ParseCycle(ap.Name),
		Level:       ParseLevel(ap.Name),
	}
}
