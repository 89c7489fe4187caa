package models

// Account is a member account on the billing platform (ACCOUNT object).
type Account struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	AccountTypeID    string `json:"account_type_id"`
	AccountType      string `json:"account_type,omitempty"`
	MemberID         string `json:"member_id"`
	MemberAcctType   string `json:"member_acct_type"`
	MemberCardNumber string `json:"member_card_number"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	MiddleName       string `json:"middle_name,omitempty"`
	RenewalMethod    string `json:"renewal_method"`
	BillFrequency    string `json:"bill_frequency"`
}

// BillingProfile is the billing/invoicing record attached to an account
// (BILLING_PROFILE object). Created together with the account as a unit;
// the wizard never has one without the other.
type BillingProfile struct {
	ID           string       `json:"id"`
	AccountID    string       `json:"account_id"`
	BillTo       string       `json:"bill_to"`
	Address1     string       `json:"address1"`
	Address2     string       `json:"address2,omitempty"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	Zip          string       `json:"zip"`
	Country      string       `json:"country"`
	Email        string       `json:"email"`
	CurrencyCode string       `json:"currency_code"`
	BillingCycle BillingCycle `json:"billing_cycle"`

	// HostedPaymentPageExternalID is the identifier the hosted payment
	// widget uses to bind a rendered form to this profile.
	HostedPaymentPageExternalID string `json:"hosted_payment_page_external_id"`
}

// NewAccountInput carries the fields collected by the create-account wizard
// step.
type NewAccountInput struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	MiddleName     string `json:"middle_name,omitempty"`
	MemberAcctType string `json:"member_acct_type,omitempty"`
	BillFrequency  string `json:"bill_frequency,omitempty"`

	Address1 string `json:"address1"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country,omitempty"`
	Email    string `json:"email"`
}
