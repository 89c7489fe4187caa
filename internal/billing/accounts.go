package billing

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"

	"github.com/aaane/member-portal/backend/internal/models"
)

// defaultAccountTypeID is the platform ACCOUNT_TYPE row for membership
// accounts created through the portal.
const defaultAccountTypeID = "681"

// CreateAccount provisions a member account. The platform's create response
// carries only the new Id, so the full record is fetched back before
// returning.
func (c *Client) CreateAccount(ctx context.Context, input models.NewAccountInput) (models.Account, error) {
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return models.Account{}, fmt.Errorf("create account: name is required")
	}

	acctType := input.MemberAcctType
	if acctType == "" {
		acctType = "Primary"
	}
	billFrequency := input.BillFrequency
	if billFrequency == "" {
		billFrequency = "Monthly"
	}
	middle := input.MiddleName
	if middle == "" {
		middle = "0"
	}

	resp, err := c.post(ctx, "/ACCOUNT", map[string]any{
		"brmObjects": []map[string]any{{
			"Name":                        name,
			"Status":                      "ACTIVE",
			"AccountTypeId":               defaultAccountTypeID,
			"aaa_MemberID":                GenerateMemberID(),
			"aaa_MemberAcctType":          acctType,
			"aaa_MemberCardNumber":        GenerateCardNumber(),
			"aaa_MemberFirstName":         first,
			"aaa_MemberLastName":          last,
			"aaa_MemberMiddleName":        middle,
			"aaa_MemberRenewalMethod":     "Autorenew",
			"aaa_MembershipBillFrequency": billFrequency,
		}},
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("create account: %w", err)
	}

	created := firstObject(resp, "createResponse")
	if created == nil || str(created, "Id") == "" {
		return models.Account{}, fmt.Errorf("create account: invalid response")
	}

	return c.GetAccountByID(ctx, str(created, "Id"))
}

// GetAccountByID fetches a full account record.
func (c *Client) GetAccountByID(ctx context.Context, accountID string) (models.Account, error) {
	resp, err := c.get(ctx, "/ACCOUNT/"+accountID, nil)
	if err != nil {
		return models.Account{}, fmt.Errorf("get account %s: %w", accountID, err)
	}

	obj := firstObject(resp, "retrieveResponse", "brmObjects")
	if obj == nil || str(obj, "Id") == "" {
		return models.Account{}, fmt.Errorf("get account %s: not found", accountID)
	}
	return accountFromObject(obj), nil
}

// SearchAccountsByName finds accounts whose name contains the given text,
// case-insensitively. Used by the member search page.
func (c *Client) SearchAccountsByName(ctx context.Context, name string) ([]models.Account, error) {
	sanitized := strings.ReplaceAll(name, "'", "''")
	resp, err := c.post(ctx, "/query", map[string]any{
		"sql": fmt.Sprintf(`SELECT Id, Name, Status, AccountTypeId, AccountTypeIdObj.AccountType,
  aaa_MemberID, aaa_MemberAcctType, aaa_MemberCardNumber, aaa_MemberFirstName,
  aaa_MemberLastName, aaa_MemberMiddleName, aaa_MemberRenewalMethod,
  aaa_MembershipBillFrequency
FROM ACCOUNT WHERE UPPER(Name) LIKE UPPER('%%%s%%')`, sanitized),
	})
	if err != nil {
		return nil, fmt.Errorf("search accounts: %w", err)
	}

	var accounts []models.Account
	for _, obj := range objectList(resp, "queryResponse") {
		accounts = append(accounts, accountFromObject(obj))
	}
	return accounts, nil
}

// CreateBillingProfile provisions the billing profile for an account. Like
// account creation, the platform returns only the Id; the full profile is
// fetched back so callers get the hosted-payment-page external id.
func (c *Client) CreateBillingProfile(ctx context.Context, input models.NewAccountInput, accountID, billTo string, cycle models.BillingCycle) (models.BillingProfile, error) {
	country := input.Country
	if country == "" {
		country = "USA"
	}

	resp, err := c.post(ctx, "/BILLING_PROFILE", map[string]any{
		"brmObjects": []map[string]any{{
			"AccountId":             accountID,
			"BillTo":                billTo,
			"Address1":              input.Address1,
			"City":                  input.City,
			"State":                 input.State,
			"Zip":                   input.Zip,
			"Country":               country,
			"aaa_Email":             input.Email,
			"Email":                 input.Email,
			"BillingCycle":          string(cycle),
			"BillingCloseDate":      "31",
			"PaymentTermDays":       "30",
			"MonthlyBillingDate":    "31",
			"ManualCloseFlag":       "1",
			"InvoiceTemplateId":     "122",
			"InvoiceDeliveryMethod": "EMAIL",
			"InvoiceApprovalFlag":   "1",
			"BillingMethod":         "MAIL",
			"TimeZoneId":            "351",
			"CurrencyCode":          "USD",
			"ActivityTimeZone":      "US/Pacific",
		}},
	})
	if err != nil {
		return models.BillingProfile{}, fmt.Errorf("create billing profile: %w", err)
	}

	created := firstObject(resp, "createResponse")
	if created == nil || str(created, "Id") == "" {
		return models.BillingProfile{}, fmt.Errorf("create billing profile: invalid response")
	}

	return c.GetBillingProfileByID(ctx, str(created, "Id"))
}

// GetBillingProfileByID fetches a full billing profile record.
func (c *Client) GetBillingProfileByID(ctx context.Context, profileID string) (models.BillingProfile, error) {
	resp, err := c.get(ctx, "/BILLING_PROFILE/"+profileID, nil)
	if err != nil {
		return models.BillingProfile{}, fmt.Errorf("get billing profile %s: %w", profileID, err)
	}

	obj := firstObject(resp, "retrieveResponse", "brmObjects")
	if obj == nil || str(obj, "Id") == "" {
		return models.BillingProfile{}, fmt.Errorf("get billing profile %s: not found", profileID)
	}
	return billingProfileFromObject(obj), nil
}

// GetBillingProfileByAccountID finds the billing profile attached to an
// account. Upgrade sessions use this; the profile was created during the
// original sale.
func (c *Client) GetBillingProfileByAccountID(ctx context.Context, accountID string) (models.BillingProfile, error) {
	query := url.Values{}
	query.Set("queryAnsiSql", fmt.Sprintf("AccountId = '%s'", accountID))
	resp, err := c.get(ctx, "/BILLING_PROFILE", query)
	if err != nil {
		return models.BillingProfile{}, fmt.Errorf("get billing profile for account %s: %w", accountID, err)
	}

	obj := firstObject(resp, "retrieveResponse", "brmObjects")
	if obj == nil || str(obj, "Id") == "" {
		return models.BillingProfile{}, fmt.Errorf("get billing profile for account %s: not found", accountID)
	}
	return billingProfileFromObject(obj), nil
}

func accountFromObject(obj map[string]interface{}) models.Account {
	accountType := str(obj, "AccountTypeIdObj.AccountType")
	if accountType == "" {
		accountType = str(obj, "AccountType")
	}
	return models.Account{
		ID:               str(obj, "Id"),
		Name:             str(obj, "Name"),
		Status:           str(obj, "Status"),
		AccountTypeID:    str(obj, "AccountTypeId"),
		AccountType:      accountType,
		MemberID:         str(obj, "aaa_MemberID"),
		MemberAcctType:   str(obj, "aaa_MemberAcctType"),
		MemberCardNumber: str(obj, "aaa_MemberCardNumber"),
		FirstName:        str(obj, "aaa_MemberFirstName"),
		LastName:         str(obj, "aaa_MemberLastName"),
		MiddleName:       str(obj, "aaa_MemberMiddleName"),
		RenewalMethod:    str(obj, "aaa_MemberRenewalMethod"),
		BillFrequency:    str(obj, "aaa_MembershipBillFrequency"),
	}
}

func billingProfileFromObject(obj map[string]interface{}) models.BillingProfile {
	zip := str(obj, "ZIP")
	if zip == "" {
		zip = str(obj, "Zip")
	}
	return models.BillingProfile{
		ID:                          str(obj, "Id"),
		AccountID:                   str(obj, "AccountId"),
		BillTo:                      str(obj, "BillTo"),
		Address1:                    str(obj, "Address1"),
		Address2:                    str(obj, "Address2"),
		City:                        str(obj, "City"),
		State:                       str(obj, "State"),
		Zip:                         zip,
		Country:                     str(obj, "Country"),
		Email:                       str(obj, "Email"),
		CurrencyCode:                str(obj, "CurrencyCode"),
		BillingCycle:                models.BillingCycle(str(obj, "BillingCycle")),
		HostedPaymentPageExternalID: str(obj, "HostedPaymentPageExternalId"),
	}
}

// GenerateMemberID produces a new AAA member number.
func GenerateMemberID() string {
	digits := make([]byte, 5)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return "AAA-" + string(digits)
}

// GenerateCardNumber produces a random nine-digit member card number.
func GenerateCardNumber() string {
	return fmt.Sprintf("%d", 100000000+rand.Intn(900000000))
}
