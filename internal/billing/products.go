package billing

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/aaane/member-portal/backend/internal/models"
)

// catalogNames is the fixed set of sellable membership products.
var catalogNames = []string{
	"Classic Basic Monthly", "Classic Basic Annual",
	"Plus Monthly", "Plus Annual",
	"Premier Monthly", "Premier Annual",
}

// GetProducts returns the sellable membership catalog, sorted by tier rank
// and monthly-before-annual within a tier.
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	query := url.Values{}
	query.Set("queryAnsiSql", fmt.Sprintf(
		"Name IN ('%s', '%s', '%s', '%s', '%s', '%s')",
		catalogNames[0], catalogNames[1], catalogNames[2],
		catalogNames[3], catalogNames[4], catalogNames[5],
	))

	resp, err := c.get(ctx, "/PRODUCT", query)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	var products []models.Product
	for _, obj := range objectList(resp, "retrieveResponse") {
		products = append(products, productFromObject(obj))
	}

	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Level.Rank() != products[j].Level.Rank() {
			return products[i].Level.Rank() < products[j].Level.Rank()
		}
		return products[i].Cycle == models.CycleMonthly && products[j].Cycle != models.CycleMonthly
	})

	return products, nil
}

// GetProductByID fetches one catalog product.
func (c *Client) GetProductByID(ctx context.Context, productID string) (models.Product, error) {
	resp, err := c.get(ctx, "/PRODUCT/"+productID, nil)
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}

	obj := firstObject(resp, "retrieveResponse", "brmObjects")
	if obj == nil || str(obj, "Id") == "" {
		return models.Product{}, fmt.Errorf("get product %s: not found", productID)
	}
	return productFromObject(obj), nil
}

// CreateAccountProduct activates a subscription record for the account,
// starting today, with the benefit set derived from the product's tier.
func (c *Client) CreateAccountProduct(ctx context.Context, accountID string, product models.Product) (models.AccountProduct, error) {
	resp, err := c.post(ctx, "/ACCOUNT_PRODUCT", map[string]any{
		"brmObjects": []map[string]any{{
			"AccountId":  accountID,
			"Quantity":   "1",
			"StartDate":  models.FormatDate(time.Now()),
			"EndDate":    "",
			"ProductId":  product.ID,
			"Status":     string(models.AccountProductActive),
			"BenefitSet": strconv.Itoa(product.Level.BenefitSet()),
		}},
	})
	if err != nil {
		return models.AccountProduct{}, fmt.Errorf("create account product: %w", err)
	}

	created := firstObject(resp, "createResponse")
	if created == nil || str(created, "Id") == "" {
		return models.AccountProduct{}, fmt.Errorf("create account product: invalid response")
	}

	// The create response often carries only the Id; fetch the full record.
	if str(created, "AccountId") == "" {
		return c.GetAccountProductByID(ctx, str(created, "Id"))
	}
	return accountProductFromObject(created), nil
}

// UpdateAccountProduct applies a field patch to a subscription record via
// PUT, the method the platform documents for updates.
func (c *Client) UpdateAccountProduct(ctx context.Context, accountProductID string, patch map[string]any) (models.AccountProduct, error) {
	resp, err := c.put(ctx, "/ACCOUNT_PRODUCT/"+accountProductID, map[string]any{
		"brmObjects": patch,
	})
	if err != nil {
		return models.AccountProduct{}, fmt.Errorf("update account product %s: %w", accountProductID, err)
	}

	result := firstObject(resp, "upsertResponse", "updateResponse", "brmObjects")
	if result == nil {
		result = resp
	}
	if code := str(result, "ErrorCode"); code != "" && code != "0" {
		return models.AccountProduct{}, fmt.Errorf("update account product %s: %s (field: %s)",
			accountProductID, str(result, "ErrorText"), str(result, "ErrorElementField"))
	}
	if created, ok := result["created"]; ok && (created == "true" || created == true) {
		log.Printf("[billing] update of account product %s created new record %s instead", accountProductID, str(result, "Id"))
	}

	if str(result, "Id") != "" && str(result, "AccountId") == "" {
		return c.GetAccountProductByID(ctx, str(result, "Id"))
	}
	return accountProductFromObject(result), nil
}

// DeactivateAccountProduct ends a subscription record today. The platform
// requires the full key fields on update, not just the changed ones.
func (c *Client) DeactivateAccountProduct(ctx context.Context, ap models.AccountProduct) (models.AccountProduct, error) {
	return c.UpdateAccountProduct(ctx, ap.ID, map[string]any{
		"AccountId": ap.AccountID,
		"Id":        ap.ID,
		"Quantity":  strconv.Itoa(ap.Quantity),
		"ProductId": ap.ProductID,
		"StartDate": ap.StartDate,
		"Status":    string(models.AccountProductDeactivated),
		"EndDate":   models.FormatDate(time.Now()),
	})
}

// GetAccountProductByID fetches one subscription record.
func (c *Client) GetAccountProductByID(ctx context.Context, accountProductID string) (models.AccountProduct, error) {
	resp, err := c.get(ctx, "/ACCOUNT_PRODUCT/"+accountProductID, nil)
	if err != nil {
		return models.AccountProduct{}, fmt.Errorf("get account product %s: %w", accountProductID, err)
	}

	obj := firstObject(resp, "retrieveResponse", "brmObjects")
	if obj == nil || str(obj, "Id") == "" {
		return models.AccountProduct{}, fmt.Errorf("get account product %s: not found", accountProductID)
	}
	return accountProductFromObject(obj), nil
}

// GetAccountProductsByAccountID lists the subscription records for an
// account, active and deactivated.
func (c *Client) GetAccountProductsByAccountID(ctx context.Context, accountID string) ([]models.AccountProduct, error) {
	query := url.Values{}
	query.Set("queryAnsiSql", fmt.Sprintf("AccountId = '%s'", accountID))
	resp, err := c.get(ctx, "/ACCOUNT_PRODUCT", query)
	if err != nil {
		return nil, fmt.Errorf("get account products for %s: %w", accountID, err)
	}

	var out []models.AccountProduct
	for _, obj := range objectList(resp, "retrieveResponse") {
		out = append(out, accountProductFromObject(obj))
	}
	return out, nil
}

func productFromObject(obj map[string]interface{}) models.Product {
	name := str(obj, "Name")
	rate := str(obj, "Rate")
	price, err := models.ParsePrice(rate)
	if err != nil {
		log.Printf("[billing] product %s has unparseable rate %q: %v", str(obj, "Id"), rate, err)
	}

	// Prefer the first-class tier/cycle columns; fall back to classifying
	// the display name for rows that predate them.
	level := models.Level(str(obj, "aaa_Level"))
	if !level.Valid() {
		level = models.ParseLevel(name)
	}

	displayName := str(obj, "aaa_DisplayName")
	if displayName == "" {
		displayName = name
	}

	return models.Product{
		ID:           str(obj, "Id"),
		Name:         name,
		DisplayName:  displayName,
		Rate:         rate,
		Price:        price,
		Cycle:        models.ParseCycle(name),
		Level:        level,
		RatingMethod: str(obj, "RatingMethodId"),
		ProductType:  str(obj, "aaa_ProductType"),
	}
}

func accountProductFromObject(obj map[string]interface{}) models.AccountProduct {
	quantity, err := strconv.Atoi(str(obj, "Quantity"))
	if err != nil || quantity < 1 {
		quantity = 1
	}
	benefitSet, _ := strconv.Atoi(str(obj, "BenefitSet"))

	return models.AccountProduct{
		ID:           str(obj, "Id"),
		Name:         str(obj, "Name"),
		AccountID:    str(obj, "AccountId"),
		ProductID:    str(obj, "ProductId"),
		Quantity:     quantity,
		StartDate:    str(obj, "StartDate"),
		EndDate:      str(obj, "EndDate"),
		Status:       models.AccountProductStatus(str(obj, "Status")),
		BenefitSet:   benefitSet,
		Rate:         str(obj, "Rate"),
		RenewalDate:  str(obj, "RenewalDate"),
		RatingMethod: str(obj, "RatingMethodId"),
	}
}
