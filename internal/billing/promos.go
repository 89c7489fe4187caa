package billing

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/aaane/member-portal/backend/internal/models"
)

// GetPromoCodes lists the promo-code table.
func (c *Client) GetPromoCodes(ctx context.Context) ([]models.PromoCode, error) {
	query := url.Values{}
	query.Set("sql", `SELECT Id, aaa_Promo_Code_Name, aaa_Promo_Code,
  aaa_Promo_Code_Description, aaa_Promo_Code_Status,
  aaa_Requires_Autopay, aaa_Discount_Percent
FROM AAANE_PROMO_CODES`)

	resp, err := c.get(ctx, "/query", query)
	if err != nil {
		return nil, fmt.Errorf("get promo codes: %w", err)
	}

	var promos []models.PromoCode
	for _, obj := range objectList(resp, "queryResponse", "data") {
		promos = append(promos, promoFromObject(obj))
	}
	return promos, nil
}

// FindPromoCode looks up one active promo by its user-facing code. Returns
// false when no active promo matches.
func (c *Client) FindPromoCode(ctx context.Context, code string) (models.PromoCode, bool, error) {
	promos, err := c.GetPromoCodes(ctx)
	if err != nil {
		return models.PromoCode{}, false, err
	}
	for _, p := range promos {
		if p.Code == code && p.Active() {
			return p, true, nil
		}
	}
	return models.PromoCode{}, false, nil
}

// AddAccountPromoCode attaches an applied promo to an account.
func (c *Client) AddAccountPromoCode(ctx context.Context, accountID, promoCodeID string) error {
	_, err := c.post(ctx, "/AAANE_ACCOUNT_PROMO_CODES", map[string]any{
		"AccountId":   accountID,
		"PromoCodeId": promoCodeID,
		"AppliedDate": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("add promo code to account %s: %w", accountID, err)
	}
	return nil
}

func promoFromObject(obj map[string]interface{}) models.PromoCode {
	requiresAutopay := false
	switch v := obj["aaa_Requires_Autopay"].(type) {
	case bool:
		requiresAutopay = v
	case string:
		requiresAutopay = v == "1" || v == "true"
	}

	discount := 0.0
	switch v := obj["aaa_Discount_Percent"].(type) {
	case float64:
		discount = v
	case string:
		discount, _ = strconv.ParseFloat(v, 64)
	}

	return models.PromoCode{
		ID:              str(obj, "Id"),
		Name:            str(obj, "aaa_Promo_Code_Name"),
		Code:            str(obj, "aaa_Promo_Code"),
		Description:     str(obj, "aaa_Promo_Code_Description"),
		Status:          str(obj, "aaa_Promo_Code_Status"),
		RequiresAutopay: requiresAutopay,
		DiscountPercent: discount,
	}
}
