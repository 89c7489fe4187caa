package store

import (
	"context"
	"fmt"

	"github.com/aaane/member-portal/backend/internal/models"
)

// RecordPayment mirrors a captured widget charge locally.
func (s *Store) RecordPayment(ctx context.Context, payment *models.PaymentRecord) error {
	err := s.db.QueryRowContext(ctx, `
INSERT INTO payment_records (session_id, account_id, product_id, account_product_id, amount, currency, payment_method, promo_code, widget_reference, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
RETURNING id, created_at`,
		payment.SessionID, payment.AccountID, payment.ProductID,
		payment.AccountProductID, payment.Amount, payment.Currency,
		payment.PaymentMethod, payment.PromoCode, payment.WidgetReference,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert payment record: %w", err)
	}
	return nil
}

// GetPaymentsBySession lists the charges captured for one wizard session.
func (s *Store) GetPaymentsBySession(ctx context.Context, sessionID string) ([]models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, account_id, product_id, account_product_id, amount, currency, payment_method, promo_code, widget_reference, created_at
FROM payment_records
WHERE session_id = $1
ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: query payment records: %w", err)
	}
	defer rows.Close()

	var payments []models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(
			&p.ID, &p.SessionID, &p.AccountID, &p.ProductID,
			&p.AccountProductID, &p.Amount, &p.Currency,
			&p.PaymentMethod, &p.PromoCode, &p.WidgetReference, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan payment record: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate payment records: %w", err)
	}
	return payments, nil
}
