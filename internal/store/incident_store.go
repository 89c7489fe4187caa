package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aaane/member-portal/backend/internal/models"
)

// RecordIncident persists a provisioning incident for the support queue.
func (s *Store) RecordIncident(ctx context.Context, incident *models.ProvisioningIncident) error {
	if err := incident.IsValid(); err != nil {
		return fmt.Errorf("store: invalid incident: %w", err)
	}

	err := s.db.QueryRowContext(ctx, `
INSERT INTO provisioning_incidents (session_id, account_id, product_id, stage, detail, status, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
RETURNING id, created_at`,
		incident.SessionID, incident.AccountID, incident.ProductID,
		incident.Stage, incident.Detail, string(incident.Status), incident.Metadata,
	).Scan(&incident.ID, &incident.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert provisioning incident: %w", err)
	}
	return nil
}

// ListOpenIncidents returns incidents awaiting support follow-up, oldest
// first.
func (s *Store) ListOpenIncidents(ctx context.Context, limit int) ([]models.ProvisioningIncident, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, account_id, product_id, stage, detail, status, created_at, acknowledged_at, metadata
FROM provisioning_incidents
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2`, string(models.IncidentStatusOpen), limit)
	if err != nil {
		return nil, fmt.Errorf("store: query open incidents: %w", err)
	}
	defer rows.Close()

	var incidents []models.ProvisioningIncident
	for rows.Next() {
		var inc models.ProvisioningIncident
		var status string
		if err := rows.Scan(
			&inc.ID, &inc.SessionID, &inc.AccountID, &inc.ProductID,
			&inc.Stage, &inc.Detail, &status, &inc.CreatedAt,
			&inc.AcknowledgedAt, &inc.Metadata,
		); err != nil {
			return nil, fmt.Errorf("store: scan incident: %w", err)
		}
		inc.Status = models.IncidentStatus(status)
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate incidents: %w", err)
	}
	return incidents, nil
}

// AcknowledgeIncident marks an incident as picked up by support.
func (s *Store) AcknowledgeIncident(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
UPDATE provisioning_incidents
SET status = $2, acknowledged_at = $3
WHERE id = $1 AND status = $4`,
		id, string(models.IncidentStatusAcknowledged), time.Now().UTC(),
		string(models.IncidentStatusOpen),
	)
	if err != nil {
		return fmt.Errorf("store: acknowledge incident %d: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: incident %d not open", id)
	}
	return nil
}
