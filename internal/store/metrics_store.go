package store

import (
	"context"
	"fmt"
)

// CreateRequest records one API request for the metrics page.
func (s *Store) CreateRequest(ctx context.Context, method, path string, statusCode, responseTimeMs, requestBytes, responseBytes int) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO request_metrics (method, path, status_code, response_time_ms, request_bytes, response_bytes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())`,
		method, path, statusCode, responseTimeMs, requestBytes, responseBytes,
	)
	if err != nil {
		return fmt.Errorf("store: insert request metric: %w", err)
	}
	return nil
}
