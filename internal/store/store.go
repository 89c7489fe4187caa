// Package store provides database-backed persistence for wizard sessions,
// payment records, provisioning incidents, and request metrics.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaane/member-portal/backend/internal/wizard"
)

// ErrSessionNotFound is returned when a wizard session does not exist.
var ErrSessionNotFound = errors.New("store: wizard session not found")

// Store provides database-backed accessors for application data.
type Store struct {
	db *sql.DB
}

// New creates a Store using the provided sql.DB connection.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &Store{db: db}, nil
}

// CreateSession persists a fresh wizard session.
func (s *Store) CreateSession(ctx context.Context, session wizard.Session) error {
	state, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("store: encode session state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO wizard_sessions (id, flow, status, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, string(session.Flow), string(session.Status), state,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert wizard session: %w", err)
	}
	return nil
}

// GetSession loads a wizard session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*wizard.Session, error) {
	var (
		session wizard.Session
		flow    string
		status  string
		state   []byte
	)

	err := s.db.QueryRowContext(ctx, `
SELECT id, flow, status, state, created_at, updated_at
FROM wizard_sessions
WHERE id = $1`, id).Scan(
		&session.ID, &flow, &status, &state,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: query wizard session: %w", err)
	}

	session.Flow = wizard.Flow(flow)
	session.Status = wizard.SessionStatus(status)
	if err := json.Unmarshal(state, &session.State); err != nil {
		return nil, fmt.Errorf("store: decode session state: %w", err)
	}
	return &session, nil
}

// UpdateSession persists the session's current state and status.
func (s *Store) UpdateSession(ctx context.Context, session wizard.Session) error {
	state, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("store: encode session state: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
UPDATE wizard_sessions
SET status = $2, state = $3, updated_at = $4
WHERE id = $1`,
		session.ID, string(session.Status), state, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: update wizard session: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ExpireStaleSessions marks active sessions untouched for longer than ttl as
// abandoned. Returns the number of sessions expired.
func (s *Store) ExpireStaleSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	result, err := s.db.ExecContext(ctx, `
UPDATE wizard_sessions
SET status = $1, updated_at = now()
WHERE status = $2 AND updated_at < $3`,
		string(wizard.SessionAbandoned), string(wizard.SessionActive), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("store: expire stale sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: expire stale sessions: rows affected: %w", err)
	}
	return n, nil
}
