package wizard

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a wizard session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session binds one in-progress transaction to its owning portal session.
// One browser tab drives one session; sessions are never shared. Completions
// arriving for a session that is no longer active are discarded by the
// handlers, which checks Status before applying updates.
type Session struct {
	ID        string        `json:"id"`
	Flow      Flow          `json:"flow"`
	Status    SessionStatus `json:"status"`
	State     State         `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSession creates a fresh active session with the initial wizard state.
func NewSession(flow Flow) Session {
	now := time.Now().UTC()
	return Session{
		ID:        uuid.NewString(),
		Flow:      flow,
		Status:    SessionActive,
		State:     NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether the session can still accept transitions.
func (s *Session) Active() bool {
	return s.Status == SessionActive
}
