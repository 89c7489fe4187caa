package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// IncidentStatus represents the current state of a provisioning incident.
type IncidentStatus string

const (
	IncidentStatusOpen         IncidentStatus = "open"
	IncidentStatusAcknowledged IncidentStatus = "acknowledged"
	IncidentStatusResolved     IncidentStatus = "resolved"
)

// ProvisioningIncident records a partial-success failure: the hosted payment
// widget captured a charge but a backend provisioning write failed. These
// require manual support intervention; the service deliberately performs no
// automatic compensation (no void/refund call).
type ProvisioningIncident struct {
	ID             int64          `json:"id"`
	SessionID      string         `json:"session_id"`
	AccountID      string         `json:"account_id"`
	ProductID      string         `json:"product_id,omitempty"`
	Stage          string         `json:"stage"`
	Detail         string         `json:"detail"`
	Status         IncidentStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	Metadata       JSONB          `json:"metadata"`
}

// IsValid checks the incident carries enough context for support follow-up.
func (i *ProvisioningIncident) IsValid() error {
	if i.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if i.Stage == "" {
		return fmt.Errorf("stage is required")
	}
	if i.Status == "" {
		i.Status = IncidentStatusOpen
	}
	return nil
}

// JSONB is a custom type for PostgreSQL JSONB columns.
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = JSONB{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into JSONB", value)
	}

	return json.Unmarshal(bytes, j)
}
