package models

import (
	"time"

	"github.com/google/uuid"
)

// Charge audit outcomes (charge_log.outcome).
const (
	ChargeAccepted = "accepted"
	ChargeRejected = "rejected"
)

// ChargeRecord is the audit row written for every charge attempt, accepted or
// not. Kept for abuse investigation and billing disputes.
type ChargeRecord struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	ActionKind string    `json:"action_kind"`
	ModelIDs   []string  `json:"model_ids,omitempty"`
	Cost       int       `json:"cost"`
	Outcome    string    `json:"outcome"`
	UsedBefore int       `json:"used_before"`
	UsedAfter  int       `json:"used_after"`
	CreatedAt  time.Time `json:"created_at"`
}
