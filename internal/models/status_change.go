package models

import (
	"time"

	"github.com/uptrace/bun"
)

// StatusChange is one append-only history entry of a booking's lifecycle.
// Metadata is a flat string map (decline reason, reassignment note, ...).
type StatusChange struct {
	bun.BaseModel `bun:"table:status_changes"`

	ID         int64             `bun:"id,pk,autoincrement" json:"-"`
	BookingID  string            `bun:"booking_id,notnull" json:"booking_id"`
	FromStatus BookingStatus     `bun:"from_status,nullzero" json:"from_status,omitempty"`
	ToStatus   BookingStatus     `bun:"to_status,notnull" json:"to_status"`
	At         time.Time         `bun:"at,notnull" json:"at"`
	Actor      string            `bun:"actor,notnull" json:"actor"`
	Metadata   map[string]string `bun:"metadata,nullzero" json:"metadata,omitempty"`
}

// Common metadata keys.
const (
	MetaReason           = "reason"
	MetaReassignmentNote = "reassignment_note"
	MetaSource           = "source"
)
