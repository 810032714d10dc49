package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WaitlistStatus string

const (
	WaitlistQueued   WaitlistStatus = "queued"
	WaitlistPromoted WaitlistStatus = "promoted"
	WaitlistExpired  WaitlistStatus = "expired"
)

// WaitlistEntry holds an unmet booking request. Entries are served in
// creation order with a priority override; they are promoted or expired,
// never mutated otherwise.
type WaitlistEntry struct {
	bun.BaseModel `bun:"table:waitlist_entries"`

	ID              string         `bun:"id,pk" json:"id"`
	PartySize       int            `bun:"party_size,notnull" json:"party_size"`
	WindowStart     time.Time      `bun:"window_start,notnull" json:"window_start"`
	TurnTimeMinutes int            `bun:"turn_time_minutes,notnull" json:"turn_time_minutes"`
	PreferredType   string         `bun:"preferred_type,nullzero" json:"preferred_type,omitempty"`
	Priority        bool           `bun:"priority" json:"priority"`
	Status          WaitlistStatus `bun:"status,notnull" json:"status"`
	CreatedAt       time.Time      `bun:"created_at,notnull" json:"created_at"`
	// Set when the entry converts into a booking.
	BookingID string `bun:"booking_id,nullzero" json:"booking_id,omitempty"`
}

// Window is the desired occupancy interval of the entry.
func (e *WaitlistEntry) Window() Window {
	return NewWindow(e.WindowStart, time.Duration(e.TurnTimeMinutes)*time.Minute)
}
