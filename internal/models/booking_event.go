package models

import "time"

// Notification event types dispatched after commit. Delivery is best-effort;
// booking state never depends on it.
const (
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingDeclined   = "booking.declined"
	EventBookingCancelled  = "booking.cancelled"
	EventWaitlistPromoted  = "waitlist.promoted"
	EventBookingTransition = "booking.transition"
)

// BookingEvent is the payload published to the notification topics.
type BookingEvent struct {
	EventType  string        `json:"event_type"`
	BookingID  string        `json:"booking_id"`
	Status     BookingStatus `json:"status"`
	PrevStatus BookingStatus `json:"prev_status,omitempty"`
	PartySize  int           `json:"party_size,omitempty"`
	TableIDs   []string      `json:"table_ids,omitempty"`
	StartTime  time.Time     `json:"start_time,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Actor      string        `json:"actor,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// WaitlistEvent is published when a waitlist entry is promoted or expired.
type WaitlistEvent struct {
	EventType  string    `json:"event_type"`
	EntryID    string    `json:"entry_id"`
	BookingID  string    `json:"booking_id,omitempty"`
	PartySize  int       `json:"party_size"`
	OccurredAt time.Time `json:"occurred_at"`
}
