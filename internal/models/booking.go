package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BookingStatus is the lifecycle status of a booking. The legal transitions
// between statuses are owned by the lifecycle package.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusArrived    BookingStatus = "arrived"
	StatusSeated     BookingStatus = "seated"
	StatusOrdered    BookingStatus = "ordered"
	StatusAppetizers BookingStatus = "appetizers"
	StatusMainCourse BookingStatus = "main_course"
	StatusDessert    BookingStatus = "dessert"
	StatusPayment    BookingStatus = "payment"
	StatusCompleted  BookingStatus = "completed"
	StatusNoShow     BookingStatus = "no_show"

	StatusCancelledByUser       BookingStatus = "cancelled_by_user"
	StatusCancelledByRestaurant BookingStatus = "cancelled_by_restaurant"
	StatusDeclinedByRestaurant  BookingStatus = "declined_by_restaurant"
	StatusAutoDeclined          BookingStatus = "auto_declined"
)

// ActiveStatuses are the statuses that occupy (or are about to occupy) a
// table. Only these count for conflict detection.
var ActiveStatuses = []BookingStatus{
	StatusConfirmed,
	StatusArrived,
	StatusSeated,
	StatusOrdered,
	StatusAppetizers,
	StatusMainCourse,
	StatusDessert,
	StatusPayment,
}

// TerminalStatuses end the lifecycle; bookings in these states are retained
// for audit and never mutated again.
var TerminalStatuses = []BookingStatus{
	StatusCompleted,
	StatusNoShow,
	StatusCancelledByUser,
	StatusCancelledByRestaurant,
	StatusDeclinedByRestaurant,
	StatusAutoDeclined,
}

// IsActive reports whether the status counts as occupying a table.
func (s BookingStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the lifecycle.
func (s BookingStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              string        `bun:"id,pk" json:"id"`
	PartySize       int           `bun:"party_size,notnull" json:"party_size"`
	StartTime       time.Time     `bun:"start_time,notnull" json:"start_time"`
	TurnTimeMinutes int           `bun:"turn_time_minutes,notnull" json:"turn_time_minutes"`
	Status          BookingStatus `bun:"status,notnull" json:"status"`
	CreatedAt       time.Time     `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time     `bun:"updated_at,nullzero" json:"updated_at,omitempty"`

	// Loaded from the booking_tables join table, ordered by position.
	TableIDs []string `bun:"-" json:"table_ids"`
	// Loaded from status_changes, ordered by insertion.
	History []StatusChange `bun:"-" json:"history,omitempty"`
}

// Window is the half-open occupancy interval [StartTime, StartTime+turn).
func (b *Booking) Window() Window {
	return NewWindow(b.StartTime, time.Duration(b.TurnTimeMinutes)*time.Minute)
}

// BookingTable links a booking to an assigned table. Position preserves the
// order of a two-table combination.
type BookingTable struct {
	bun.BaseModel `bun:"table:booking_tables"`

	BookingID string `bun:"booking_id,pk" json:"booking_id"`
	TableID   string `bun:"table_id,pk" json:"table_id"`
	Position  int    `bun:"position,notnull" json:"position"`
}
