package lifecycle

import (
	"context"

	"ms-reservations/internal/clock"
	"ms-reservations/internal/errs"
	"ms-reservations/internal/models"
)

// BookingStore is the slice of the store the machine needs. Transaction
// callers pass the transaction-scoped store.
type BookingStore interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID string, from, to models.BookingStatus, change models.StatusChange) error
}

// Machine validates and applies lifecycle transitions. It never deletes
// bookings; terminal states are retained for audit.
type Machine struct {
	Clock clock.Clock
}

func NewMachine(clk clock.Clock) *Machine {
	return &Machine{Clock: clk}
}

// Transition applies from-current-status → target on the booking, appending
// the history entry. An edge not in the graph is rejected with
// INVALID_TRANSITION and the booking is left unchanged.
func (m *Machine) Transition(ctx context.Context, store BookingStore, bookingID string, target models.BookingStatus, actor string, metadata map[string]string) (*models.Booking, error) {
	if actor == "" {
		return nil, errs.Validation("actor is required for a status transition")
	}
	if !IsKnown(target) {
		return nil, errs.Validation("unknown status: " + string(target))
	}

	booking, err := store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(booking.Status, target) {
		return nil, errs.InvalidTransition(booking.Status, target)
	}
	if target == models.StatusSeated && len(booking.TableIDs) == 0 {
		return nil, errs.Validation("booking has no assigned tables; assign tables before seating")
	}
	if RequiresReason(target) && metadata[models.MetaReason] == "" {
		return nil, errs.Validation("a reason is required to " + string(target))
	}

	change := models.StatusChange{
		At:       m.Clock.Now(),
		Actor:    actor,
		Metadata: metadata,
	}
	if err := store.UpdateBookingStatus(ctx, bookingID, booking.Status, target, change); err != nil {
		return nil, err
	}

	return store.GetBookingByID(ctx, bookingID)
}

// InitialStatus returns the entry status for a new booking under the given
// policy: requests await approval, instant-confirm bookings (walk-ins,
// manual overrides) start confirmed.
func InitialStatus(instant bool) models.BookingStatus {
	if instant {
		return models.StatusConfirmed
	}
	return models.StatusPending
}
