// Package availability detects booking conflicts on tables. The overlap rule
// is a pure function over half-open windows; the detector only adds the
// lookup of active bookings around it.
package availability

import (
	"context"

	"ms-reservations/internal/errs"
	"ms-reservations/internal/models"
)

// BookingView is the slice of the store the detector reads. Callers inside a
// transaction pass the transaction-scoped store so the check and the
// dependent write share one isolation scope.
type BookingView interface {
	ListActiveBookingsForTables(ctx context.Context, tableIDs []string, excludeBookingID string) ([]models.Booking, error)
}

// Report lists the conflicting bookings found for a candidate window.
type Report struct {
	Available bool                        `json:"available"`
	Conflicts []models.Booking            `json:"conflicts"`
	ByTable   map[string][]models.Booking `json:"by_table,omitempty"`
}

// Detector is stateless; the same instance serves every operation.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Check finds active bookings whose windows overlap the candidate window on
// any of the given tables. excludeBookingID skips a booking being re-checked.
func (d *Detector) Check(ctx context.Context, view BookingView, tableIDs []string, window models.Window, excludeBookingID string) (*Report, error) {
	if len(tableIDs) == 0 {
		return nil, errs.Validation("at least one table id is required")
	}
	if !window.Valid() {
		return nil, errs.Validation("window must have a positive duration")
	}

	bookings, err := view.ListActiveBookingsForTables(ctx, tableIDs, excludeBookingID)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(tableIDs))
	for _, id := range tableIDs {
		requested[id] = true
	}

	report := &Report{
		Available: true,
		Conflicts: []models.Booking{},
		ByTable:   map[string][]models.Booking{},
	}
	for _, booking := range bookings {
		if !booking.Window().Overlaps(window) {
			continue
		}
		report.Available = false
		report.Conflicts = append(report.Conflicts, booking)
		for _, tableID := range booking.TableIDs {
			if requested[tableID] {
				report.ByTable[tableID] = append(report.ByTable[tableID], booking)
			}
		}
	}
	return report, nil
}
