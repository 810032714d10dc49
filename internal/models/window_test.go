package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-reservations/internal/models"
)

func TestWindowOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		a        models.Window
		b        models.Window
		overlaps bool
	}{
		{
			name:     "identical windows overlap",
			a:        models.NewWindow(base, 2*time.Hour),
			b:        models.NewWindow(base, 2*time.Hour),
			overlaps: true,
		},
		{
			name:     "partial overlap",
			a:        models.NewWindow(base, 2*time.Hour),
			b:        models.NewWindow(base.Add(time.Hour), 2*time.Hour),
			overlaps: true,
		},
		{
			name:     "contained window overlaps",
			a:        models.NewWindow(base, 3*time.Hour),
			b:        models.NewWindow(base.Add(time.Hour), 30*time.Minute),
			overlaps: true,
		},
		{
			name:     "back-to-back does not overlap",
			a:        models.NewWindow(base, 2*time.Hour),
			b:        models.NewWindow(base.Add(2*time.Hour), 2*time.Hour),
			overlaps: false,
		},
		{
			name:     "disjoint windows do not overlap",
			a:        models.NewWindow(base, time.Hour),
			b:        models.NewWindow(base.Add(5*time.Hour), time.Hour),
			overlaps: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.overlaps, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestWindowValidAndShift(t *testing.T) {
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	assert.True(t, models.NewWindow(base, 90*time.Minute).Valid())
	assert.False(t, models.NewWindow(base, 0).Valid())
	assert.False(t, models.NewWindow(base, -time.Hour).Valid())

	shifted := models.NewWindow(base, time.Hour).Shift(15 * time.Minute)
	assert.Equal(t, base.Add(15*time.Minute), shifted.Start)
	assert.Equal(t, time.Hour, shifted.Duration())
}

func TestBookingWindow(t *testing.T) {
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	b := models.Booking{StartTime: start, TurnTimeMinutes: 90}

	w := b.Window()
	assert.Equal(t, start, w.Start)
	assert.Equal(t, start.Add(90*time.Minute), w.End)
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, models.StatusConfirmed.IsActive())
	assert.True(t, models.StatusPayment.IsActive())
	assert.False(t, models.StatusPending.IsActive())
	assert.False(t, models.StatusCompleted.IsActive())
	assert.False(t, models.StatusCancelledByUser.IsActive())

	assert.True(t, models.StatusCompleted.IsTerminal())
	assert.True(t, models.StatusAutoDeclined.IsTerminal())
	assert.False(t, models.StatusPending.IsTerminal())
	assert.False(t, models.StatusSeated.IsTerminal())
}
