package store

import (
	"context"

	"github.com/uptrace/bun"

	"ms-reservations/internal/models"
)

// Bootstrap creates the engine's tables when they do not exist yet. Used by
// tests (in-memory sqlite) and dev setups; production schemas are managed by
// the SQL migrations under migrations/.
func Bootstrap(ctx context.Context, db *bun.DB) error {
	bootstrapModels := []any{
		(*models.Table)(nil),
		(*models.Booking)(nil),
		(*models.BookingTable)(nil),
		(*models.StatusChange)(nil),
		(*models.WaitlistEntry)(nil),
	}
	for _, model := range bootstrapModels {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
