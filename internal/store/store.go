// Package store is the bun-backed persistence layer shared by the engine's
// components. One logical operation maps to one transaction; RunInTx hands
// callers a transaction-scoped *DB so reads and writes stay isolated together.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-reservations/internal/errs"
	"ms-reservations/internal/models"
)

type DB struct {
	root      *bun.DB
	conn      bun.IDB
	Isolation sql.IsolationLevel
}

func New(bdb *bun.DB) *DB {
	return &DB{root: bdb, conn: bdb}
}

// RunInTx executes fn inside a single transaction at the configured isolation
// level. Serialization failures surface as CONCURRENCY_CONFLICT so callers
// can lose a race gracefully.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *DB) error) error {
	err := d.root.RunInTx(ctx, &sql.TxOptions{Isolation: d.Isolation}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{root: d.root, conn: tx, Isolation: d.Isolation})
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "40001" {
			return errs.ConcurrencyConflict("lost a serialization race for the requested resources")
		}
	}
	return err
}

// ---------------- TABLES ----------------

func (d *DB) CreateTable(ctx context.Context, table *models.Table) error {
	_, err := d.conn.NewInsert().Model(table).Exec(ctx)
	return err
}

func (d *DB) GetTableByID(ctx context.Context, id string) (*models.Table, error) {
	var table models.Table
	err := d.conn.NewSelect().
		Model(&table).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("table", id)
		}
		return nil, err
	}
	return &table, nil
}

func (d *DB) UpdateTable(ctx context.Context, table *models.Table) error {
	_, err := d.conn.NewUpdate().
		Model(table).
		Column("number", "min_capacity", "max_capacity", "type", "combinable", "priority_score", "active").
		Where("id = ?", table.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteTable(ctx context.Context, id string) error {
	_, err := d.conn.NewDelete().
		Model((*models.Table)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := d.conn.NewSelect().
		Model(&tables).
		Order("number ASC").
		Scan(ctx)
	return tables, err
}

func (d *DB) ListActiveTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := d.conn.NewSelect().
		Model(&tables).
		Where("active = ?", true).
		Order("number ASC").
		Scan(ctx)
	return tables, err
}

// ---------------- BOOKINGS ----------------

// CreateBooking inserts a booking, its table assignments (if any) and the
// initial history entry.
func (d *DB) CreateBooking(ctx context.Context, booking *models.Booking, initial models.StatusChange) error {
	if _, err := d.conn.NewInsert().Model(booking).Exec(ctx); err != nil {
		return err
	}
	if len(booking.TableIDs) > 0 {
		if err := d.insertTableLinks(ctx, booking.ID, booking.TableIDs); err != nil {
			return err
		}
	}
	initial.BookingID = booking.ID
	if _, err := d.conn.NewInsert().Model(&initial).Exec(ctx); err != nil {
		return err
	}
	booking.History = append(booking.History, initial)
	return nil
}

func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.conn.NewSelect().
		Model(&booking).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("booking", id)
		}
		return nil, err
	}
	if booking.TableIDs, err = d.tableIDsForBooking(ctx, id); err != nil {
		return nil, err
	}
	if booking.History, err = d.historyForBooking(ctx, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateBookingStatus moves a booking to a new status and appends the history
// entry recording the transition. The status column check makes a lost
// update visible even without serializable isolation.
func (d *DB) UpdateBookingStatus(ctx context.Context, bookingID string, from, to models.BookingStatus, change models.StatusChange) error {
	res, err := d.conn.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", change.At).
		Where("id = ?", bookingID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ConcurrencyConflict("booking " + bookingID + " changed status concurrently")
	}

	change.BookingID = bookingID
	change.FromStatus = from
	change.ToStatus = to
	_, err = d.conn.NewInsert().Model(&change).Exec(ctx)
	return err
}

// AssignTables replaces the booking's table assignments.
func (d *DB) AssignTables(ctx context.Context, bookingID string, tableIDs []string) error {
	_, err := d.conn.NewDelete().
		Model((*models.BookingTable)(nil)).
		Where("booking_id = ?", bookingID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return d.insertTableLinks(ctx, bookingID, tableIDs)
}

// ListActiveBookingsForTables returns every booking in an active status that
// holds at least one of the given tables, with its table assignments loaded.
// Window overlap is evaluated by the availability package, not in SQL, so the
// rule stays a pure function shared across dialects.
func (d *DB) ListActiveBookingsForTables(ctx context.Context, tableIDs []string, excludeBookingID string) ([]models.Booking, error) {
	if len(tableIDs) == 0 {
		return []models.Booking{}, nil
	}
	var bookings []models.Booking
	q := d.conn.NewSelect().
		Model(&bookings).
		Distinct().
		Join("JOIN booking_tables bt ON bt.booking_id = booking.id").
		Where("bt.table_id IN (?)", bun.In(tableIDs)).
		Where("booking.status IN (?)", bun.In(models.ActiveStatuses)).
		Order("booking.start_time ASC")
	if excludeBookingID != "" {
		q = q.Where("booking.id != ?", excludeBookingID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	for i := range bookings {
		ids, err := d.tableIDsForBooking(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].TableIDs = ids
	}
	return bookings, nil
}

func (d *DB) insertTableLinks(ctx context.Context, bookingID string, tableIDs []string) error {
	links := make([]models.BookingTable, 0, len(tableIDs))
	for i, tableID := range tableIDs {
		links = append(links, models.BookingTable{
			BookingID: bookingID,
			TableID:   tableID,
			Position:  i,
		})
	}
	_, err := d.conn.NewInsert().Model(&links).Exec(ctx)
	return err
}

func (d *DB) tableIDsForBooking(ctx context.Context, bookingID string) ([]string, error) {
	var links []models.BookingTable
	err := d.conn.NewSelect().
		Model(&links).
		Where("booking_id = ?", bookingID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.TableID)
	}
	return ids, nil
}

func (d *DB) historyForBooking(ctx context.Context, bookingID string) ([]models.StatusChange, error) {
	var history []models.StatusChange
	err := d.conn.NewSelect().
		Model(&history).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Scan(ctx)
	return history, err
}

// ---------------- WAITLIST ----------------

func (d *DB) CreateWaitlistEntry(ctx context.Context, entry *models.WaitlistEntry) error {
	_, err := d.conn.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (d *DB) GetWaitlistEntry(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := d.conn.NewSelect().
		Model(&entry).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("waitlist entry", id)
		}
		return nil, err
	}
	return &entry, nil
}

// ListQueuedWaitlist returns queued entries in serving order: priority
// entries first, then creation order.
func (d *DB) ListQueuedWaitlist(ctx context.Context) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := d.conn.NewSelect().
		Model(&entries).
		Where("status = ?", models.WaitlistQueued).
		Order("priority DESC", "created_at ASC", "id ASC").
		Scan(ctx)
	return entries, err
}

// MarkWaitlistPromoted converts a queued entry; the status check loses
// gracefully if another sweep already took it.
func (d *DB) MarkWaitlistPromoted(ctx context.Context, id, bookingID string) error {
	res, err := d.conn.NewUpdate().
		Model((*models.WaitlistEntry)(nil)).
		Set("status = ?", models.WaitlistPromoted).
		Set("booking_id = ?", bookingID).
		Where("id = ?", id).
		Where("status = ?", models.WaitlistQueued).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ConcurrencyConflict("waitlist entry " + id + " already served")
	}
	return nil
}

func (d *DB) MarkWaitlistExpired(ctx context.Context, id string) error {
	_, err := d.conn.NewUpdate().
		Model((*models.WaitlistEntry)(nil)).
		Set("status = ?", models.WaitlistExpired).
		Where("id = ?", id).
		Where("status = ?", models.WaitlistQueued).
		Exec(ctx)
	return err
}

func (d *DB) Ping(ctx context.Context) error {
	return d.root.PingContext(ctx)
}
