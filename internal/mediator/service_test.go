package mediator_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-reservations/internal/availability"
	"ms-reservations/internal/clock"
	"ms-reservations/internal/errs"
	"ms-reservations/internal/lifecycle"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/mediator"
	"ms-reservations/internal/models"
	"ms-reservations/internal/planner"
	"ms-reservations/internal/store"
)

// fakeLocks grants or denies every lock request and records what it saw.
type fakeLocks struct {
	deny     bool
	locked   [][]string
	unlocked [][]string
}

func (f *fakeLocks) LockTables(ctx context.Context, tableIDs []string, token string) (bool, error) {
	if f.deny {
		return false, nil
	}
	f.locked = append(f.locked, tableIDs)
	return true, nil
}

func (f *fakeLocks) UnlockTables(ctx context.Context, tableIDs []string, token string) error {
	f.unlocked = append(f.unlocked, tableIDs)
	return nil
}

// fakeNotifier counts dispatched events.
type fakeNotifier struct {
	confirmed   int
	declined    int
	transitions int
	lastPrev    models.BookingStatus
}

func (f *fakeNotifier) BookingConfirmed(b *models.Booking, actor string, now time.Time) {
	f.confirmed++
}

func (f *fakeNotifier) BookingDeclined(b *models.Booking, actor, reason string, now time.Time) {
	f.declined++
}

func (f *fakeNotifier) BookingTransition(b *models.Booking, prev models.BookingStatus, actor string, now time.Time) {
	f.transitions++
	f.lastPrev = prev
}

type fakeSweeper struct {
	triggers int
}

func (f *fakeSweeper) Trigger() { f.triggers++ }

type fixture struct {
	svc      *mediator.Service
	db       *store.DB
	locks    *fakeLocks
	notifier *fakeNotifier
	sweeper  *fakeSweeper
	clk      *clock.Fake
}

func setup(t *testing.T) *fixture {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, store.Bootstrap(context.Background(), bunDB))
	db := store.New(bunDB)

	clk := clock.NewFake(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	locks := &fakeLocks{}
	notifier := &fakeNotifier{}
	sweeper := &fakeSweeper{}
	detector := availability.NewDetector()

	svc := mediator.NewService(
		db,
		planner.NewPlanner(detector, 15*time.Minute, 2*time.Hour),
		lifecycle.NewMachine(clk),
		detector,
		locks,
		notifier,
		clk,
		logger.NewLogger(),
	)
	svc.Waitlist = sweeper

	return &fixture{svc: svc, db: db, locks: locks, notifier: notifier, sweeper: sweeper, clk: clk}
}

func (f *fixture) seedTable(t *testing.T, table models.Table) {
	t.Helper()
	require.NoError(t, f.db.CreateTable(context.Background(), &table))
}

func TestCreateBookingPending(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Actor:     "guest:42",
		Source:    "web",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, booking.Status)
	assert.Equal(t, 120, booking.TurnTimeMinutes, "default turn time applies")
	assert.Empty(t, booking.TableIDs, "pending requests hold no tables")
	assert.Zero(t, f.notifier.confirmed, "nothing is announced until the request resolves")

	stored, err := f.svc.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Equal(t, models.StatusPending, stored.History[0].ToStatus)
	assert.Equal(t, "web", stored.History[0].Metadata[models.MetaSource])
}

func TestCreateBookingValidation(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	cases := []mediator.CreateRequest{
		{PartySize: 0, StartTime: start, Actor: "guest:1"},
		{PartySize: 2, Actor: "guest:1"},
		{PartySize: 2, StartTime: start, TurnTime: -time.Hour, Actor: "guest:1"},
		{PartySize: 2, StartTime: start},
	}
	for _, req := range cases {
		_, err := f.svc.CreateBooking(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errs.IsCode(err, errs.CodeValidation))
	}
}

func TestCreateBookingInstant(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Instant:   true,
		Actor:     "host:anna",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.Equal(t, []string{"t1"}, booking.TableIDs)
	assert.Equal(t, 1, f.notifier.confirmed)
	require.Len(t, f.locks.locked, 1)
	require.Len(t, f.locks.unlocked, 1, "locks are always released")
}

func TestCreateBookingInstantNoAvailability(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	_, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Instant:   true,
		Actor:     "host:anna",
	})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeNoAvailability))
}

func TestAcceptRequestPlannerPath(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Actor:     "guest:42",
	})
	require.NoError(t, err)

	result, err := f.svc.AcceptRequest(context.Background(), booking.ID, "host:anna", nil, mediator.AcceptOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, result.Booking.Status)
	assert.Equal(t, []string{"t1"}, result.Booking.TableIDs)
	assert.Equal(t, []string{"t1"}, result.Assignment.TableIDs)
	assert.Equal(t, 1, f.notifier.confirmed)

	require.Len(t, result.Booking.History, 2)
	assert.Equal(t, models.StatusPending, result.Booking.History[1].FromStatus)
	assert.Equal(t, models.StatusConfirmed, result.Booking.History[1].ToStatus)
	assert.Equal(t, "host:anna", result.Booking.History[1].Actor)
}

func TestAcceptRequestExplicitTables(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Combinable: true, Active: true})
	f.seedTable(t, models.Table{ID: "t2", Number: 2, MinCapacity: 2, MaxCapacity: 4, Combinable: true, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 7,
		StartTime: start,
		Actor:     "guest:42",
	})
	require.NoError(t, err)

	result, err := f.svc.AcceptRequest(context.Background(), booking.ID, "host:anna", []string{"t1", "t2"}, mediator.AcceptOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"t1", "t2"}, result.Booking.TableIDs)
	assert.True(t, result.Assignment.RequiresCombination)
	assert.Equal(t, 8, result.Assignment.Capacity)
}

func TestAcceptRequestExplicitTableValidation(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t-small", Number: 1, MinCapacity: 1, MaxCapacity: 2, Active: true})
	f.seedTable(t, models.Table{ID: "t-solo", Number: 2, MinCapacity: 2, MaxCapacity: 4, Combinable: false, Active: true})
	f.seedTable(t, models.Table{ID: "t-closed", Number: 3, MinCapacity: 2, MaxCapacity: 4, Active: false})
	f.seedTable(t, models.Table{ID: "t-pair", Number: 4, MinCapacity: 2, MaxCapacity: 4, Combinable: true, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Actor:     "guest:42",
	})
	require.NoError(t, err)

	cases := []struct {
		name     string
		tableIDs []string
	}{
		{"too many tables", []string{"t-small", "t-solo", "t-pair"}},
		{"duplicate table", []string{"t-pair", "t-pair"}},
		{"inactive table", []string{"t-closed"}},
		{"non-combinable pair", []string{"t-solo", "t-pair"}},
		{"insufficient capacity", []string{"t-small"}},
		{"unknown table", []string{"t-ghost"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AcceptRequest(context.Background(), booking.ID, "host:anna", tc.tableIDs, mediator.AcceptOptions{})
			require.Error(t, err)
		})
	}

	// The booking stays pending through every failed attempt.
	current, err := f.svc.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, current.Status)
}

func TestAcceptRequestNonPending(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Actor:     "guest:42",
	})
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(context.Background(), booking.ID, "host:anna", nil, mediator.AcceptOptions{})
	require.NoError(t, err)

	// Accepting again sees a confirmed booking.
	_, err = f.svc.AcceptRequest(context.Background(), booking.ID, "host:anna", nil, mediator.AcceptOptions{})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeInvalidTransition))
}

func TestAcceptRequestExplicitConflict(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Active: true})

	first, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Actor:     "guest:1",
	})
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(context.Background(), first.ID, "host:anna", []string{"t1"}, mediator.AcceptOptions{})
	require.NoError(t, err)

	// A second pending request for the same window loses the table.
	second, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start.Add(30 * time.Minute),
		Actor:     "guest:2",
	})
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(context.Background(), second.ID, "host:anna", []string{"t1"}, mediator.AcceptOptions{})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeConflict))

	current, err := f.svc.GetBooking(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, current.Status, "losing request stays pending")
}

func TestAcceptRequestLockDenied(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Actor:     "guest:42",
	})
	require.NoError(t, err)

	f.locks.deny = true
	_, err = f.svc.AcceptRequest(context.Background(), booking.ID, "host:anna", nil, mediator.AcceptOptions{})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeConcurrencyConflict))
}

func TestDeclineRequest(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Actor:     "guest:42",
	})
	require.NoError(t, err)

	_, err = f.svc.DeclineRequest(context.Background(), booking.ID, "host:anna", "", false)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeValidation), "a reason is mandatory")

	result, err := f.svc.DeclineRequest(context.Background(), booking.ID, "host:anna", "fully committed", false)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDeclinedByRestaurant, result.Booking.Status)
	assert.Equal(t, 1, f.notifier.declined)
	require.Len(t, result.Booking.History, 2)
	assert.Equal(t, "fully committed", result.Booking.History[1].Metadata[models.MetaReason])
}

func TestDeclineRequestWithSuggestions(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Actor:     "guest:42",
	})
	require.NoError(t, err)

	result, err := f.svc.DeclineRequest(context.Background(), booking.ID, "host:anna", "kitchen understaffed", true)
	require.NoError(t, err)

	require.NotNil(t, result.SuggestedAssignment, "the table was actually free")
	assert.Equal(t, []string{"t1"}, result.SuggestedAssignment.TableIDs)
}

func TestTransitionTriggersWaitlistWhenFreeingTables(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Instant:   true,
		Actor:     "host:anna",
	})
	require.NoError(t, err)

	updated, err := f.svc.Transition(context.Background(), booking.ID, models.StatusCancelledByRestaurant, "host:anna",
		map[string]string{models.MetaReason: "private event"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelledByRestaurant, updated.Status)
	assert.Equal(t, 1, f.notifier.transitions)
	assert.Equal(t, models.StatusConfirmed, f.notifier.lastPrev)
	assert.Equal(t, 1, f.sweeper.triggers, "freed tables poke the waitlist")

	// A forward step does not free anything.
	another, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start.Add(3 * time.Hour),
		Instant:   true,
		Actor:     "host:anna",
	})
	require.NoError(t, err)
	_, err = f.svc.Transition(context.Background(), another.ID, models.StatusArrived, "host:anna", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sweeper.triggers)
}

func TestCheckAvailabilityPassthrough(t *testing.T) {
	f := setup(t)
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	f.seedTable(t, models.Table{ID: "t1", Number: 1, MinCapacity: 2, MaxCapacity: 4, Active: true})

	booking, err := f.svc.CreateBooking(context.Background(), mediator.CreateRequest{
		PartySize: 4,
		StartTime: start,
		Instant:   true,
		Actor:     "host:anna",
	})
	require.NoError(t, err)

	report, err := f.svc.CheckAvailability(context.Background(), []string{"t1"}, models.NewWindow(start, 2*time.Hour), "")
	require.NoError(t, err)
	assert.False(t, report.Available)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, booking.ID, report.Conflicts[0].ID)
}
