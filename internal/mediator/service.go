// Package mediator orchestrates booking requests end to end: planning,
// locking, the transactional confirm, and post-commit notification dispatch.
// Every operation is a single atomic unit; nothing holds a lock across calls.
package mediator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-reservations/internal/availability"
	"ms-reservations/internal/clock"
	"ms-reservations/internal/errs"
	"ms-reservations/internal/lifecycle"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/planner"
	"ms-reservations/internal/store"
)

// Locker guards tables for the duration of one operation.
type Locker interface {
	LockTables(ctx context.Context, tableIDs []string, token string) (bool, error)
	UnlockTables(ctx context.Context, tableIDs []string, token string) error
}

// Notifications dispatches fire-and-forget events after commit.
type Notifications interface {
	BookingConfirmed(b *models.Booking, actor string, now time.Time)
	BookingDeclined(b *models.Booking, actor, reason string, now time.Time)
	BookingTransition(b *models.Booking, prev models.BookingStatus, actor string, now time.Time)
}

// Sweeper is poked when a transition frees tables.
type Sweeper interface {
	Trigger()
}

type Service struct {
	Store    *store.DB
	Planner  *planner.Planner
	Machine  *lifecycle.Machine
	Detector *availability.Detector
	Locks    Locker
	Notifier Notifications
	Waitlist Sweeper // optional
	Clock    clock.Clock
	Logger   *logger.Logger

	DefaultTurnTime time.Duration
}

func NewService(st *store.DB, pl *planner.Planner, machine *lifecycle.Machine, detector *availability.Detector, locks Locker, notifier Notifications, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		Store:           st,
		Planner:         pl,
		Machine:         machine,
		Detector:        detector,
		Locks:           locks,
		Notifier:        notifier,
		Clock:           clk,
		Logger:          log,
		DefaultTurnTime: 2 * time.Hour,
	}
}

// ---------------- INTAKE ----------------

type CreateRequest struct {
	PartySize     int
	StartTime     time.Time
	TurnTime      time.Duration // zero applies the default
	Instant       bool          // walk-in / instant-confirm policy
	PreferredType string
	Actor         string
	Source        string
}

// CreateBooking records a new request. Under the request policy the booking
// starts pending and waits for AcceptRequest; an instant booking is planned
// and confirmed in the same call.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if req.PartySize <= 0 {
		return nil, errs.Validation("party size must be positive")
	}
	if req.StartTime.IsZero() {
		return nil, errs.Validation("start time is required")
	}
	if req.TurnTime == 0 {
		req.TurnTime = s.DefaultTurnTime
	}
	if req.TurnTime <= 0 {
		return nil, errs.Validation("turn time must be positive")
	}
	if req.Actor == "" {
		return nil, errs.Validation("actor is required")
	}

	now := s.Clock.Now()
	booking := &models.Booking{
		ID:              uuid.NewString(),
		PartySize:       req.PartySize,
		StartTime:       req.StartTime,
		TurnTimeMinutes: int(req.TurnTime / time.Minute),
		Status:          lifecycle.InitialStatus(req.Instant),
		CreatedAt:       now,
	}
	var metadata map[string]string
	if req.Source != "" {
		metadata = map[string]string{models.MetaSource: req.Source}
	}
	initial := models.StatusChange{
		ToStatus: booking.Status,
		At:       now,
		Actor:    req.Actor,
		Metadata: metadata,
	}

	if !req.Instant {
		err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
			return tx.CreateBooking(ctx, booking, initial)
		})
		if err != nil {
			return nil, err
		}
		s.Logger.LogBooking("CREATE", booking.ID, fmt.Sprintf("pending request for party of %d", booking.PartySize))
		return booking, nil
	}

	// Instant policy: plan, lock, then create confirmed with the assignment
	// in one transaction.
	assignment, err := s.Planner.Plan(ctx, s.Store, planner.Request{
		PartySize:     req.PartySize,
		Window:        booking.Window(),
		PreferredType: req.PreferredType,
	})
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	locked, err := s.Locks.LockTables(ctx, assignment.TableIDs, token)
	if err != nil {
		return nil, errs.Internal("table lock error", err)
	}
	if !locked {
		return nil, errs.ConcurrencyConflict("tables are being assigned by another operation")
	}
	defer func() {
		if err := s.Locks.UnlockTables(ctx, assignment.TableIDs, token); err != nil {
			s.Logger.Warn("LOCKS", fmt.Sprintf("failed to release table locks for booking %s: %v", booking.ID, err))
		}
	}()

	booking.TableIDs = assignment.TableIDs
	err = s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		report, err := s.Detector.Check(ctx, tx, assignment.TableIDs, booking.Window(), booking.ID)
		if err != nil {
			return err
		}
		if !report.Available {
			return errs.ConcurrencyConflict("planned tables were claimed concurrently")
		}
		return tx.CreateBooking(ctx, booking, initial)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooking("CREATE", booking.ID, fmt.Sprintf("walk-in confirmed on tables %v", booking.TableIDs))
	s.Notifier.BookingConfirmed(booking, req.Actor, s.Clock.Now())
	return booking, nil
}

// GetBooking returns the booking with its assignment and full history.
func (s *Service) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.Store.GetBookingByID(ctx, bookingID)
}

// ---------------- ACCEPT / DECLINE ----------------

type AcceptOptions struct {
	PreferredType string
}

type AcceptResult struct {
	Booking    *models.Booking    `json:"booking"`
	Assignment *models.Assignment `json:"assignment"`
}

// AcceptRequest confirms a pending booking. When tableIDs are omitted the
// planner resolves the assignment; a planner failure is returned with its
// alternatives and the booking is left untouched.
func (s *Service) AcceptRequest(ctx context.Context, bookingID, actor string, tableIDs []string, opts AcceptOptions) (*AcceptResult, error) {
	if actor == "" {
		return nil, errs.Validation("actor is required")
	}

	booking, err := s.Store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPending {
		return nil, errs.InvalidTransition(booking.Status, models.StatusConfirmed)
	}

	explicit := len(tableIDs) > 0
	var assignment *models.Assignment
	if explicit {
		assignment, err = s.validateExplicitTables(ctx, tableIDs, booking.PartySize)
	} else {
		assignment, err = s.Planner.Plan(ctx, s.Store, planner.Request{
			PartySize:        booking.PartySize,
			Window:           booking.Window(),
			PreferredType:    opts.PreferredType,
			ExcludeBookingID: booking.ID,
		})
	}
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	locked, err := s.Locks.LockTables(ctx, assignment.TableIDs, token)
	if err != nil {
		return nil, errs.Internal("table lock error", err)
	}
	if !locked {
		return nil, errs.ConcurrencyConflict("tables are being assigned by another operation")
	}
	defer func() {
		if err := s.Locks.UnlockTables(ctx, assignment.TableIDs, token); err != nil {
			s.Logger.Warn("LOCKS", fmt.Sprintf("failed to release table locks for booking %s: %v", bookingID, err))
		}
	}()

	var confirmed *models.Booking
	err = s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		report, err := s.Detector.Check(ctx, tx, assignment.TableIDs, booking.Window(), booking.ID)
		if err != nil {
			return err
		}
		if !report.Available {
			if explicit {
				return errs.Conflict("requested tables are already committed for the window").
					WithDetails(map[string]any{"conflicts": report.Conflicts})
			}
			return errs.ConcurrencyConflict("planned tables were claimed concurrently")
		}
		if err := tx.AssignTables(ctx, booking.ID, assignment.TableIDs); err != nil {
			return err
		}
		confirmed, err = s.Machine.Transition(ctx, tx, booking.ID, models.StatusConfirmed, actor, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooking("ACCEPT", booking.ID, fmt.Sprintf("confirmed on tables %v", confirmed.TableIDs))
	s.Notifier.BookingConfirmed(confirmed, actor, s.Clock.Now())
	return &AcceptResult{Booking: confirmed, Assignment: assignment}, nil
}

type DeclineResult struct {
	Booking *models.Booking `json:"booking"`
	// Populated when suggestions were requested: an assignment that was
	// available at the requested time, and/or nearby slots.
	SuggestedAssignment *models.Assignment   `json:"suggested_assignment,omitempty"`
	Suggestions         *models.Alternatives `json:"suggestions,omitempty"`
}

// DeclineRequest rejects a pending booking with a reason. When asked, it also
// computes alternatives to present back to the requester; that computation
// never mutates the booking.
func (s *Service) DeclineRequest(ctx context.Context, bookingID, actor, reason string, suggestAlternatives bool) (*DeclineResult, error) {
	if actor == "" {
		return nil, errs.Validation("actor is required")
	}
	if reason == "" {
		return nil, errs.Validation("a decline reason is required")
	}

	var declined *models.Booking
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		var err error
		declined, err = s.Machine.Transition(ctx, tx, bookingID, models.StatusDeclinedByRestaurant, actor,
			map[string]string{models.MetaReason: reason})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooking("DECLINE", bookingID, reason)
	s.Notifier.BookingDeclined(declined, actor, reason, s.Clock.Now())

	result := &DeclineResult{Booking: declined}
	if suggestAlternatives {
		assignment, err := s.Planner.Plan(ctx, s.Store, planner.Request{
			PartySize:        declined.PartySize,
			Window:           declined.Window(),
			ExcludeBookingID: declined.ID,
		})
		switch {
		case err == nil:
			result.SuggestedAssignment = assignment
		case errs.IsCode(err, errs.CodeNoAvailability):
			result.Suggestions = errs.As(err).Alternatives
		default:
			// Suggestions are best-effort; the decline itself already
			// committed.
			s.Logger.Warn("PLANNER", fmt.Sprintf("suggestion planning failed for booking %s: %v", bookingID, err))
		}
	}
	return result, nil
}

// ---------------- LIFECYCLE ----------------

// Transition applies a lifecycle transition atomically and, when it frees
// tables, pokes the waitlist.
func (s *Service) Transition(ctx context.Context, bookingID string, target models.BookingStatus, actor string, metadata map[string]string) (*models.Booking, error) {
	var prev models.BookingStatus
	var updated *models.Booking
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		current, err := tx.GetBookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		prev = current.Status
		updated, err = s.Machine.Transition(ctx, tx, bookingID, target, actor, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooking("TRANSITION", bookingID, fmt.Sprintf("%s -> %s by %s", prev, target, actor))
	s.Notifier.BookingTransition(updated, prev, actor, s.Clock.Now())

	if lifecycle.FreesResources(target) && s.Waitlist != nil {
		s.Waitlist.Trigger()
	}
	return updated, nil
}

// ---------------- READS ----------------

// CheckAvailability reports conflicts for the given tables and window.
func (s *Service) CheckAvailability(ctx context.Context, tableIDs []string, window models.Window, excludeBookingID string) (*availability.Report, error) {
	return s.Detector.Check(ctx, s.Store, tableIDs, window, excludeBookingID)
}

// PlanAssignment runs the planner without committing anything.
func (s *Service) PlanAssignment(ctx context.Context, req planner.Request) (*models.Assignment, error) {
	return s.Planner.Plan(ctx, s.Store, req)
}

// validateExplicitTables checks a caller-chosen table set against the
// catalog: tables must exist, be active, fit the party combined, and a pair
// must be combinable on both sides.
func (s *Service) validateExplicitTables(ctx context.Context, tableIDs []string, partySize int) (*models.Assignment, error) {
	if len(tableIDs) > 2 {
		return nil, errs.Validation("a booking may hold at most two tables")
	}
	seen := map[string]bool{}
	capacity := 0
	for _, id := range tableIDs {
		if seen[id] {
			return nil, errs.Validation("duplicate table id: " + id)
		}
		seen[id] = true

		table, err := s.Store.GetTableByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !table.Active {
			return nil, errs.Validation("table " + id + " is not active")
		}
		if len(tableIDs) == 2 && !table.Combinable {
			return nil, errs.Validation("table " + id + " is not combinable")
		}
		capacity += table.MaxCapacity
	}
	if capacity < partySize {
		return nil, errs.Validation(fmt.Sprintf("selected tables seat %d, party is %d", capacity, partySize))
	}
	return &models.Assignment{
		TableIDs:            tableIDs,
		RequiresCombination: len(tableIDs) == 2,
		Capacity:            capacity,
		Waste:               capacity - partySize,
	}, nil
}
