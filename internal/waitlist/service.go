// Package waitlist queues unmet booking requests and re-attempts assignment
// when resources free up. A sweep competes for tables exactly like a direct
// request and loses gracefully: entries stay queued on conflict.
package waitlist

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

// WaitlistActor identifies sweep-originated history entries.
const WaitlistActor = "waitlist"

type Locker interface {
	LockTables(ctx context.Context, tableIDs []string, token string) (bool, error)
	UnlockTables(ctx context.Context, tableIDs []string, token string) error
}

type Notifications interface {
	WaitlistPromoted(entry *models.WaitlistEntry, bookingID string, now time.Time)
}

type Service struct {
	Store    *store.DB
	Planner  *planner.Planner
	Detector *availability.Detector
	Locks    Locker
	Notifier Notifications
	Clock    clock.Clock
	Logger   *logger.Logger

	SweepInterval time.Duration
	trigger       chan struct{}
}

func NewService(st *store.DB, pl *planner.Planner, detector *availability.Detector, locks Locker, notifier Notifications, clk clock.Clock, log *logger.Logger, sweepInterval time.Duration) *Service {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Service{
		Store:         st,
		Planner:       pl,
		Detector:      detector,
		Locks:         locks,
		Notifier:      notifier,
		Clock:         clk,
		Logger:        log,
		SweepInterval: sweepInterval,
		trigger:       make(chan struct{}, 1),
	}
}

// ---------------- INTAKE ----------------

type JoinRequest struct {
	PartySize     int
	WindowStart   time.Time
	TurnTime      time.Duration
	PreferredType string
	Priority      bool
}

// Join queues a request that could not be satisfied right now.
func (s *Service) Join(ctx context.Context, req JoinRequest) (*models.WaitlistEntry, error) {
	if req.PartySize <= 0 {
		return nil, errs.Validation("party size must be positive")
	}
	if req.WindowStart.IsZero() {
		return nil, errs.Validation("desired window start is required")
	}
	if req.TurnTime <= 0 {
		return nil, errs.Validation("turn time must be positive")
	}

	entry := &models.WaitlistEntry{
		ID:              uuid.NewString(),
		PartySize:       req.PartySize,
		WindowStart:     req.WindowStart,
		TurnTimeMinutes: int(req.TurnTime / time.Minute),
		PreferredType:   req.PreferredType,
		Priority:        req.Priority,
		Status:          models.WaitlistQueued,
		CreatedAt:       s.Clock.Now(),
	}
	if err := s.Store.CreateWaitlistEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.Logger.LogWaitlist("JOIN", entry.ID, fmt.Sprintf("party of %d for %s", entry.PartySize, entry.WindowStart.Format(time.RFC3339)))
	return entry, nil
}

// ListQueued returns outstanding entries in serving order.
func (s *Service) ListQueued(ctx context.Context) ([]models.WaitlistEntry, error) {
	return s.Store.ListQueuedWaitlist(ctx)
}

// ---------------- SWEEP ----------------

// Trigger requests a sweep without blocking; coalesces with a pending one.
func (s *Service) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run sweeps on trigger and on a periodic interval until ctx ends.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
		case <-ticker.C:
		}
		if err := s.Sweep(ctx); err != nil {
			s.Logger.Error("WAITLIST", fmt.Sprintf("sweep failed: %v", err))
		}
	}
}

// Sweep walks the queue in serving order, expiring stale entries and
// promoting those the planner can now satisfy.
func (s *Service) Sweep(ctx context.Context) error {
	entries, err := s.Store.ListQueuedWaitlist(ctx)
	if err != nil {
		return err
	}
	now := s.Clock.Now()
	for i := range entries {
		entry := entries[i]
		if entry.Window().End.Before(now) {
			if err := s.Store.MarkWaitlistExpired(ctx, entry.ID); err != nil {
				s.Logger.Error("WAITLIST", fmt.Sprintf("failed to expire entry %s: %v", entry.ID, err))
				continue
			}
			s.Logger.LogWaitlist("EXPIRE", entry.ID, "desired window has passed")
			continue
		}
		if err := s.tryPromote(ctx, &entry); err != nil {
			// Losing the race or having no availability keeps the entry
			// queued for a future trigger.
			if errs.IsCode(err, errs.CodeNoAvailability) || errs.IsCode(err, errs.CodeConcurrencyConflict) {
				continue
			}
			s.Logger.Error("WAITLIST", fmt.Sprintf("promotion of entry %s failed: %v", entry.ID, err))
		}
	}
	return nil
}

// tryPromote converts one entry into a confirmed booking, competing for
// tables under the same lock-and-recheck discipline as a direct request.
func (s *Service) tryPromote(ctx context.Context, entry *models.WaitlistEntry) error {
	assignment, err := s.Planner.Plan(ctx, s.Store, planner.Request{
		PartySize:     entry.PartySize,
		Window:        entry.Window(),
		PreferredType: entry.PreferredType,
	})
	if err != nil {
		return err
	}

	token := uuid.NewString()
	locked, err := s.Locks.LockTables(ctx, assignment.TableIDs, token)
	if err != nil {
		return errs.Internal("table lock error", err)
	}
	if !locked {
		return errs.ConcurrencyConflict("tables are being assigned by another operation")
	}
	defer func() {
		if err := s.Locks.UnlockTables(ctx, assignment.TableIDs, token); err != nil {
			s.Logger.Warn("LOCKS", fmt.Sprintf("failed to release table locks for entry %s: %v", entry.ID, err))
		}
	}()

	now := s.Clock.Now()
	booking := &models.Booking{
		ID:              uuid.NewString(),
		PartySize:       entry.PartySize,
		StartTime:       entry.WindowStart,
		TurnTimeMinutes: entry.TurnTimeMinutes,
		Status:          lifecycle.InitialStatus(true),
		CreatedAt:       now,
		TableIDs:        assignment.TableIDs,
	}
	initial := models.StatusChange{
		ToStatus: booking.Status,
		At:       now,
		Actor:    WaitlistActor,
		Metadata: map[string]string{models.MetaSource: "waitlist:" + entry.ID},
	}

	err = s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		report, err := s.Detector.Check(ctx, tx, assignment.TableIDs, booking.Window(), booking.ID)
		if err != nil {
			return err
		}
		if !report.Available {
			return errs.ConcurrencyConflict("planned tables were claimed concurrently")
		}
		if err := tx.CreateBooking(ctx, booking, initial); err != nil {
			return err
		}
		return tx.MarkWaitlistPromoted(ctx, entry.ID, booking.ID)
	})
	if err != nil {
		return err
	}

	s.Logger.LogWaitlist("PROMOTE", entry.ID, fmt.Sprintf("booking %s on tables %v", booking.ID, booking.TableIDs))
	s.Notifier.WaitlistPromoted(entry, booking.ID, s.Clock.Now())
	return nil
}
