// Package planner matches a party to the best single table or two-table
// combination for a requested window. Search is bounded: the alternative-slot
// scan never leaves a fixed horizon around the requested time.
package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ms-reservations/internal/availability"
	"ms-reservations/internal/errs"
	"ms-reservations/internal/models"
)

const (
	DefaultSlotStep    = 15 * time.Minute
	DefaultScanHorizon = 2 * time.Hour

	// Cap on the number of alternative slots offered on failure.
	maxAlternativeSlots = 4
)

// View is the slice of the store the planner reads: the table catalog plus
// the active bookings consulted through the conflict detector.
type View interface {
	availability.BookingView
	ListActiveTables(ctx context.Context) ([]models.Table, error)
}

type Request struct {
	PartySize        int
	Window           models.Window
	PreferredType    string
	ExcludeBookingID string
}

// Planner is stateless; catalog and booking state come in per call through
// the injected view so the same instance serves direct requests, transaction
// re-checks and waitlist sweeps alike.
type Planner struct {
	Detector    *availability.Detector
	SlotStep    time.Duration
	ScanHorizon time.Duration
}

func NewPlanner(detector *availability.Detector, slotStep, scanHorizon time.Duration) *Planner {
	if slotStep <= 0 {
		slotStep = DefaultSlotStep
	}
	if scanHorizon <= 0 {
		scanHorizon = DefaultScanHorizon
	}
	return &Planner{Detector: detector, SlotStep: slotStep, ScanHorizon: scanHorizon}
}

// Plan returns the best assignment for the request, or a NO_AVAILABILITY
// error carrying nearby slots that would succeed and the largest capacity
// free at the requested time.
func (p *Planner) Plan(ctx context.Context, view View, req Request) (*models.Assignment, error) {
	if req.PartySize <= 0 {
		return nil, errs.Validation("party size must be positive")
	}
	if !req.Window.Valid() {
		return nil, errs.Validation("window must have a positive duration")
	}

	tables, err := view.ListActiveTables(ctx)
	if err != nil {
		return nil, err
	}

	assignment, largest, err := p.planAt(ctx, view, tables, req, req.Window)
	if err != nil {
		return nil, err
	}
	if assignment != nil {
		return assignment, nil
	}

	alts, err := p.alternatives(ctx, view, tables, req)
	if err != nil {
		return nil, err
	}
	alts.LargestCapacity = largest.capacity
	alts.LargestTableIDs = largest.tableIDs
	return nil, errs.NoAvailability(
		fmt.Sprintf("no table or combination can seat a party of %d in the requested window", req.PartySize),
		alts,
	)
}

// candidate is a scored single table or pair.
type candidate struct {
	tableIDs    []string
	capacity    int
	waste       int
	typeMatches int
	priority    float64
	minNumber   int
	maxNumber   int
	combination bool
}

// better orders candidates: least waste, then preferred-type matches, then
// higher priority score, then lower table number.
func better(a, b candidate) bool {
	if a.waste != b.waste {
		return a.waste < b.waste
	}
	if a.typeMatches != b.typeMatches {
		return a.typeMatches > b.typeMatches
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	if a.minNumber != b.minNumber {
		return a.minNumber < b.minNumber
	}
	return a.maxNumber < b.maxNumber
}

type capacityNote struct {
	capacity int
	tableIDs []string
}

// planAt runs the single-table and combination passes for one window. It also
// reports the largest capacity available in that window so a failed plan can
// tell the caller what would have fit.
func (p *Planner) planAt(ctx context.Context, view View, tables []models.Table, req Request, window models.Window) (*models.Assignment, capacityNote, error) {
	available, err := p.availableTables(ctx, view, tables, window, req.ExcludeBookingID)
	if err != nil {
		return nil, capacityNote{}, err
	}

	note := largestAvailable(available)

	// Single-table pass.
	var singles []candidate
	for _, t := range available {
		if !t.Fits(req.PartySize) {
			continue
		}
		singles = append(singles, candidate{
			tableIDs:    []string{t.ID},
			capacity:    t.MaxCapacity,
			waste:       t.Waste(req.PartySize),
			typeMatches: typeMatch(t, req.PreferredType),
			priority:    t.PriorityScore,
			minNumber:   t.Number,
			maxNumber:   t.Number,
		})
	}
	if best := pickBest(singles); best != nil {
		return &models.Assignment{
			TableIDs: best.tableIDs,
			Capacity: best.capacity,
			Waste:    best.waste,
		}, note, nil
	}

	// Combination pass: unordered pairs of combinable tables, run only when
	// no single table fits.
	var combinable []models.Table
	for _, t := range available {
		if t.Combinable {
			combinable = append(combinable, t)
		}
	}
	var pairs []candidate
	for i := 0; i < len(combinable); i++ {
		for j := i + 1; j < len(combinable); j++ {
			a, b := combinable[i], combinable[j]
			combined := a.MaxCapacity + b.MaxCapacity
			if combined < req.PartySize {
				continue
			}
			first, second := a, b
			if second.Number < first.Number {
				first, second = second, first
			}
			pairs = append(pairs, candidate{
				tableIDs:    []string{first.ID, second.ID},
				capacity:    combined,
				waste:       combined - req.PartySize,
				typeMatches: typeMatch(a, req.PreferredType) + typeMatch(b, req.PreferredType),
				priority:    a.PriorityScore + b.PriorityScore,
				minNumber:   first.Number,
				maxNumber:   second.Number,
				combination: true,
			})
		}
	}
	if best := pickBest(pairs); best != nil {
		return &models.Assignment{
			TableIDs:            best.tableIDs,
			RequiresCombination: true,
			Capacity:            best.capacity,
			Waste:               best.waste,
		}, note, nil
	}

	return nil, note, nil
}

// alternatives scans nearby slots at a fixed step inside the horizon,
// nearest offsets first with the later slot preferred on ties.
func (p *Planner) alternatives(ctx context.Context, view View, tables []models.Table, req Request) (*models.Alternatives, error) {
	alts := &models.Alternatives{}
	steps := int(p.ScanHorizon / p.SlotStep)
	for k := 1; k <= steps && len(alts.Slots) < maxAlternativeSlots; k++ {
		for _, sign := range []time.Duration{1, -1} {
			if len(alts.Slots) >= maxAlternativeSlots {
				break
			}
			shifted := req.Window.Shift(sign * time.Duration(k) * p.SlotStep)
			assignment, _, err := p.planAt(ctx, view, tables, req, shifted)
			if err != nil {
				return nil, err
			}
			if assignment != nil {
				alts.Slots = append(alts.Slots, shifted.Start)
			}
		}
	}
	return alts, nil
}

// availableTables filters the active tables down to those with no conflicting
// booking in the window.
func (p *Planner) availableTables(ctx context.Context, view View, tables []models.Table, window models.Window, excludeBookingID string) ([]models.Table, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(tables))
	for _, t := range tables {
		ids = append(ids, t.ID)
	}
	report, err := p.Detector.Check(ctx, view, ids, window, excludeBookingID)
	if err != nil {
		return nil, err
	}
	var available []models.Table
	for _, t := range tables {
		if len(report.ByTable[t.ID]) == 0 {
			available = append(available, t)
		}
	}
	return available, nil
}

func pickBest(candidates []candidate) *candidate {
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return better(candidates[i], candidates[j])
	})
	return &candidates[0]
}

func typeMatch(t models.Table, preferred string) int {
	if preferred != "" && t.Type == preferred {
		return 1
	}
	return 0
}

// largestAvailable notes the biggest single table or combinable pair free in
// the window, independent of the requested party size.
func largestAvailable(available []models.Table) capacityNote {
	note := capacityNote{}
	for _, t := range available {
		if t.MaxCapacity > note.capacity {
			note = capacityNote{capacity: t.MaxCapacity, tableIDs: []string{t.ID}}
		}
	}
	var combinable []models.Table
	for _, t := range available {
		if t.Combinable {
			combinable = append(combinable, t)
		}
	}
	for i := 0; i < len(combinable); i++ {
		for j := i + 1; j < len(combinable); j++ {
			a, b := combinable[i], combinable[j]
			if a.MaxCapacity+b.MaxCapacity > note.capacity {
				first, second := a, b
				if second.Number < first.Number {
					first, second = second, first
				}
				note = capacityNote{
					capacity: a.MaxCapacity + b.MaxCapacity,
					tableIDs: []string{first.ID, second.ID},
				}
			}
		}
	}
	return note
}
