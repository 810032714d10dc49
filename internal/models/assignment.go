package models

import "time"

// Assignment is a successful planner result: one table, or an ordered pair of
// combinable tables.
type Assignment struct {
	TableIDs            []string `json:"table_ids"`
	RequiresCombination bool     `json:"requires_combination"`
	// Combined max capacity of the assigned tables.
	Capacity int `json:"capacity"`
	// Excess capacity beyond the requested party size.
	Waste int `json:"waste"`
}

// Alternatives is attached to a no-availability result: nearby start times
// that would succeed for the same party size, plus the largest capacity that
// was available at the requested time, if any.
type Alternatives struct {
	Slots []time.Time `json:"slots,omitempty"`
	// Largest single-table or combination capacity available at the
	// requested time. Zero when nothing was free at all.
	LargestCapacity int      `json:"largest_capacity,omitempty"`
	LargestTableIDs []string `json:"largest_table_ids,omitempty"`
}
