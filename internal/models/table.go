package models

import (
	"github.com/uptrace/bun"
)

// Table is the read model of a physical seating resource. It is owned by the
// management surface; the engine only ever reads it.
type Table struct {
	bun.BaseModel `bun:"table:tables"`

	ID            string  `bun:"id,pk" json:"id"`
	Number        int     `bun:"number,notnull" json:"number"`
	MinCapacity   int     `bun:"min_capacity,notnull" json:"min_capacity"`
	MaxCapacity   int     `bun:"max_capacity,notnull" json:"max_capacity"`
	Type          string  `bun:"type,nullzero" json:"type,omitempty"`
	Combinable    bool    `bun:"combinable" json:"combinable"`
	PriorityScore float64 `bun:"priority_score" json:"priority_score"`
	Active        bool    `bun:"active" json:"active"`
}

// Fits reports whether a party fits the table's capacity range on its own.
func (t *Table) Fits(partySize int) bool {
	return t.MinCapacity <= partySize && partySize <= t.MaxCapacity
}

// Waste is the excess seating capacity beyond the requested party size.
func (t *Table) Waste(partySize int) int {
	return t.MaxCapacity - partySize
}
