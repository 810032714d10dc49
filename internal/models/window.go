package models

import "time"

// Window is a half-open time interval [Start, End). Back-to-back windows do
// not overlap.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewWindow(start time.Time, turn time.Duration) Window {
	return Window{Start: start, End: start.Add(turn)}
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps reports whether two half-open intervals intersect.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Valid reports whether the window has a positive duration.
func (w Window) Valid() bool {
	return w.End.After(w.Start)
}

// Shift returns the window moved by the given offset, keeping its duration.
func (w Window) Shift(offset time.Duration) Window {
	return Window{Start: w.Start.Add(offset), End: w.End.Add(offset)}
}
