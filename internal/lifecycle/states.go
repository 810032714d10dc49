// Package lifecycle owns the booking status graph and applies transitions.
// The graph is data; the machine validates edges, runs guards and appends
// history.
package lifecycle

import "ms-reservations/internal/models"

// diningOrder is the strictly ordered forward progression. Each service step
// advances exactly one stage; completed may additionally be reached from any
// seated-or-later stage when courses go unrecorded.
var diningOrder = []models.BookingStatus{
	models.StatusConfirmed,
	models.StatusArrived,
	models.StatusSeated,
	models.StatusOrdered,
	models.StatusAppetizers,
	models.StatusMainCourse,
	models.StatusDessert,
	models.StatusPayment,
	models.StatusCompleted,
}

// interrupts are legal from every non-terminal state.
var interrupts = []models.BookingStatus{
	models.StatusCancelledByUser,
	models.StatusCancelledByRestaurant,
	models.StatusNoShow,
}

var transitions = buildTransitions()

func buildTransitions() map[models.BookingStatus]map[models.BookingStatus]bool {
	graph := map[models.BookingStatus]map[models.BookingStatus]bool{}
	add := func(from, to models.BookingStatus) {
		if graph[from] == nil {
			graph[from] = map[models.BookingStatus]bool{}
		}
		graph[from][to] = true
	}

	// Request resolution.
	add(models.StatusPending, models.StatusConfirmed)
	add(models.StatusPending, models.StatusDeclinedByRestaurant)
	add(models.StatusPending, models.StatusAutoDeclined)

	// Forward dining progression, one stage at a time.
	for i := 0; i < len(diningOrder)-1; i++ {
		add(diningOrder[i], diningOrder[i+1])
	}
	// Completed is reachable from any seated-or-later stage.
	for i := indexOf(models.StatusSeated); i < len(diningOrder)-1; i++ {
		add(diningOrder[i], models.StatusCompleted)
	}

	// Cancellation and no-show from every non-terminal state.
	nonTerminal := append([]models.BookingStatus{models.StatusPending}, diningOrder[:len(diningOrder)-1]...)
	for _, from := range nonTerminal {
		for _, to := range interrupts {
			add(from, to)
		}
	}
	return graph
}

func indexOf(s models.BookingStatus) int {
	for i, status := range diningOrder {
		if status == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether from → to is an edge of the legal graph.
func CanTransition(from, to models.BookingStatus) bool {
	return transitions[from][to]
}

// LegalTargets returns the statuses reachable from the given one, for
// surfacing in error payloads and UIs.
func LegalTargets(from models.BookingStatus) []models.BookingStatus {
	var targets []models.BookingStatus
	for _, to := range allStatuses {
		if transitions[from][to] {
			targets = append(targets, to)
		}
	}
	return targets
}

var allStatuses = []models.BookingStatus{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusArrived,
	models.StatusSeated,
	models.StatusOrdered,
	models.StatusAppetizers,
	models.StatusMainCourse,
	models.StatusDessert,
	models.StatusPayment,
	models.StatusCompleted,
	models.StatusNoShow,
	models.StatusCancelledByUser,
	models.StatusCancelledByRestaurant,
	models.StatusDeclinedByRestaurant,
	models.StatusAutoDeclined,
}

// IsKnown reports whether the status is part of the lifecycle at all.
func IsKnown(s models.BookingStatus) bool {
	for _, status := range allStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// requiresReason marks the targets whose transitions must carry a reason in
// metadata.
var requiresReason = map[models.BookingStatus]bool{
	models.StatusCancelledByUser:       true,
	models.StatusCancelledByRestaurant: true,
	models.StatusDeclinedByRestaurant:  true,
	models.StatusAutoDeclined:          true,
}

// RequiresReason reports whether entering the status needs a metadata reason.
func RequiresReason(target models.BookingStatus) bool {
	return requiresReason[target]
}

// FreesResources reports whether entering the status releases the booking's
// tables (used to trigger waitlist sweeps).
func FreesResources(target models.BookingStatus) bool {
	switch target {
	case models.StatusCompleted, models.StatusNoShow,
		models.StatusCancelledByUser, models.StatusCancelledByRestaurant:
		return true
	}
	return false
}
