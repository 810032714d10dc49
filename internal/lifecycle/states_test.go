package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-reservations/internal/lifecycle"
	"ms-reservations/internal/models"
)

func TestPendingTransitions(t *testing.T) {
	assert.True(t, lifecycle.CanTransition(models.StatusPending, models.StatusConfirmed))
	assert.True(t, lifecycle.CanTransition(models.StatusPending, models.StatusDeclinedByRestaurant))
	assert.True(t, lifecycle.CanTransition(models.StatusPending, models.StatusAutoDeclined))
	assert.True(t, lifecycle.CanTransition(models.StatusPending, models.StatusCancelledByUser))

	// No skipping the confirmation step.
	assert.False(t, lifecycle.CanTransition(models.StatusPending, models.StatusSeated))
	assert.False(t, lifecycle.CanTransition(models.StatusPending, models.StatusArrived))
	assert.False(t, lifecycle.CanTransition(models.StatusPending, models.StatusCompleted))
}

func TestForwardProgressionIsOneStage(t *testing.T) {
	assert.True(t, lifecycle.CanTransition(models.StatusConfirmed, models.StatusArrived))
	assert.True(t, lifecycle.CanTransition(models.StatusArrived, models.StatusSeated))
	assert.True(t, lifecycle.CanTransition(models.StatusSeated, models.StatusOrdered))
	assert.True(t, lifecycle.CanTransition(models.StatusOrdered, models.StatusAppetizers))
	assert.True(t, lifecycle.CanTransition(models.StatusAppetizers, models.StatusMainCourse))
	assert.True(t, lifecycle.CanTransition(models.StatusMainCourse, models.StatusDessert))
	assert.True(t, lifecycle.CanTransition(models.StatusDessert, models.StatusPayment))
	assert.True(t, lifecycle.CanTransition(models.StatusPayment, models.StatusCompleted))

	// No stage skipping and no moving backwards.
	assert.False(t, lifecycle.CanTransition(models.StatusConfirmed, models.StatusSeated))
	assert.False(t, lifecycle.CanTransition(models.StatusSeated, models.StatusMainCourse))
	assert.False(t, lifecycle.CanTransition(models.StatusSeated, models.StatusArrived))
	assert.False(t, lifecycle.CanTransition(models.StatusPayment, models.StatusDessert))
}

func TestCompletedFromSeatedOrLater(t *testing.T) {
	// A party can settle up without every course being recorded.
	for _, from := range []models.BookingStatus{
		models.StatusSeated,
		models.StatusOrdered,
		models.StatusAppetizers,
		models.StatusMainCourse,
		models.StatusDessert,
		models.StatusPayment,
	} {
		assert.True(t, lifecycle.CanTransition(from, models.StatusCompleted), "completed should be reachable from %s", from)
	}

	assert.False(t, lifecycle.CanTransition(models.StatusConfirmed, models.StatusCompleted))
	assert.False(t, lifecycle.CanTransition(models.StatusArrived, models.StatusCompleted))
}

func TestInterruptsFromNonTerminalStates(t *testing.T) {
	nonTerminal := []models.BookingStatus{
		models.StatusPending,
		models.StatusConfirmed,
		models.StatusArrived,
		models.StatusSeated,
		models.StatusOrdered,
		models.StatusAppetizers,
		models.StatusMainCourse,
		models.StatusDessert,
		models.StatusPayment,
	}
	for _, from := range nonTerminal {
		assert.True(t, lifecycle.CanTransition(from, models.StatusCancelledByUser), "cancel_by_user from %s", from)
		assert.True(t, lifecycle.CanTransition(from, models.StatusCancelledByRestaurant), "cancel_by_restaurant from %s", from)
		assert.True(t, lifecycle.CanTransition(from, models.StatusNoShow), "no_show from %s", from)
	}
}

func TestDeclineOnlyFromPending(t *testing.T) {
	for _, from := range []models.BookingStatus{
		models.StatusConfirmed,
		models.StatusSeated,
		models.StatusPayment,
	} {
		assert.False(t, lifecycle.CanTransition(from, models.StatusDeclinedByRestaurant), "decline from %s", from)
		assert.False(t, lifecycle.CanTransition(from, models.StatusAutoDeclined), "auto-decline from %s", from)
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, from := range models.TerminalStatuses {
		assert.Empty(t, lifecycle.LegalTargets(from), "terminal status %s must have no outgoing transitions", from)
	}
}

func TestLegalTargets(t *testing.T) {
	targets := lifecycle.LegalTargets(models.StatusPending)
	assert.ElementsMatch(t, []models.BookingStatus{
		models.StatusConfirmed,
		models.StatusDeclinedByRestaurant,
		models.StatusAutoDeclined,
		models.StatusCancelledByUser,
		models.StatusCancelledByRestaurant,
		models.StatusNoShow,
	}, targets)
}

func TestRequiresReason(t *testing.T) {
	assert.True(t, lifecycle.RequiresReason(models.StatusCancelledByUser))
	assert.True(t, lifecycle.RequiresReason(models.StatusCancelledByRestaurant))
	assert.True(t, lifecycle.RequiresReason(models.StatusDeclinedByRestaurant))
	assert.True(t, lifecycle.RequiresReason(models.StatusAutoDeclined))
	assert.False(t, lifecycle.RequiresReason(models.StatusConfirmed))
	assert.False(t, lifecycle.RequiresReason(models.StatusNoShow))
}

func TestFreesResources(t *testing.T) {
	assert.True(t, lifecycle.FreesResources(models.StatusCompleted))
	assert.True(t, lifecycle.FreesResources(models.StatusNoShow))
	assert.True(t, lifecycle.FreesResources(models.StatusCancelledByUser))
	assert.True(t, lifecycle.FreesResources(models.StatusCancelledByRestaurant))

	// Declines never held tables in the first place.
	assert.False(t, lifecycle.FreesResources(models.StatusDeclinedByRestaurant))
	assert.False(t, lifecycle.FreesResources(models.StatusAutoDeclined))
	assert.False(t, lifecycle.FreesResources(models.StatusSeated))
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, models.StatusPending, lifecycle.InitialStatus(false))
	assert.Equal(t, models.StatusConfirmed, lifecycle.InitialStatus(true))
}
