package ride

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("  in_progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("DRIVING")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusScheduled.CanTransitionTo(StatusInProgress))
	assert.True(t, StatusScheduled.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusInProgress.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusInProgress.CanTransitionTo(StatusCancelled))

	assert.False(t, StatusScheduled.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusInProgress.CanTransitionTo(StatusScheduled))

	// terminal states allow no exits
	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		for _, next := range []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled} {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
}

func TestPassengerStatusTransitions(t *testing.T) {
	assert.True(t, PassengerPending.CanTransitionTo(PassengerApproved))
	assert.True(t, PassengerPending.CanTransitionTo(PassengerRejected))
	assert.True(t, PassengerPending.CanTransitionTo(PassengerCancelled))
	assert.True(t, PassengerApproved.CanTransitionTo(PassengerCancelled))

	assert.False(t, PassengerApproved.CanTransitionTo(PassengerRejected))
	assert.False(t, PassengerRejected.CanTransitionTo(PassengerApproved))
	assert.False(t, PassengerCancelled.CanTransitionTo(PassengerPending))
}
