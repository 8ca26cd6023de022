package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetrent/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// forward path
		{StatusReserved, StatusConfirmed, true},
		{StatusReserved, StatusActive, true},
		{StatusConfirmed, StatusActive, true},
		{StatusActive, StatusReturned, true},
		{StatusReturned, StatusCompleted, true},
		// cancellation before pickup only
		{StatusReserved, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusActive, StatusCancelled, false},
		{StatusReturned, StatusCancelled, false},
		// terminal states
		{StatusCompleted, StatusActive, false},
		{StatusCancelled, StatusReserved, false},
		// skipping
		{StatusReserved, StatusReturned, false},
		{StatusActive, StatusCompleted, false},
		{StatusNone, StatusActive, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCheckTransition(t *testing.T) {
	require.NoError(t, CheckTransition(StatusReserved, StatusActive))

	err := CheckTransition(StatusCompleted, StatusCancelled)
	var te *types.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "completed", te.From)
	assert.Equal(t, "cancelled", te.To)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusReturned.Terminal())

	assert.True(t, StatusReserved.Holding())
	assert.True(t, StatusActive.Holding())
	assert.False(t, StatusReturned.Holding())
}

func TestTransitionEvent(t *testing.T) {
	tr := Transition{
		BookingID: "b1",
		From:      StatusReserved,
		To:        StatusConfirmed,
		Actor:     types.Actor{ID: "s1", Role: types.RoleStaff},
	}
	ev := tr.Event()
	assert.Equal(t, types.RoleStaff, ev.ActorRole)
	require.NotNil(t, ev.ActorID)
	assert.Equal(t, types.ID("s1"), *ev.ActorID)

	sys := Transition{BookingID: "b1", Actor: types.SystemActor()}.Event()
	assert.Nil(t, sys.ActorID)
}
