package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitionTable(t *testing.T) {
	cases := []struct {
		from    Phase
		to      Phase
		allowed bool
	}{
		{PhaseUnknown, PhaseAuthenticating, true},
		{PhaseUnknown, PhaseUnauthenticated, true},
		{PhaseUnknown, PhaseAuthenticated, false},
		{PhaseAuthenticating, PhaseAuthenticated, true},
		{PhaseAuthenticating, PhaseUnauthenticated, true},
		{PhaseAuthenticating, PhaseUnknown, false},
		{PhaseAuthenticated, PhaseAuthenticating, true},
		{PhaseAuthenticated, PhaseUnauthenticated, true},
		{PhaseAuthenticated, PhaseUnknown, false},
		{PhaseUnauthenticated, PhaseAuthenticating, true},
		{PhaseUnauthenticated, PhaseAuthenticated, false},
		{PhaseUnauthenticated, PhaseUnknown, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, canChangePhase(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestSelfTransitionIsAlwaysAllowed(t *testing.T) {
	for _, phase := range []Phase{PhaseUnknown, PhaseAuthenticating, PhaseAuthenticated, PhaseUnauthenticated} {
		assert.True(t, canChangePhase(phase, phase), "%s -> %s", phase, phase)
	}
}

func TestChangePhaseRejectsInvalidMove(t *testing.T) {
	phase, err := changePhase(PhaseUnknown, PhaseAuthenticated, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPhaseChange)
	assert.Equal(t, PhaseUnknown, phase)
}

func TestChangePhaseForceBypassesTable(t *testing.T) {
	phase, err := changePhase(PhaseUnknown, PhaseAuthenticated, true)
	require.NoError(t, err)
	assert.Equal(t, PhaseAuthenticated, phase)
}

func TestChangePhaseRejectsEmptyTarget(t *testing.T) {
	_, err := changePhase(PhaseAuthenticated, "", true)
	assert.Error(t, err)
}
