package internships

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeStatusAllowedMoves(t *testing.T) {
	cases := []struct {
		from ApplicationStatus
		to   ApplicationStatus
	}{
		{StatusApplied, StatusReviewing},
		{StatusApplied, StatusRejected},
		{StatusApplied, StatusWithdrawn},
		{StatusReviewing, StatusAccepted},
		{StatusReviewing, StatusRejected},
		{StatusReviewing, StatusWithdrawn},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			got, err := changeStatus(tc.from, tc.to)
			require.NoError(t, err)
			assert.Equal(t, tc.to, got)
		})
	}
}

func TestChangeStatusRejectedMoves(t *testing.T) {
	cases := []struct {
		from ApplicationStatus
		to   ApplicationStatus
	}{
		{StatusApplied, StatusAccepted},
		{StatusAccepted, StatusRejected},
		{StatusRejected, StatusReviewing},
		{StatusWithdrawn, StatusApplied},
		{StatusReviewing, StatusApplied},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			got, err := changeStatus(tc.from, tc.to)
			require.ErrorIs(t, err, ErrInvalidStatusChange)
			assert.Equal(t, tc.from, got)
		})
	}
}

func TestChangeStatusRejectsEmptyTarget(t *testing.T) {
	got, err := changeStatus(StatusApplied, "")
	require.ErrorIs(t, err, ErrInvalidStatusChange)
	assert.Equal(t, StatusApplied, got)
}

func TestChangeStatusRejectsUnknownSource(t *testing.T) {
	_, err := changeStatus(ApplicationStatus("shortlisted"), StatusAccepted)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusApplied.IsTerminal())
	assert.False(t, StatusReviewing.IsTerminal())
	assert.True(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusWithdrawn.IsTerminal())
	assert.False(t, ApplicationStatus("shortlisted").IsTerminal())
}
