package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aalok376/GharBata-sub001/internal/domain"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusInProgress, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusRescheduled, true},
		{StatusConfirmed, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusRescheduled, false},
		{StatusRescheduled, StatusConfirmed, true},
		{StatusRescheduled, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.False(t, StatusRescheduled.IsTerminal())
}

func TestCanBeCancelled(t *testing.T) {
	assert.True(t, StatusPending.CanBeCancelled())
	assert.True(t, StatusConfirmed.CanBeCancelled())
	assert.True(t, StatusInProgress.CanBeCancelled())
	assert.True(t, StatusRescheduled.CanBeCancelled())
	assert.False(t, StatusCompleted.CanBeCancelled())
	assert.False(t, StatusCancelled.CanBeCancelled())
}

func TestParseBookingStatus(t *testing.T) {
	status, err := ParseBookingStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, StatusInProgress, status)

	_, err = ParseBookingStatus("shipped")
	assert.Error(t, err)
}

func TestActiveStatuses(t *testing.T) {
	active := ActiveStatuses()
	assert.ElementsMatch(t, []BookingStatus{StatusPending, StatusConfirmed, StatusInProgress}, active)

	conflict := RescheduleConflictStatuses()
	assert.Contains(t, conflict, StatusRescheduled)
	assert.Len(t, conflict, 4)
}

func TestValidTimeOfDay(t *testing.T) {
	assert.True(t, ValidTimeOfDay("00:00"))
	assert.True(t, ValidTimeOfDay("09:30"))
	assert.True(t, ValidTimeOfDay("23:59"))
	assert.False(t, ValidTimeOfDay("24:00"))
	assert.False(t, ValidTimeOfDay("9:30"))
	assert.False(t, ValidTimeOfDay("09:60"))
	assert.False(t, ValidTimeOfDay("morning"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), d)

	for _, in := range []string{"2026-99-99", "15-09-2026", "tomorrow", ""} {
		_, err := ParseDate(in)
		assert.True(t, domain.IsValidation(err), "input %q", in)
	}
}
