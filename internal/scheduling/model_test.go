package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"scheduled", "confirmed", "in_progress", "visited", "completed", "cancelled"} {
		st, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, string(st))
	}

	for _, raw := range []string{"", "SCHEDULED", "done", "pending", "cancelled "} {
		_, err := ParseStatus(raw)
		assert.ErrorIs(t, err, ErrUnknownStatus, "raw=%q", raw)
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status         Status
		terminal       bool
		active         bool
		needsAttention bool
	}{
		{StatusScheduled, false, true, true},
		{StatusConfirmed, false, true, true},
		{StatusInProgress, false, true, false},
		{StatusVisited, false, true, false},
		{StatusCompleted, true, false, false},
		{StatusCancelled, true, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.active, tt.status.IsActive())
			assert.Equal(t, tt.needsAttention, tt.status.NeedsAttention())
		})
	}
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, StatusScheduled.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusVisited.CanTransitionTo(StatusConfirmed), "no forward-only ordering below terminal states")
	assert.False(t, StatusCancelled.CanTransitionTo(StatusConfirmed))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*60+30), tod)
	assert.Equal(t, "09:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("09:61")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("half past nine")
	assert.Error(t, err)
}

func TestTimeOfDayAt(t *testing.T) {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.Local)
	tod := TimeOfDay(14*60 + 15)

	at := tod.At(day)
	assert.Equal(t, 14, at.Hour())
	assert.Equal(t, 15, at.Minute())
	assert.Equal(t, day.Day(), at.Day())

	assert.Equal(t, tod, TimeOfDayOf(at))
}

func TestAppointmentDerived(t *testing.T) {
	appt := Appointment{
		ID:              42,
		Date:            time.Date(2025, time.March, 10, 0, 0, 0, 0, time.Local),
		Start:           TimeOfDay(10 * 60),
		DurationMinutes: 45,
	}

	assert.Equal(t, "APT000042", appt.Code())
	assert.Equal(t, "10:45", appt.End().String())
	assert.Equal(t, 10, appt.StartAt().Hour())
}

func TestDefaultWindow(t *testing.T) {
	w := DefaultWindow()
	assert.Equal(t, "09:00", w.Start.String())
	assert.Equal(t, "17:00", w.End.String())
}
