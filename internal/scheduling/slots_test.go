package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

func TestGenerateSlotsFullDay(t *testing.T) {
	window := AvailabilityWindow{Start: mustTime(t, "09:00"), End: mustTime(t, "17:00")}

	grid := GenerateSlots(window, 30)

	require.Len(t, grid, 17, "09:00 through 17:00 inclusive at 30 minutes")
	assert.Equal(t, "09:00", grid[0].String())
	assert.Equal(t, "09:30", grid[1].String())
	assert.Equal(t, "17:00", grid[len(grid)-1].String())
}

func TestGenerateSlotsEndBoundaryOffGrid(t *testing.T) {
	// End that does not land on the grid is not emitted.
	window := AvailabilityWindow{Start: mustTime(t, "09:00"), End: mustTime(t, "17:10")}

	grid := GenerateSlots(window, 30)

	assert.Equal(t, "17:00", grid[len(grid)-1].String())
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	window := AvailabilityWindow{Start: mustTime(t, "08:00"), End: mustTime(t, "12:00")}

	first := GenerateSlots(window, 20)
	second := GenerateSlots(window, 20)

	assert.Equal(t, first, second)
}

func TestGenerateSlotsNormalizesBadInput(t *testing.T) {
	tests := []struct {
		name        string
		window      AvailabilityWindow
		granularity int
	}{
		{
			name:        "inverted window",
			window:      AvailabilityWindow{Start: 17 * 60, End: 9 * 60},
			granularity: 30,
		},
		{
			name:        "empty window",
			window:      AvailabilityWindow{},
			granularity: 30,
		},
		{
			name:        "zero granularity",
			window:      AvailabilityWindow{Start: 9 * 60, End: 17 * 60},
			granularity: 0,
		},
		{
			name:        "negative granularity",
			window:      AvailabilityWindow{Start: 9 * 60, End: 17 * 60},
			granularity: -15,
		},
	}

	want := GenerateSlots(DefaultWindow(), DefaultSlotMinutes)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, GenerateSlots(tt.window, tt.granularity))
		})
	}
}

func TestOverlaps(t *testing.T) {
	nine := TimeOfDay(9 * 60)

	tests := []struct {
		name string
		s1   TimeOfDay
		d1   int
		s2   TimeOfDay
		d2   int
		want bool
	}{
		{"identical windows", nine, 30, nine, 30, true},
		{"contained window", nine, 60, nine.Add(15), 15, true},
		{"partial overlap", nine, 30, nine.Add(15), 30, true},
		{"touching endpoints", nine, 30, nine.Add(30), 30, false},
		{"touching endpoints reversed", nine.Add(30), 30, nine, 30, false},
		{"disjoint", nine, 30, nine.Add(120), 30, false},
		{"one minute overlap", nine, 31, nine.Add(30), 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overlaps(tt.s1, tt.d1, tt.s2, tt.d2))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, overlaps(tt.s2, tt.d2, tt.s1, tt.d1))
		})
	}
}

func TestHasConflictIgnoresInactive(t *testing.T) {
	nine := TimeOfDay(9 * 60)
	existing := []Appointment{
		{Start: nine, DurationMinutes: 30, Status: StatusCancelled},
		{Start: nine, DurationMinutes: 30, Status: StatusCompleted},
	}

	assert.False(t, hasConflict(existing, nine, 30), "terminal appointments free the window")

	existing = append(existing, Appointment{Start: nine, DurationMinutes: 30, Status: StatusConfirmed})
	assert.True(t, hasConflict(existing, nine, 30))
}
