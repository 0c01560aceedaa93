package scheduling

import "time"

const DefaultSlotMinutes = 30

// GenerateSlots enumerates the start-time grid inside a working-hours window.
// The grid walks from the window start in granularity steps and includes the
// end boundary when it lands exactly on the grid. A degenerate window or
// granularity is normalized to the defaults instead of failing.
func GenerateSlots(window AvailabilityWindow, granularityMinutes int) []TimeOfDay {
	if granularityMinutes <= 0 {
		granularityMinutes = DefaultSlotMinutes
	}
	if window.Start >= window.End {
		window = DefaultWindow()
	}

	var grid []TimeOfDay
	for t := window.Start; t <= window.End; t = t.Add(granularityMinutes) {
		grid = append(grid, t)
	}
	return grid
}

// overlaps applies the half-open interval rule: [s1, s1+d1) and [s2, s2+d2)
// conflict iff s1 < s2+d2 && s2 < s1+d1. Touching endpoints do not conflict.
func overlaps(s1 TimeOfDay, d1 int, s2 TimeOfDay, d2 int) bool {
	return s1 < s2.Add(d2) && s2 < s1.Add(d1)
}

// hasConflict reports whether the proposed window collides with any of the
// given appointments. Callers pass active appointments only; cancelled and
// completed records never block a window.
func hasConflict(existing []Appointment, start TimeOfDay, durationMinutes int) bool {
	for i := range existing {
		if !existing[i].Status.IsActive() {
			continue
		}
		if overlaps(start, durationMinutes, existing[i].Start, existing[i].DurationMinutes) {
			return true
		}
	}
	return false
}

// dayOf truncates a timestamp to its clinic-local calendar day.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
