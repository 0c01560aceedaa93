package scheduling

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusVisited    Status = "visited"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var statuses = map[Status]bool{
	StatusScheduled:  true,
	StatusConfirmed:  true,
	StatusInProgress: true,
	StatusVisited:    true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

// ParseStatus validates a caller-supplied status string.
func ParseStatus(raw string) (Status, error) {
	st := Status(raw)
	if !statuses[st] {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return st, nil
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether the appointment still blocks its time window.
// Completed and cancelled appointments free the window.
func (s Status) IsActive() bool {
	return !s.IsTerminal()
}

// NeedsAttention reports whether the appointment is still waiting on the
// clinic (booked but not yet seen).
func (s Status) NeedsAttention() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// CanTransitionTo allows any move except out of a terminal status.
func (s Status) CanTransitionTo(to Status) bool {
	return !s.IsTerminal()
}

// TimeOfDay is a clinic-local wall clock time expressed as minutes since
// midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	return TimeOfDay(h*60 + m), nil
}

// TimeOfDayOf extracts the wall clock component of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// At anchors the time of day on a calendar day.
func (t TimeOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// AvailabilityWindow is a doctor's working hours for a day.
type AvailabilityWindow struct {
	Start TimeOfDay
	End   TimeOfDay
}

// DefaultWindow is the fallback used when a doctor has no configured hours.
func DefaultWindow() AvailabilityWindow {
	return AvailabilityWindow{Start: 9 * 60, End: 17 * 60}
}

type Doctor struct {
	ID            int64
	Name          string
	Specialty     string
	AvailableFrom *TimeOfDay
	AvailableTo   *TimeOfDay
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Patient struct {
	ID        int64
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID        int64
	DoctorID  int64
	PatientID int64

	// Snapshots taken at booking time; later doctor profile edits do not
	// rewrite history.
	DoctorName      string
	DoctorSpecialty string

	Date            time.Time // calendar day, clinic-local midnight
	Start           TimeOfDay
	DurationMinutes int
	Status          Status
	Reason          string
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// End is the exclusive end of the booked window.
func (a *Appointment) End() TimeOfDay {
	return a.Start.Add(a.DurationMinutes)
}

// StartAt is the full start timestamp on the appointment's day.
func (a *Appointment) StartAt() time.Time {
	return a.Start.At(a.Date)
}

// Code is the human-readable reference shown on screens and printouts. It is
// display only, never a lookup key.
func (a *Appointment) Code() string {
	return fmt.Sprintf("APT%06d", a.ID)
}

// Slot is a candidate bookable start time on the working-hours grid. Slots
// are computed on demand and never stored.
type Slot struct {
	Start     TimeOfDay
	Available bool
	Past      bool
}
