package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// StoreError marks an infrastructure failure (store unreachable, timeout) as
// distinct from domain outcomes like a booking conflict. Safe to retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("appointment store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store is the durable home of appointment records.
type Store interface {
	// GetActiveAppointments returns appointments that still block their
	// window (scheduled, confirmed, in progress) for a doctor's day.
	GetActiveAppointments(ctx context.Context, doctorID int64, day time.Time) ([]Appointment, error)

	// ListAppointmentsForDay returns every appointment for a doctor's day
	// regardless of status, ordered by start time.
	ListAppointmentsForDay(ctx context.Context, doctorID int64, day time.Time) ([]Appointment, error)

	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)

	// InsertAppointment persists a new record atomically and assigns its id.
	InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error)

	// UpdateAppointmentStatus moves the record from one status to another as
	// a compare-and-set; a miss reports ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error)
}

// Directory resolves doctor and patient identities and a doctor's configured
// working hours. Read-only from the engine's perspective.
type Directory interface {
	GetDoctorByID(ctx context.Context, id int64) (*Doctor, error)
	GetPatientByID(ctx context.Context, id int64) (*Patient, error)

	// GetDoctorWorkingHours returns nil when the doctor has no configured
	// hours; callers fall back to DefaultWindow.
	GetDoctorWorkingHours(ctx context.Context, id int64) (*AvailabilityWindow, error)
}
