package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/appointment-engine/internal/config"
	"github.com/clinicdesk/appointment-engine/internal/lock"
	"github.com/clinicdesk/appointment-engine/internal/metrics"
)

var (
	ErrSlotConflict    = errors.New("requested time conflicts with an existing booking")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrUnknownStatus   = errors.New("unknown appointment status")
	ErrTerminalStatus  = errors.New("appointment is in a terminal status")
)

// BookingRequest carries everything a booking needs. CreatedBy is explicit;
// the engine never reaches into ambient request state for it.
type BookingRequest struct {
	DoctorID        int64
	PatientID       int64
	Start           time.Time
	DurationMinutes int
	Reason          string
	Notes           string
	CreatedBy       string
}

type Service struct {
	store     Store
	directory Directory
	locker    lock.DoctorLocker
	cfg       config.Config
	log       zerolog.Logger
	collector *metrics.Collector

	// now is swappable so tests can pin the clock for past-slot marking.
	now func() time.Time
}

func NewService(store Store, directory Directory, locker lock.DoctorLocker, cfg config.Config, log zerolog.Logger, collector *metrics.Collector) *Service {
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = DefaultSlotMinutes
	}
	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = DefaultSlotMinutes
	}
	return &Service{
		store:     store,
		directory: directory,
		locker:    locker,
		cfg:       cfg,
		log:       log,
		collector: collector,
		now:       time.Now,
	}
}

// storeCtx bounds a store access; the lock TTL already bounds calls made
// inside the booking critical section.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// normalizeDuration applies the documented default for an omitted duration
// and rejects explicit garbage before any store access.
func (s *Service) normalizeDuration(minutes int) (int, error) {
	if minutes == 0 {
		return s.cfg.DurationMinutes, nil
	}
	if minutes < 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidDuration, minutes)
	}
	return minutes, nil
}

// CheckAvailability reports whether the proposed window is free of active
// bookings for the doctor on that day. It is a pure read; the commit race is
// closed by Book, not here. Past-dated proposals are not rejected: whether a
// slot is in the past is a display concern layered on top.
func (s *Service) CheckAvailability(ctx context.Context, doctorID int64, start time.Time, durationMinutes int) (bool, error) {
	dur, err := s.normalizeDuration(durationMinutes)
	if err != nil {
		return false, err
	}

	readCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	existing, err := s.store.GetActiveAppointments(readCtx, doctorID, dayOf(start))
	if err != nil {
		return false, err
	}

	return !hasConflict(existing, TimeOfDayOf(start), dur), nil
}

// ListSlots produces the day's bookable grid for a doctor, marking each slot
// with availability and whether it has already passed.
func (s *Service) ListSlots(ctx context.Context, doctorID int64, day time.Time, granularityMinutes int) ([]Slot, error) {
	if _, err := s.directory.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	window, err := s.workingHours(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	if granularityMinutes <= 0 {
		granularityMinutes = s.cfg.SlotMinutes
	}

	readCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	existing, err := s.store.GetActiveAppointments(readCtx, doctorID, dayOf(day))
	if err != nil {
		return nil, err
	}

	now := s.now()
	grid := GenerateSlots(window, granularityMinutes)
	slots := make([]Slot, 0, len(grid))
	for _, start := range grid {
		slots = append(slots, Slot{
			Start:     start,
			Available: !hasConflict(existing, start, granularityMinutes),
			Past:      start.At(dayOf(day)).Before(now),
		})
	}

	s.collector.RecordSlotQuery()
	return slots, nil
}

// Book commits an appointment for the proposed window, or reports a conflict.
// Availability is re-checked and the insert committed inside a per-doctor
// exclusive section so two near-simultaneous requests cannot both read
// "available" before either writes. The engine never picks an alternate slot
// on the caller's behalf.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	dur, err := s.normalizeDuration(req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	doctor, err := s.directory.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, err
	}

	day := dayOf(req.Start)
	start := TimeOfDayOf(req.Start)

	var booked *Appointment

	err = s.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		existing, err := s.store.GetActiveAppointments(lockCtx, req.DoctorID, day)
		if err != nil {
			return err
		}
		if hasConflict(existing, start, dur) {
			return ErrSlotConflict
		}

		appt, err := s.store.InsertAppointment(lockCtx, Appointment{
			DoctorID:        req.DoctorID,
			PatientID:       req.PatientID,
			DoctorName:      doctor.Name,
			DoctorSpecialty: doctor.Specialty,
			Date:            day,
			Start:           start,
			DurationMinutes: dur,
			Status:          StatusScheduled,
			Reason:          req.Reason,
			Notes:           req.Notes,
			CreatedBy:       req.CreatedBy,
		})
		if err != nil {
			return err
		}

		booked = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			// Expected outcome, not a fault.
			s.collector.RecordBooking(metrics.OutcomeConflict)
			s.log.Info().
				Int64("doctor_id", req.DoctorID).
				Int64("patient_id", req.PatientID).
				Str("start", start.String()).
				Int("duration_minutes", dur).
				Msg("booking conflict")
			return nil, err
		}
		s.collector.RecordBooking(metrics.OutcomeError)
		return nil, err
	}

	s.collector.RecordBooking(metrics.OutcomeBooked)
	s.log.Info().
		Int64("appointment_id", booked.ID).
		Str("code", booked.Code()).
		Int64("doctor_id", booked.DoctorID).
		Int64("patient_id", booked.PatientID).
		Str("start", booked.Start.String()).
		Int("duration_minutes", booked.DurationMinutes).
		Str("created_by", booked.CreatedBy).
		Msg("appointment booked")

	return booked, nil
}

// Transition moves an appointment to a new status. Terminal statuses are
// immutable; unknown status strings are rejected with the record unchanged.
func (s *Service) Transition(ctx context.Context, id int64, newStatus string) (*Appointment, error) {
	to, err := ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	appt, err := s.store.GetAppointmentByID(callCtx, id)
	if err != nil {
		return nil, err
	}

	if !appt.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s", ErrTerminalStatus, appt.Status)
	}
	if appt.Status == to {
		return appt, nil
	}

	updated, err := s.store.UpdateAppointmentStatus(callCtx, id, appt.Status, to)
	if err != nil {
		return nil, err
	}

	s.collector.RecordTransition(string(to))
	s.log.Info().
		Int64("appointment_id", updated.ID).
		Str("from", string(appt.Status)).
		Str("to", string(updated.Status)).
		Msg("appointment status changed")

	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	callCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.GetAppointmentByID(callCtx, id)
}

// DayBookings returns the doctor's full calendar for a day, all statuses.
func (s *Service) DayBookings(ctx context.Context, doctorID int64, day time.Time) ([]Appointment, error) {
	callCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.directory.GetDoctorByID(callCtx, doctorID); err != nil {
		return nil, err
	}
	return s.store.ListAppointmentsForDay(callCtx, doctorID, dayOf(day))
}

func (s *Service) workingHours(ctx context.Context, doctorID int64) (AvailabilityWindow, error) {
	window, err := s.directory.GetDoctorWorkingHours(ctx, doctorID)
	if err != nil {
		return AvailabilityWindow{}, err
	}
	if window == nil || window.Start >= window.End {
		return DefaultWindow(), nil
	}
	return *window, nil
}
