package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository implements both Store and Directory over Postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, doctor_id, patient_id, doctor_name, doctor_specialty,
	date, start_time, duration_minutes, status, reason, notes, created_by, created_at, updated_at`

// Helpers

func minutesToPgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

func pgTimeToMinutes(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start pgtype.Time
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.DoctorName,
		&a.DoctorSpecialty,
		&a.Date,
		&start,
		&a.DurationMinutes,
		&a.Status,
		&a.Reason,
		&notes,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Start = pgTimeToMinutes(start)
	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var from, to pgtype.Time

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&from,
		&to,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if from.Valid {
		t := pgTimeToMinutes(from)
		d.AvailableFrom = &t
	}
	if to.Valid {
		t := pgTimeToMinutes(to)
		d.AvailableTo = &t
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func (r *PgRepository) collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Store

func (r *PgRepository) GetActiveAppointments(ctx context.Context, doctorID int64, day time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND status IN ('scheduled', 'confirmed', 'in_progress')
		ORDER BY start_time
	`, doctorID, day)
	if err != nil {
		return nil, &StoreError{Op: "get active appointments", Err: err}
	}

	result, err := r.collectAppointments(rows)
	if err != nil {
		return nil, &StoreError{Op: "get active appointments", Err: err}
	}
	return result, nil
}

func (r *PgRepository) ListAppointmentsForDay(ctx context.Context, doctorID int64, day time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		ORDER BY start_time
	`, doctorID, day)
	if err != nil {
		return nil, &StoreError{Op: "list appointments for day", Err: err}
	}

	result, err := r.collectAppointments(rows)
	if err != nil {
		return nil, &StoreError{Op: "list appointments for day", Err: err}
	}
	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "get appointment", Err: err}
	}
	return appt, nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(doctor_id, patient_id, doctor_name, doctor_specialty,
			 date, start_time, duration_minutes, status, reason, notes, created_by,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+appointmentColumns+`
	`,
		appt.DoctorID,
		appt.PatientID,
		appt.DoctorName,
		appt.DoctorSpecialty,
		appt.Date,
		minutesToPgTime(appt.Start),
		appt.DurationMinutes,
		appt.Status,
		appt.Reason,
		nullableString(appt.Notes),
		appt.CreatedBy,
	)

	inserted, err := scanAppointment(row)
	if err != nil {
		return nil, &StoreError{Op: "insert appointment", Err: err}
	}
	return inserted, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "update appointment status", Err: err}
	}
	return updated, nil
}

// Directory

func (r *PgRepository) GetDoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, available_from, available_to, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)

	doctor, err := scanDoctor(row)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "get doctor", Err: err}
	}
	return doctor, nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)

	patient, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "get patient", Err: err}
	}
	return patient, nil
}

func (r *PgRepository) GetDoctorWorkingHours(ctx context.Context, id int64) (*AvailabilityWindow, error) {
	doctor, err := r.GetDoctorByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if doctor.AvailableFrom == nil || doctor.AvailableTo == nil {
		return nil, nil
	}
	return &AvailabilityWindow{Start: *doctor.AvailableFrom, End: *doctor.AvailableTo}, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
