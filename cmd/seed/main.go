package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/appointment-engine/internal/config"
	"github.com/clinicdesk/appointment-engine/internal/db"
	"github.com/clinicdesk/appointment-engine/internal/lock"
	"github.com/clinicdesk/appointment-engine/internal/logger"
	"github.com/clinicdesk/appointment-engine/internal/scheduling"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS doctors (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		specialty      TEXT NOT NULL,
		available_from TIME,
		available_to   TIME,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id               BIGSERIAL PRIMARY KEY,
		doctor_id        BIGINT NOT NULL REFERENCES doctors(id),
		patient_id       BIGINT NOT NULL REFERENCES patients(id),
		doctor_name      TEXT NOT NULL,
		doctor_specialty TEXT NOT NULL,
		date             DATE NOT NULL,
		start_time       TIME NOT NULL,
		duration_minutes INT NOT NULL CHECK (duration_minutes > 0),
		status           TEXT NOT NULL,
		reason           TEXT NOT NULL DEFAULT '',
		notes            TEXT,
		created_by       TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_doctor_day
		ON appointments (doctor_id, date)`,
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	log := logger.New("info", "console")
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := createSchema(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("create schema")
	}
	if err := seedDoctors(context.Background(), pool, 20); err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedBookings(context.Background(), pool, 20, 500); err != nil {
		log.Fatal().Err(err).Msg("seed bookings")
	}

	log.Info().Msg("seed complete")
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		// Roughly a quarter of doctors rely on the default working hours.
		if gofakeit.Number(0, 3) == 0 {
			_, err = tx.Exec(ctx, `
				INSERT INTO doctors (name, specialty)
				VALUES ($1, $2)
			`, name, spec)
		} else {
			from := gofakeit.Number(7, 10)
			to := gofakeit.Number(15, 19)
			_, err = tx.Exec(ctx, `
				INSERT INTO doctors (name, specialty, available_from, available_to)
				VALUES ($1, $2, make_time($3, 0, 0), make_time($4, 0, 0))
			`, name, spec, from, to)
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (name, email)
				VALUES ($1, $2)
			`, gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	return nil
}

// seedBookings fills tomorrow's calendars through the booking service so the
// seeded data already satisfies the no-overlap invariant.
func seedBookings(ctx context.Context, pool *pgxpool.Pool, doctorCount, patientCount int) error {
	repo := scheduling.NewPgRepository(pool)
	cfg := config.Config{SlotMinutes: 30, DurationMinutes: 30}
	svc := scheduling.NewService(repo, repo, lock.NewLocalDoctorLocker(), cfg, logger.New("warn", "console"), nil)

	tomorrow := time.Now().AddDate(0, 0, 1)
	reasons := []string{"checkup", "follow-up", "consultation", "vaccination", "lab review"}

	for attempt := 0; attempt < 200; attempt++ {
		doctorID := int64(gofakeit.Number(1, doctorCount))
		hour := gofakeit.Number(9, 16)
		minute := 30 * gofakeit.Number(0, 1)

		_, err := svc.Book(ctx, scheduling.BookingRequest{
			DoctorID:        doctorID,
			PatientID:       int64(gofakeit.Number(1, patientCount)),
			Start:           time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, time.Local),
			DurationMinutes: 30,
			Reason:          reasons[gofakeit.Number(0, len(reasons)-1)],
			CreatedBy:       "seed",
		})
		if err != nil && !errors.Is(err, scheduling.ErrSlotConflict) {
			return err
		}
	}

	return nil
}
