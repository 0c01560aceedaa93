package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/appointment-engine/internal/metrics"
	"github.com/clinicdesk/appointment-engine/internal/scheduling"
)

type RouterConfig struct {
	Service   *scheduling.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client // nil when running with the in-process locker
	Collector *metrics.Collector
	Logger    zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Collector))

	// Health and telemetry
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	h := NewHandler(cfg.Service)

	// Doctor calendar reads
	r.Get("/doctors/{id}/slots", h.ListSlots)
	r.Get("/doctors/{id}/availability", h.CheckAvailability)
	r.Get("/doctors/{id}/appointments", h.DayBookings)

	// Appointment lifecycle
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, time.Minute))
		r.Post("/appointments", h.Book)
		r.Post("/appointments/{id}/status", h.Transition)
	})
	r.Get("/appointments/{id}", h.GetAppointment)

	return r
}
