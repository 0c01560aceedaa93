package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/appointment-engine/internal/api"
	"github.com/clinicdesk/appointment-engine/internal/config"
	"github.com/clinicdesk/appointment-engine/internal/db"
	"github.com/clinicdesk/appointment-engine/internal/lock"
	"github.com/clinicdesk/appointment-engine/internal/logger"
	"github.com/clinicdesk/appointment-engine/internal/metrics"
	redisclient "github.com/clinicdesk/appointment-engine/internal/redis"
	"github.com/clinicdesk/appointment-engine/internal/scheduling"
)

const version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Redis is optional; without it bookings serialize in process, which is
	// only correct for a single instance.
	var rdb *redis.Client
	var locker lock.DoctorLocker
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing redis")
			}
		}()
		locker = lock.NewRedisDoctorLocker(rdb, cfg.LockTTL, cfg.LockRetry)
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis, using distributed doctor locks")
	} else {
		locker = lock.NewLocalDoctorLocker()
		log.Warn().Msg("REDIS_ADDR not set, using in-process doctor locks (single instance only)")
	}

	collector := metrics.NewCollector("clinic_scheduling")
	repo := scheduling.NewPgRepository(pgPool)
	svc := scheduling.NewService(repo, repo, locker, cfg, log, collector)

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		PgPool:    pgPool,
		Redis:     rdb,
		Collector: collector,
		Logger:    log,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("http server error")
	case <-rootCtx.Done():
	}

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
