package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nssukenkyu-prog/scc-reservation/internal/api"
	"github.com/nssukenkyu-prog/scc-reservation/internal/booking"
	"github.com/nssukenkyu-prog/scc-reservation/internal/calendar"
	"github.com/nssukenkyu-prog/scc-reservation/internal/config"
	"github.com/nssukenkyu-prog/scc-reservation/internal/db"
	"github.com/nssukenkyu-prog/scc-reservation/internal/logger"
	"github.com/nssukenkyu-prog/scc-reservation/internal/notify"
	redisclient "github.com/nssukenkyu-prog/scc-reservation/internal/redis"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		log.Fatal().Err(err).Msg("migration error")
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	store := booking.NewPgStore(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	cal := calendar.NewGoogleClient(calendar.ServiceAccount{
		ClientEmail: cfg.GoogleClientEmail,
		PrivateKey:  cfg.GooglePrivateKey,
		ProjectID:   cfg.GoogleProjectID,
	}, cfg.CalendarID)
	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)

	svc := booking.NewService(store, locker, cal, mailer, booking.Options{
		IntervalMinutes: cfg.SlotIntervalMinutes,
		Mode:            booking.CategoryMode(cfg.SlotCategoryMode),
	})

	router := api.NewRouter(api.RouterConfig{
		Service:       svc,
		PgPool:        pgPool,
		Redis:         rdb,
		AdminPassword: cfg.AdminPassword,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
