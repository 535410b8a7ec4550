package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nssukenkyu-prog/scc-reservation/internal/booking"
	"github.com/nssukenkyu-prog/scc-reservation/internal/calendar"
	"github.com/nssukenkyu-prog/scc-reservation/internal/config"
	"github.com/nssukenkyu-prog/scc-reservation/internal/db"
	"github.com/nssukenkyu-prog/scc-reservation/internal/logger"
	"github.com/nssukenkyu-prog/scc-reservation/internal/notify"
	redisclient "github.com/nssukenkyu-prog/scc-reservation/internal/redis"
)

// The reminder worker mails every active reservation for the following day
// on each tick.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("reminder-worker starting up")

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

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()

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

	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	start := time.Now()
	sent, err := svc.SendReminders(runCtx, tomorrow)
	if err != nil {
		log.Error().Err(err).Msg("reminder run error")
		return
	}
	log.Info().Str("date", tomorrow).Int("sent", sent).Dur("took", time.Since(start)).Msg("reminder run complete")
}
