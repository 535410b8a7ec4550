package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nssukenkyu-prog/scc-reservation/internal/booking"
)

type RouterConfig struct {
	Service       *booking.Service
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	AdminPassword string
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Get("/slots", listSlotsHandler(cfg.Service))
		r.Post("/bookings", createBookingHandler(cfg.Service))
		r.Post("/cancel", cancelHandler(cfg.Service))

		r.Post("/admin/login", adminLoginHandler(cfg.AdminPassword))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(cfg.AdminPassword))
			r.Post("/admin/slots", generateSlotsHandler(cfg.Service))
			r.Post("/admin/block", blockSlotHandler(cfg.Service))
		})
	})

	return r
}
