package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nssukenkyu-prog/scc-reservation/internal/booking"
	"github.com/nssukenkyu-prog/scc-reservation/internal/db"
)

// Seeds a week of slots and books a share of the first day with fake
// patients. Dev tooling only.
func main() {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	store := booking.NewPgStore(pool)
	gofakeit.Seed(time.Now().UnixNano())

	today := time.Now()
	for i := 0; i < 7; i++ {
		date := today.AddDate(0, 0, i).Format("2006-01-02")

		existing, err := store.ListSlots(ctx, date)
		if err != nil {
			log.Fatal().Err(err).Str("date", date).Msg("list slots")
		}
		if len(existing) > 0 {
			log.Info().Str("date", date).Msg("slots already present, skipping")
			continue
		}

		slots, err := booking.GenerateSlots(date, 15, booking.CategoryShared)
		if err != nil {
			log.Fatal().Err(err).Str("date", date).Msg("generate slots")
		}
		if err := store.AppendSlots(ctx, slots); err != nil {
			log.Fatal().Err(err).Str("date", date).Msg("append slots")
		}
		log.Info().Str("date", date).Int("count", len(slots)).Msg("slots seeded")
	}

	if err := seedBookings(ctx, store, today.Format("2006-01-02")); err != nil {
		log.Fatal().Err(err).Msg("seed bookings")
	}

	log.Info().Msg("seed complete")
}

func seedBookings(ctx context.Context, store *booking.PgStore, date string) error {
	slots, err := store.ListSlots(ctx, date)
	if err != nil {
		return err
	}

	booked := 0
	for _, slot := range slots {
		if slot.Status != booking.SlotFree || gofakeit.Number(0, 9) >= 3 {
			continue
		}

		visitType := booking.VisitFirst
		if gofakeit.Bool() {
			visitType = booking.VisitFollowUp
		}

		resv := booking.Reservation{
			ID:        uuid.New(),
			Name:      gofakeit.Name(),
			Phone:     gofakeit.Phone(),
			Email:     gofakeit.Email(),
			VisitType: visitType,
			Date:      slot.Date,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Status:    booking.ReservationActive,
			CreatedAt: time.Now().UTC(),
		}

		if err := store.AppendReservation(ctx, resv); err != nil {
			return err
		}
		if err := store.ClaimSlot(ctx, slot.Row, resv.ID); err != nil {
			return err
		}
		booked++
	}

	log.Info().Str("date", date).Int("booked", booked).Msg("bookings seeded")
	return nil
}
