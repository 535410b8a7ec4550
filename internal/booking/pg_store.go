package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var reservationID *string

	err := row.Scan(
		&s.Row,
		&s.ID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.VisitType,
		&s.Status,
		&reservationID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	if reservationID != nil {
		s.ReservationID = *reservationID
	}
	return &s, nil
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var email, externalUserID, eventID *string

	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.Phone,
		&email,
		&r.VisitType,
		&r.Date,
		&r.StartTime,
		&r.EndTime,
		&externalUserID,
		&eventID,
		&r.Status,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	if email != nil {
		r.Email = *email
	}
	if externalUserID != nil {
		r.ExternalUserID = *externalUserID
	}
	if eventID != nil {
		r.CalendarEventID = *eventID
	}
	return &r, nil
}

func (s *PgStore) ListSlots(ctx context.Context, date string) ([]Slot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT row_id, id, date, start_time, end_time, visit_type, status, reservation_id
		FROM slots
		WHERE date = $1
		ORDER BY start_time, visit_type
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *slot)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PgStore) AppendSlots(ctx context.Context, slots []Slot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append slots: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, slot := range slots {
		_, err := tx.Exec(ctx, `
			INSERT INTO slots (id, date, start_time, end_time, visit_type, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, slot.ID, slot.Date, slot.StartTime, slot.EndTime, slot.VisitType, slot.Status)
		if err != nil {
			return fmt.Errorf("append slot %s: %w", slot.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// ClaimSlot is the conditional write that closes the read-check-then-write
// race: the status flip only lands if the row is still free.
func (s *PgStore) ClaimSlot(ctx context.Context, row RowHandle, reservationID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE slots
		SET status = 'booked',
		    reservation_id = $2,
		    updated_at = now()
		WHERE row_id = $1
		  AND status = 'free'
	`, row, reservationID.String())
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotTaken
	}
	return nil
}

func (s *PgStore) ReleaseSlot(ctx context.Context, row RowHandle) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE slots
		SET status = 'free',
		    reservation_id = NULL,
		    updated_at = now()
		WHERE row_id = $1
	`, row)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (s *PgStore) AppendReservation(ctx context.Context, resv Reservation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reservations
			(id, name, phone, email, visit_type, date, start_time, end_time,
			 external_user_id, calendar_event_id, status, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11, $12)
	`, resv.ID, resv.Name, resv.Phone, resv.Email, resv.VisitType, resv.Date,
		resv.StartTime, resv.EndTime, resv.ExternalUserID, resv.CalendarEventID,
		resv.Status, resv.CreatedAt)
	if err != nil {
		return fmt.Errorf("append reservation: %w", err)
	}
	return nil
}

func (s *PgStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status ReservationStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reservations
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (s *PgStore) SetReservationEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reservations
		SET calendar_event_id = $2
		WHERE id = $1
	`, id, eventID)
	if err != nil {
		return fmt.Errorf("set reservation event id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (s *PgStore) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, phone, email, visit_type, date, start_time, end_time,
		       external_user_id, calendar_event_id, status, created_at
		FROM reservations
		WHERE id = $1
	`, id)
	return scanReservation(row)
}

func (s *PgStore) ListActiveReservations(ctx context.Context, date string) ([]Reservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, phone, email, visit_type, date, start_time, end_time,
		       external_user_id, calendar_event_id, status, created_at
		FROM reservations
		WHERE date = $1
		  AND status = 'active'
		ORDER BY start_time
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PgStore) AppendAudit(ctx context.Context, actor, action string, payload []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor, action, payload, created_at)
		VALUES ($1, $2, $3, now())
	`, actor, action, payload)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
