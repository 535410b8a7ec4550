package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	redisclient "github.com/nssukenkyu-prog/scc-reservation/internal/redis"
)

// SendUpdates selects who the calendar service notifies about an event change.
type SendUpdates string

const (
	SendUpdatesAll  SendUpdates = "all"
	SendUpdatesNone SendUpdates = "none"
)

// Calendar mirrors confirmed reservations into an external calendar. It is
// never authoritative; failures must not abort a booking or cancellation that
// already reached the store.
type Calendar interface {
	CreateEvent(ctx context.Context, resv Reservation) (string, error)
	DeleteEvent(ctx context.Context, eventID string, mode SendUpdates) error
}

// Mailer sends patient-facing notification mail, best effort.
type Mailer interface {
	SendConfirmation(ctx context.Context, resv Reservation) error
	SendReminder(ctx context.Context, resv Reservation) error
}

// Options are the slot generation knobs.
type Options struct {
	IntervalMinutes int
	Mode            CategoryMode
}

type Service struct {
	store  Store
	locker redisclient.Locker
	cal    Calendar
	mailer Mailer
	opts   Options
}

func NewService(store Store, locker redisclient.Locker, cal Calendar, mailer Mailer, opts Options) *Service {
	return &Service{
		store:  store,
		locker: locker,
		cal:    cal,
		mailer: mailer,
		opts:   opts,
	}
}

// ListDay returns the persisted slots for a date.
func (s *Service) ListDay(ctx context.Context, date string) ([]Slot, error) {
	slots, err := s.store.ListSlots(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// GenerateResult reports one admin generation run.
type GenerateResult struct {
	Count         int      `json:"count"`
	GeneratedDays int      `json:"generatedDays"`
	SkippedDates  []string `json:"skippedDates"`
}

// GenerateDays creates slots for days consecutive dates starting at startDate.
// A date that already has persisted slots is skipped, never duplicated.
func (s *Service) GenerateDays(ctx context.Context, startDate string, days int) (*GenerateResult, error) {
	if days < 1 {
		days = 1
	}

	first, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", startDate, err)
	}

	result := &GenerateResult{SkippedDates: []string{}}

	for i := 0; i < days; i++ {
		date := first.AddDate(0, 0, i).Format("2006-01-02")

		existing, err := s.store.ListSlots(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("check existing slots for %s: %w", date, err)
		}
		if len(existing) > 0 {
			result.SkippedDates = append(result.SkippedDates, date)
			continue
		}

		slots, err := GenerateSlots(date, s.opts.IntervalMinutes, s.opts.Mode)
		if err != nil {
			return nil, err
		}
		if err := s.store.AppendSlots(ctx, slots); err != nil {
			return nil, fmt.Errorf("append slots for %s: %w", date, err)
		}

		result.Count += len(slots)
		result.GeneratedDays++
	}

	s.audit(ctx, ActorAdmin, ActionGenerate, map[string]any{
		"startDate":    startDate,
		"days":         days,
		"count":        result.Count,
		"skippedDates": result.SkippedDates,
	})

	return result, nil
}

// BookRequest is one claim on a slot. Block marks an administrative hold:
// the slot and reservation rows are written exactly like a booking, but
// calendar and email side effects are suppressed.
type BookRequest struct {
	SlotID         uuid.UUID
	Date           string
	Name           string
	Phone          string
	Email          string
	VisitType      VisitType
	ExternalUserID string
	Block          bool
}

// Book claims a slot for a patient. The slot's own date and times are copied
// into the reservation; caller-supplied ones are never trusted.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Reservation, error) {
	slot, err := s.locateSlot(ctx, req.Date, req.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != SlotFree {
		return nil, ErrSlotTaken
	}

	var resv *Reservation

	err = s.locker.WithSlotLock(ctx, req.SlotID, func(lockCtx context.Context) error {
		// Re-read inside the critical section; the pre-check above raced.
		current, err := s.locateSlot(lockCtx, req.Date, req.SlotID)
		if err != nil {
			return err
		}
		if current.Status != SlotFree {
			return ErrSlotTaken
		}

		r := Reservation{
			ID:             uuid.New(),
			Name:           req.Name,
			Phone:          req.Phone,
			Email:          req.Email,
			VisitType:      req.VisitType,
			Date:           current.Date,
			StartTime:      current.StartTime,
			EndTime:        current.EndTime,
			ExternalUserID: req.ExternalUserID,
			Status:         ReservationActive,
			CreatedAt:      time.Now().UTC(),
		}

		if err := s.store.AppendReservation(lockCtx, r); err != nil {
			return fmt.Errorf("append reservation: %w", err)
		}

		// The reservation row is already committed; from here on a failed
		// slot write leaves it orphaned rather than rolled back. The audit
		// trail is what an operator reconciles from.
		if current.Row == 0 {
			s.audit(lockCtx, ActorSystem, ActionOrphaned, map[string]any{
				"reservationId": r.ID,
				"slotId":        current.ID,
				"reason":        "missing_row_handle",
			})
			return ErrMissingRowHandle
		}

		if err := s.store.ClaimSlot(lockCtx, current.Row, r.ID); err != nil {
			if errors.Is(err, ErrSlotTaken) {
				if updErr := s.store.UpdateReservationStatus(lockCtx, r.ID, ReservationCancelled); updErr != nil {
					log.Warn().Err(updErr).Stringer("reservation_id", r.ID).
						Msg("could not cancel orphaned reservation after lost claim")
				}
				s.audit(lockCtx, ActorSystem, ActionOrphaned, map[string]any{
					"reservationId": r.ID,
					"slotId":        current.ID,
					"reason":        "claim_lost",
				})
			}
			return err
		}

		resv = &r
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	if !req.Block {
		s.mirrorToCalendar(ctx, resv)
		s.sendConfirmation(ctx, resv)
	}

	action := ActionBook
	actor := ActorUser
	if req.Block {
		action = ActionBlock
		actor = ActorAdmin
	}
	s.audit(ctx, actor, action, resv)

	return resv, nil
}

// Cancel frees a slot and marks its reservation cancelled. A later claim on
// the freed slot always mints a new reservation id.
func (s *Service) Cancel(ctx context.Context, slotID, reservationID uuid.UUID, date string) error {
	slot, err := s.locateSlot(ctx, date, slotID)
	if err != nil {
		return err
	}
	if slot.Row == 0 {
		return ErrMissingRowHandle
	}

	if err := s.store.ReleaseSlot(ctx, slot.Row); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	// The slot is free again; everything below is best effort, but each
	// failure lands in the ledger so the inconsistency can be reconciled.
	resv, err := s.store.GetReservation(ctx, reservationID)
	if err != nil && !errors.Is(err, ErrReservationNotFound) {
		log.Warn().Err(err).Stringer("reservation_id", reservationID).Msg("load reservation during cancel")
		s.audit(ctx, ActorSystem, ActionCancelError, map[string]any{
			"error":         err.Error(),
			"reservationId": reservationID,
			"step":          "load_reservation",
		})
	}

	if err := s.store.UpdateReservationStatus(ctx, reservationID, ReservationCancelled); err != nil {
		if !errors.Is(err, ErrReservationNotFound) {
			log.Warn().Err(err).Stringer("reservation_id", reservationID).Msg("mark reservation cancelled")
			s.audit(ctx, ActorSystem, ActionCancelError, map[string]any{
				"error":         err.Error(),
				"reservationId": reservationID,
				"step":          "mark_cancelled",
			})
		}
	}

	if resv != nil && resv.CalendarEventID != "" {
		// Delete without notifying the patient; the cancellation mail, if
		// any, is handled elsewhere.
		if err := s.cal.DeleteEvent(ctx, resv.CalendarEventID, SendUpdatesNone); err != nil {
			s.audit(ctx, ActorSystem, ActionCalendarError, map[string]any{
				"error":         err.Error(),
				"reservationId": reservationID,
				"eventId":       resv.CalendarEventID,
			})
		}
	}

	s.audit(ctx, ActorAdmin, ActionCancel, map[string]any{
		"slotId":        slotID,
		"reservationId": reservationID,
		"date":          date,
	})

	return nil
}

// SendReminders mails every active reservation for a date. Intended for the
// reminder worker; each failure is logged and skipped.
func (s *Service) SendReminders(ctx context.Context, date string) (int, error) {
	reservations, err := s.store.ListActiveReservations(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("list active reservations: %w", err)
	}

	sent := 0
	for _, resv := range reservations {
		if resv.Email == "" {
			continue
		}
		if err := s.mailer.SendReminder(ctx, resv); err != nil {
			log.Warn().Err(err).Stringer("reservation_id", resv.ID).Msg("send reminder")
			continue
		}
		sent++
		s.audit(ctx, ActorSystem, ActionEmailSent, map[string]any{
			"reservationId": resv.ID,
			"kind":          "reminder",
		})
	}

	return sent, nil
}

func (s *Service) locateSlot(ctx context.Context, date string, slotID uuid.UUID) (*Slot, error) {
	slots, err := s.store.ListSlots(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	for i := range slots {
		if slots[i].ID == slotID {
			return &slots[i], nil
		}
	}
	return nil, ErrSlotNotFound
}

func (s *Service) mirrorToCalendar(ctx context.Context, resv *Reservation) {
	eventID, err := s.cal.CreateEvent(ctx, *resv)
	if err != nil {
		s.audit(ctx, ActorSystem, ActionCalendarError, map[string]any{
			"error":         err.Error(),
			"reservationId": resv.ID,
		})
		return
	}
	if eventID == "" {
		return
	}

	resv.CalendarEventID = eventID
	if err := s.store.SetReservationEventID(ctx, resv.ID, eventID); err != nil {
		// Acceptable loss: the event exists but its id is not persisted.
		log.Warn().Err(err).Stringer("reservation_id", resv.ID).Msg("persist calendar event id")
	}
}

func (s *Service) sendConfirmation(ctx context.Context, resv *Reservation) {
	if resv.Email == "" {
		return
	}
	if err := s.mailer.SendConfirmation(ctx, *resv); err != nil {
		s.audit(ctx, ActorSystem, ActionEmailError, map[string]any{
			"error":         err.Error(),
			"reservationId": resv.ID,
		})
		return
	}
	s.audit(ctx, ActorSystem, ActionEmailSent, map[string]any{
		"reservationId": resv.ID,
		"email":         resv.Email,
	})
}

func (s *Service) audit(ctx context.Context, actor, action string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("marshal audit payload")
		data = nil
	}
	if err := s.store.AppendAudit(ctx, actor, action, data); err != nil {
		log.Error().Err(err).Str("action", action).Msg("append audit entry")
	}
}
