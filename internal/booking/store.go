package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrSlotTaken           = errors.New("slot already booked")
	ErrMissingRowHandle    = errors.New("slot row handle missing")
)

// Store is the row-level contract against the availability ledger. It is the
// sole source of truth for slot and reservation state; every call is an
// independent network operation with no transaction spanning calls.
type Store interface {
	// ListSlots returns all persisted slots for a date, each carrying the
	// row handle needed for targeted updates.
	ListSlots(ctx context.Context, date string) ([]Slot, error)
	AppendSlots(ctx context.Context, slots []Slot) error

	// ClaimSlot flips a slot free->booked and links the reservation in one
	// conditional write. Returns ErrSlotTaken if the slot was not free.
	ClaimSlot(ctx context.Context, row RowHandle, reservationID uuid.UUID) error
	// ReleaseSlot flips a slot back to free and clears the reservation link.
	ReleaseSlot(ctx context.Context, row RowHandle) error

	AppendReservation(ctx context.Context, resv Reservation) error
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status ReservationStatus) error
	// SetReservationEventID attaches a calendar event id after the fact.
	SetReservationEventID(ctx context.Context, id uuid.UUID, eventID string) error
	// GetReservation looks a reservation up by id alone, without date context.
	GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	// ListActiveReservations returns the active reservations for a date.
	ListActiveReservations(ctx context.Context, date string) ([]Reservation, error)

	AppendAudit(ctx context.Context, actor, action string, payload []byte) error
}
