package booking

import (
	"time"

	"github.com/google/uuid"
)

type VisitType string

const (
	VisitFirst    VisitType = "first"
	VisitFollowUp VisitType = "followup"
	VisitShared   VisitType = "shared"
)

// ValidVisitType reports whether v is a category a patient may book under.
// Shared is a slot tag, not a bookable category.
func ValidVisitType(v VisitType) bool {
	return v == VisitFirst || v == VisitFollowUp
}

type SlotStatus string

const (
	SlotFree   SlotStatus = "free"
	SlotBooked SlotStatus = "booked"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCancelled ReservationStatus = "cancelled"
)

// RowHandle is the opaque location of a persisted slot row, required for
// targeted updates. Zero means the row was never read from the store.
type RowHandle int64

type Slot struct {
	ID            uuid.UUID  `json:"slotId"`
	Date          string     `json:"date"` // YYYY-MM-DD
	StartTime     string     `json:"startTime"`
	EndTime       string     `json:"endTime"`
	VisitType     VisitType  `json:"visitType"`
	Status        SlotStatus `json:"status"`
	ReservationID string     `json:"reservationId,omitempty"`
	Row           RowHandle  `json:"-"`
}

type Reservation struct {
	ID              uuid.UUID         `json:"reservationId"`
	Name            string            `json:"name"`
	Phone           string            `json:"phone"`
	Email           string            `json:"email,omitempty"`
	VisitType       VisitType         `json:"visitType"`
	Date            string            `json:"date"`
	StartTime       string            `json:"startTime"`
	EndTime         string            `json:"endTime"`
	ExternalUserID  string            `json:"lineUserId,omitempty"`
	CalendarEventID string            `json:"calendarEventId,omitempty"`
	Status          ReservationStatus `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// AuditEntry is one append-only row of the action ledger.
type AuditEntry struct {
	ID        int64
	Actor     string
	Action    string
	Payload   []byte
	CreatedAt time.Time
}

const (
	ActorUser   = "user"
	ActorAdmin  = "admin"
	ActorSystem = "system"
)

const (
	ActionBook          = "book"
	ActionBlock         = "block"
	ActionCancel        = "cancel"
	ActionGenerate      = "generate_slots"
	ActionCalendarError = "calendar_error"
	ActionCancelError   = "cancel_error"
	ActionEmailSent     = "email_sent"
	ActionEmailError    = "email_error"
	ActionOrphaned      = "reservation_orphaned"
)
