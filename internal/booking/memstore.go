package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by tests and local experiments. It
// honors the same contract as the Postgres store, including the conditional
// claim write.
type MemStore struct {
	mu           sync.Mutex
	slots        []Slot
	nextRow      RowHandle
	reservations map[uuid.UUID]*Reservation
	audits       []AuditEntry
}

func NewMemStore() *MemStore {
	return &MemStore{
		nextRow:      1,
		reservations: make(map[uuid.UUID]*Reservation),
	}
}

func (m *MemStore) ListSlots(ctx context.Context, date string) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Slot
	for _, s := range m.slots {
		if s.Date == date {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *MemStore) AppendSlots(ctx context.Context, slots []Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range slots {
		s.Row = m.nextRow
		m.nextRow++
		m.slots = append(m.slots, s)
	}
	return nil
}

func (m *MemStore) ClaimSlot(ctx context.Context, row RowHandle, reservationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slots {
		if m.slots[i].Row != row {
			continue
		}
		if m.slots[i].Status != SlotFree {
			return ErrSlotTaken
		}
		m.slots[i].Status = SlotBooked
		m.slots[i].ReservationID = reservationID.String()
		return nil
	}
	return ErrSlotNotFound
}

func (m *MemStore) ReleaseSlot(ctx context.Context, row RowHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slots {
		if m.slots[i].Row != row {
			continue
		}
		m.slots[i].Status = SlotFree
		m.slots[i].ReservationID = ""
		return nil
	}
	return ErrSlotNotFound
}

func (m *MemStore) AppendReservation(ctx context.Context, resv Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := resv
	m.reservations[resv.ID] = &r
	return nil
}

func (m *MemStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return ErrReservationNotFound
	}
	r.Status = status
	return nil
}

func (m *MemStore) SetReservationEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return ErrReservationNotFound
	}
	r.CalendarEventID = eventID
	return nil
}

func (m *MemStore) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *MemStore) ListActiveReservations(ctx context.Context, date string) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Reservation
	for _, r := range m.reservations {
		if r.Date == date && r.Status == ReservationActive {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *MemStore) AppendAudit(ctx context.Context, actor, action string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audits = append(m.audits, AuditEntry{
		ID:        int64(len(m.audits) + 1),
		Actor:     actor,
		Action:    action,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
	return nil
}

// Audits returns a copy of the recorded audit entries.
func (m *MemStore) Audits() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]AuditEntry, len(m.audits))
	copy(out, m.audits)
	return out
}
