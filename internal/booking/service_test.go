package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLocker struct{}

func (noopLocker) WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCalendar struct {
	failCreate bool
	created    []Reservation
	deleted    []string
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, resv Reservation) (string, error) {
	if c.failCreate {
		return "", errors.New("calendar unavailable")
	}
	c.created = append(c.created, resv)
	return "evt-" + resv.ID.String(), nil
}

func (c *fakeCalendar) DeleteEvent(ctx context.Context, eventID string, mode SendUpdates) error {
	c.deleted = append(c.deleted, eventID+":"+string(mode))
	return nil
}

type fakeMailer struct {
	confirmations []Reservation
	reminders     []Reservation
}

func (m *fakeMailer) SendConfirmation(ctx context.Context, resv Reservation) error {
	m.confirmations = append(m.confirmations, resv)
	return nil
}

func (m *fakeMailer) SendReminder(ctx context.Context, resv Reservation) error {
	m.reminders = append(m.reminders, resv)
	return nil
}

// stripHandleStore hides row handles, as if the ledger rows had been read
// without their location.
type stripHandleStore struct {
	Store
}

func (s stripHandleStore) ListSlots(ctx context.Context, date string) ([]Slot, error) {
	slots, err := s.Store.ListSlots(ctx, date)
	for i := range slots {
		slots[i].Row = 0
	}
	return slots, err
}

// claimLostStore loses every conditional claim, as if a competing writer
// flipped the row between the read and the write.
type claimLostStore struct {
	Store
}

func (s claimLostStore) ClaimSlot(ctx context.Context, row RowHandle, reservationID uuid.UUID) error {
	return ErrSlotTaken
}

// brokenReservationStore fails reservation-side updates while leaving the
// slot side intact.
type brokenReservationStore struct {
	Store
}

func (s brokenReservationStore) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status ReservationStatus) error {
	return errors.New("reservations range unavailable")
}

func newTestService(store Store) (*Service, *fakeCalendar, *fakeMailer) {
	cal := &fakeCalendar{}
	mailer := &fakeMailer{}
	svc := NewService(store, noopLocker{}, cal, mailer, Options{IntervalMinutes: 30, Mode: CategoryShared})
	return svc, cal, mailer
}

func mustGenerate(t *testing.T, svc *Service, date string) []Slot {
	t.Helper()
	_, err := svc.GenerateDays(context.Background(), date, 1)
	require.NoError(t, err)
	slots, err := svc.ListDay(context.Background(), date)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	return slots
}

func assertSlotInvariant(t *testing.T, slots []Slot) {
	t.Helper()
	for _, s := range slots {
		if s.Status == SlotBooked {
			assert.NotEmpty(t, s.ReservationID, "booked slot %s without reservation link", s.ID)
		} else {
			assert.Empty(t, s.ReservationID, "free slot %s still linked to %s", s.ID, s.ReservationID)
		}
	}
}

func auditActions(store *MemStore) []string {
	var actions []string
	for _, e := range store.Audits() {
		actions = append(actions, e.Action)
	}
	return actions
}

func bookReq(slot Slot) BookRequest {
	return BookRequest{
		SlotID:    slot.ID,
		Date:      slot.Date,
		Name:      "山田 太郎",
		Phone:     "090-0000-0000",
		Email:     "taro@example.com",
		VisitType: VisitFirst,
	}
}

func TestGenerateDaysIdempotent(t *testing.T) {
	store := NewMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	first, err := svc.GenerateDays(ctx, weekday, 1)
	require.NoError(t, err)
	assert.Equal(t, 23, first.Count)
	assert.Equal(t, 1, first.GeneratedDays)
	assert.Empty(t, first.SkippedDates)

	second, err := svc.GenerateDays(ctx, weekday, 1)
	require.NoError(t, err)
	assert.Zero(t, second.Count)
	assert.Zero(t, second.GeneratedDays)
	assert.Equal(t, []string{weekday}, second.SkippedDates)

	slots, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assert.Len(t, slots, 23)
}

func TestGenerateDaysMultiple(t *testing.T) {
	store := NewMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	// Pre-populate the middle date; it must be reported, not duplicated.
	_, err := svc.GenerateDays(ctx, "2026-09-03", 1)
	require.NoError(t, err)

	result, err := svc.GenerateDays(ctx, weekday, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.GeneratedDays)
	assert.Equal(t, []string{"2026-09-03"}, result.SkippedDates)
}

func TestBookSuccess(t *testing.T) {
	store := NewMemStore()
	svc, cal, mailer := newTestService(store)
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)
	resv, err := svc.Book(ctx, bookReq(slots[0]))
	require.NoError(t, err)

	assert.Equal(t, ReservationActive, resv.Status)
	assert.Equal(t, slots[0].Date, resv.Date)
	assert.Equal(t, slots[0].StartTime, resv.StartTime)
	assert.Equal(t, slots[0].EndTime, resv.EndTime)

	after, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, after[0].Status)
	assert.Equal(t, resv.ID.String(), after[0].ReservationID)
	assertSlotInvariant(t, after)

	// Calendar mirrored and the event id persisted.
	require.Len(t, cal.created, 1)
	stored, err := store.GetReservation(ctx, resv.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-"+resv.ID.String(), stored.CalendarEventID)

	require.Len(t, mailer.confirmations, 1)
	assert.Contains(t, auditActions(store), ActionBook)
	assert.Contains(t, auditActions(store), ActionEmailSent)
}

func TestBookConflict(t *testing.T) {
	store := NewMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)

	_, err := svc.Book(ctx, bookReq(slots[0]))
	require.NoError(t, err)

	_, err = svc.Book(ctx, bookReq(slots[0]))
	assert.ErrorIs(t, err, ErrSlotTaken)

	after, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assertSlotInvariant(t, after)
}

func TestBookSlotNotFound(t *testing.T) {
	store := NewMemStore()
	svc, _, _ := newTestService(store)

	mustGenerate(t, svc, weekday)

	req := BookRequest{SlotID: uuid.New(), Date: weekday, Name: "x", Phone: "y", VisitType: VisitFirst}
	_, err := svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestBookCalendarFailureStillSucceeds(t *testing.T) {
	store := NewMemStore()
	svc, cal, _ := newTestService(store)
	cal.failCreate = true
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)
	resv, err := svc.Book(ctx, bookReq(slots[0]))
	require.NoError(t, err)

	after, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, after[0].Status)

	stored, err := store.GetReservation(ctx, resv.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.CalendarEventID)

	actions := auditActions(store)
	assert.Contains(t, actions, ActionCalendarError)
	assert.Contains(t, actions, ActionBook)
}

func TestBookMissingRowHandle(t *testing.T) {
	store := NewMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)

	svcNoHandles, _, _ := newTestService(stripHandleStore{store})
	_, err := svcNoHandles.Book(ctx, bookReq(slots[0]))
	assert.ErrorIs(t, err, ErrMissingRowHandle)

	// The reservation append is not rolled back; the orphan is audited.
	assert.Contains(t, auditActions(store), ActionOrphaned)

	after, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assert.Equal(t, SlotFree, after[0].Status)
}

func TestBookClaimLostCancelsOrphan(t *testing.T) {
	store := NewMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)

	svcLosing, cal, mailer := newTestService(claimLostStore{store})
	_, err := svcLosing.Book(ctx, bookReq(slots[0]))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// The appended reservation is cancelled, not left active, and the
	// orphan is in the ledger.
	active, err := store.ListActiveReservations(ctx, weekday)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Contains(t, auditActions(store), ActionOrphaned)

	assert.Empty(t, cal.created)
	assert.Empty(t, mailer.confirmations)

	after, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assertSlotInvariant(t, after)
}

func TestCancelReservationUpdateFailureIsAudited(t *testing.T) {
	store := NewMemStore()
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)
	resv, err := svc.Book(ctx, bookReq(slots[0]))
	require.NoError(t, err)

	svcBroken, _, _ := newTestService(brokenReservationStore{store})
	err = svcBroken.Cancel(ctx, slots[0].ID, resv.ID, weekday)
	require.NoError(t, err, "cancel reports success once the slot is released")

	after, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assert.Equal(t, SlotFree, after[0].Status)

	// The stuck reservation leaves a trail for out-of-band reconciliation.
	actions := auditActions(store)
	assert.Contains(t, actions, ActionCancelError)
	assert.Contains(t, actions, ActionCancel)
}

func TestBlockSuppressesSideEffects(t *testing.T) {
	store := NewMemStore()
	svc, cal, mailer := newTestService(store)
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)

	req := bookReq(slots[0])
	req.Block = true
	resv, err := svc.Book(ctx, req)
	require.NoError(t, err)

	// Rows written like a normal booking.
	after, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, after[0].Status)
	assert.Equal(t, resv.ID.String(), after[0].ReservationID)

	assert.Empty(t, cal.created)
	assert.Empty(t, mailer.confirmations)
	assert.Contains(t, auditActions(store), ActionBlock)
	assert.NotContains(t, auditActions(store), ActionBook)
}

func TestCancelFreesSlotAndRebookMintsNewID(t *testing.T) {
	store := NewMemStore()
	svc, cal, _ := newTestService(store)
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)
	resv, err := svc.Book(ctx, bookReq(slots[0]))
	require.NoError(t, err)

	err = svc.Cancel(ctx, slots[0].ID, resv.ID, weekday)
	require.NoError(t, err)

	after, err := svc.ListDay(ctx, weekday)
	require.NoError(t, err)
	assert.Equal(t, SlotFree, after[0].Status)
	assert.Empty(t, after[0].ReservationID)
	assertSlotInvariant(t, after)

	cancelled, err := store.GetReservation(ctx, resv.ID)
	require.NoError(t, err)
	assert.Equal(t, ReservationCancelled, cancelled.Status)

	// The mirrored event is removed without notifying the patient.
	require.Len(t, cal.deleted, 1)
	assert.Equal(t, "evt-"+resv.ID.String()+":none", cal.deleted[0])
	assert.Contains(t, auditActions(store), ActionCancel)

	// A fresh claim wins the freed slot under a new reservation id.
	again, err := svc.Book(ctx, bookReq(slots[0]))
	require.NoError(t, err)
	assert.NotEqual(t, resv.ID, again.ID)
}

func TestCancelSlotNotFound(t *testing.T) {
	store := NewMemStore()
	svc, _, _ := newTestService(store)

	mustGenerate(t, svc, weekday)

	err := svc.Cancel(context.Background(), uuid.New(), uuid.New(), weekday)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSendReminders(t *testing.T) {
	store := NewMemStore()
	svc, _, mailer := newTestService(store)
	ctx := context.Background()

	slots := mustGenerate(t, svc, weekday)

	withMail, err := svc.Book(ctx, bookReq(slots[0]))
	require.NoError(t, err)

	noMail := bookReq(slots[1])
	noMail.Email = ""
	_, err = svc.Book(ctx, noMail)
	require.NoError(t, err)

	cancelledReq := bookReq(slots[2])
	cancelledResv, err := svc.Book(ctx, cancelledReq)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, slots[2].ID, cancelledResv.ID, weekday))

	mailer.reminders = nil
	sent, err := svc.SendReminders(ctx, weekday)
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	require.Len(t, mailer.reminders, 1)
	assert.Equal(t, withMail.ID, mailer.reminders[0].ID)
}
