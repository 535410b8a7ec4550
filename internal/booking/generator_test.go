package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// 2026-09-02 is a Wednesday, 2026-09-05 a Saturday.
	weekday = "2026-09-02"
	weekend = "2026-09-05"
)

func TestGenerateSlotsWeekday30Min(t *testing.T) {
	slots, err := GenerateSlots(weekday, 30, CategoryShared)
	require.NoError(t, err)

	require.Len(t, slots, 23)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "09:30", slots[0].EndTime)
	assert.Equal(t, "20:00", slots[22].StartTime)
	assert.Equal(t, "20:30", slots[22].EndTime)
}

func TestGenerateSlotsWeekend(t *testing.T) {
	slots, err := GenerateSlots(weekend, 15, CategoryShared)
	require.NoError(t, err)

	// 10:00-16:00 in 15 minute steps.
	require.Len(t, slots, 24)
	assert.Equal(t, "10:00", slots[0].StartTime)
	assert.Equal(t, "15:45", slots[len(slots)-1].StartTime)
	assert.Equal(t, "16:00", slots[len(slots)-1].EndTime)
}

func TestGenerateSlotsTiling(t *testing.T) {
	for _, date := range []string{weekday, weekend} {
		slots, err := GenerateSlots(date, 15, CategoryShared)
		require.NoError(t, err)

		for i := 1; i < len(slots); i++ {
			assert.Equal(t, slots[i-1].EndTime, slots[i].StartTime,
				"gap or overlap between %s and %s on %s", slots[i-1].EndTime, slots[i].StartTime, date)
		}
	}
}

func TestGenerateSlotsDefaults(t *testing.T) {
	slots, err := GenerateSlots(weekday, 15, CategoryShared)
	require.NoError(t, err)

	for _, s := range slots {
		assert.Equal(t, weekday, s.Date)
		assert.Equal(t, SlotFree, s.Status)
		assert.Equal(t, VisitShared, s.VisitType)
		assert.Empty(t, s.ReservationID)
	}
}

func TestGenerateSlotsSplitMode(t *testing.T) {
	shared, err := GenerateSlots(weekday, 30, CategoryShared)
	require.NoError(t, err)

	split, err := GenerateSlots(weekday, 30, CategorySplit)
	require.NoError(t, err)

	require.Len(t, split, 2*len(shared))
	assert.Equal(t, VisitFirst, split[0].VisitType)
	assert.Equal(t, VisitFollowUp, split[1].VisitType)
	assert.Equal(t, split[0].StartTime, split[1].StartTime)
	assert.Equal(t, split[0].EndTime, split[1].EndTime)
}

func TestGenerateSlotsRepeatable(t *testing.T) {
	a, err := GenerateSlots(weekday, 15, CategoryShared)
	require.NoError(t, err)
	b, err := GenerateSlots(weekday, 15, CategoryShared)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].StartTime, b[i].StartTime)
		assert.Equal(t, a[i].EndTime, b[i].EndTime)
		assert.Equal(t, a[i].VisitType, b[i].VisitType)
		assert.NotEqual(t, a[i].ID, b[i].ID, "slot ids must be fresh per call")
	}
}

func TestGenerateSlotsRejectsBadInput(t *testing.T) {
	_, err := GenerateSlots(weekday, 20, CategoryShared)
	assert.Error(t, err)

	_, err = GenerateSlots(weekday, 15, CategoryMode("half"))
	assert.Error(t, err)

	_, err = GenerateSlots("2026/09/02", 15, CategoryShared)
	assert.Error(t, err)
}
