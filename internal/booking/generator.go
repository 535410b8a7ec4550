package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CategoryMode controls how generated windows are tagged.
type CategoryMode string

const (
	// CategoryShared emits one slot per window, bookable by either category.
	CategoryShared CategoryMode = "shared"
	// CategorySplit emits two slots per window, one per visit category.
	CategorySplit CategoryMode = "split"
)

// Clinic hours in minutes from midnight.
const (
	weekdayOpen  = 9 * 60
	weekdayClose = 20*60 + 30
	weekendOpen  = 10 * 60
	weekendClose = 16 * 60
)

// GenerateSlots produces the ordered bookable windows for date, not yet
// persisted. Weekdays run 09:00-20:30, weekends 10:00-16:00; windows are
// consecutive, non-overlapping and intervalMinutes wide, the last start
// strictly before closing. Pure except for slot id allocation.
func GenerateSlots(date string, intervalMinutes int, mode CategoryMode) ([]Slot, error) {
	if intervalMinutes != 15 && intervalMinutes != 30 {
		return nil, fmt.Errorf("unsupported slot interval %d", intervalMinutes)
	}
	if mode != CategoryShared && mode != CategorySplit {
		return nil, fmt.Errorf("unsupported category mode %q", mode)
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}

	open, closing := weekdayOpen, weekdayClose
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		open, closing = weekendOpen, weekendClose
	}

	var slots []Slot
	for start := open; start < closing; start += intervalMinutes {
		startTime := clockString(start)
		endTime := clockString(start + intervalMinutes)

		if mode == CategoryShared {
			slots = append(slots, newSlot(date, startTime, endTime, VisitShared))
			continue
		}
		slots = append(slots,
			newSlot(date, startTime, endTime, VisitFirst),
			newSlot(date, startTime, endTime, VisitFollowUp),
		)
	}

	return slots, nil
}

func newSlot(date, startTime, endTime string, vt VisitType) Slot {
	return Slot{
		ID:        uuid.New(),
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		VisitType: vt,
		Status:    SlotFree,
	}
}

func clockString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
