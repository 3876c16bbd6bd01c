package model

import (
	"time"

	"coach-storefront/internal/domain"
)

const (
	monthLayout = "2006-01"

	// DefaultMaxSlots is the monthly course enrollment cap.
	DefaultMaxSlots = 20
)

// CapacityEntry is the ledger row for one calendar month.
type CapacityEntry struct {
	Month     string    `json:"month"` // YYYY-MM
	MaxSlots  int       `json:"max_slots"`
	UsedSlots int       `json:"used_slots"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *CapacityEntry) Remaining() int {
	if e == nil || e.UsedSlots >= e.MaxSlots {
		return 0
	}
	return e.MaxSlots - e.UsedSlots
}

func (e *CapacityEntry) IsFull() bool { return e.Remaining() == 0 }

// MonthKey formats t in loc as YYYY-MM.
func MonthKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(monthLayout)
}

// ParseMonth validates a YYYY-MM key.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return time.Time{}, domain.ErrInvalidArgument
	}
	return t, nil
}
