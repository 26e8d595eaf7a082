package models

import (
	"errors"
	"fmt"
	"strings"
)

// Interval is the cadence at which a habit is expected to be practiced.
// It is a closed two-variant enum; anything else is rejected at the
// registry boundary and never reaches the counter engine.
type Interval string

const (
	IntervalDaily  Interval = "Daily"
	IntervalWeekly Interval = "Weekly"
)

// ErrInvalidInterval is returned when an interval value is neither Daily nor Weekly.
var ErrInvalidInterval = errors.New("interval must be 'Daily' or 'Weekly'")

// ParseInterval converts user input to an Interval. Accepts the short
// forms "d" and "w" the same way the interactive prompts do.
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "daily":
		return IntervalDaily, nil
	case "w", "weekly":
		return IntervalWeekly, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidInterval, s)
	}
}

// Valid reports whether the interval is one of the two known variants.
func (i Interval) Valid() bool {
	return i == IntervalDaily || i == IntervalWeekly
}

// PeriodDays returns the length of one period in days (1 or 7).
func (i Interval) PeriodDays() int {
	if i == IntervalWeekly {
		return 7
	}
	return 1
}

// Habit is a practice being tracked. A habit either belongs to a user
// (UserID set) or is a shared predefined template (UserID empty,
// IsCustom false). Templates are read-only; checking one materializes a
// per-user copy so check-in history has something to reference.
type Habit struct {
	UserID      string   `json:"user_id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	CreatedDate string   `json:"created_date"` // YYYY-MM-DD
	Interval    Interval `json:"interval"`
	IsCustom    bool     `json:"is_custom"`
	MaxStreak   int      `json:"max_streak"`
}

// IsTemplate reports whether the habit is a shared predefined template.
func (h Habit) IsTemplate() bool {
	return h.UserID == "" && !h.IsCustom
}
