// Package analytics exposes read-only views over the check-in history.
package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

type Views struct {
	store storage.Provider
}

func New(store storage.Provider) *Views {
	return &Views{store: store}
}

// LongestStreaks returns each habit's best recorded streak, highest
// first. Habits whose rows are all zero are omitted.
func (v *Views) LongestStreaks(userID string, now time.Time) ([]models.HabitStreak, error) {
	return v.store.LongestStreaks(userID, now.Format(constants.DateFormat))
}

// BrokenStreaks returns the habits whose most recent check-in carries a
// zero streak, either because the run was never started or because a
// later check retroactively zeroed it.
func (v *Views) BrokenStreaks(userID string, now time.Time) ([]models.HabitStreak, error) {
	return v.store.BrokenStreaks(userID, now.Format(constants.DateFormat))
}

// TotalRepetitions returns the lifetime repetition count per habit,
// highest first.
func (v *Views) TotalRepetitions(userID string) ([]models.HabitRepetitions, error) {
	return v.store.TotalRepetitions(userID)
}

// CurrentStreaks returns the streak on the latest check-in of every
// habit the user owns. Habits with no history report zero.
func (v *Views) CurrentStreaks(userID string, now time.Time) ([]models.HabitStreak, error) {
	habits, err := v.store.GetHabits(storage.HabitFilter{UserID: userID, Scope: storage.ScopeAll})
	if err != nil {
		return nil, err
	}

	today := now.Format(constants.DateFormat)
	var streaks []models.HabitStreak
	for _, h := range habits {
		if h.IsTemplate() {
			continue
		}
		st := models.HabitStreak{HabitName: h.Name}
		ev, err := v.store.LatestCheckInThrough(userID, h.Name, today)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to read streak for %q: %w", h.Name, err)
		default:
			st.Streak = ev.Streak
		}
		streaks = append(streaks, st)
	}
	return streaks, nil
}

// CurrentStreak returns the streak on the named habit's latest check-in
// through today, or zero when it has no history.
func (v *Views) CurrentStreak(userID, habitName string, now time.Time) (int, error) {
	habit, err := v.store.GetHabit(userID, habitName)
	if err != nil {
		return 0, err
	}
	ev, err := v.store.LatestCheckInThrough(userID, habit.Name, now.Format(constants.DateFormat))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ev.Streak, nil
}

// Habits lists habits matching the filter, for the list views.
func (v *Views) Habits(filter storage.HabitFilter) ([]models.Habit, error) {
	return v.store.GetHabits(filter)
}
