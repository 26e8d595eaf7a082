// Package tracker implements the check-in engine: period gating, streak
// arithmetic, break detection, and the manual bump/reset operations.
package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/registry"
	"github.com/julianstephens/habitual/internal/storage"
)

// ErrPeriodAlreadySatisfied is returned by Check when the habit already
// has a qualifying check-in inside the current period. The caller may
// still record an extra repetition after confirming with the user.
var ErrPeriodAlreadySatisfied = errors.New("habit already checked this period")

// Engine runs check-ins against the store. All operations take the
// current time explicitly so the streak arithmetic is deterministic
// under test.
type Engine struct {
	store    storage.Provider
	registry *registry.Registry
}

func NewEngine(store storage.Provider, reg *registry.Registry) *Engine {
	return &Engine{store: store, registry: reg}
}

// Check records a completion of the named habit at now.
//
// If the current period (same day for daily habits, trailing 7 days for
// weekly ones) already holds a check-in, it returns
// ErrPeriodAlreadySatisfied without writing. Otherwise it computes the
// new streak from the latest prior check-in, rewrites that row's streak
// to 0 when the gap exceeds one period, and upserts today's row.
func (e *Engine) Check(userID, habitName string, now time.Time) error {
	habit, err := e.registry.EnsureOwned(userID, habitName)
	if err != nil {
		return err
	}

	today := now.Format(constants.DateFormat)
	latest, err := e.store.LatestCheckIn(userID, habit.Name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// First check-in ever; nothing to gate against.
	case err != nil:
		return fmt.Errorf("failed to read latest check-in: %w", err)
	default:
		if withinPeriod(latest.Date, today, habit.Interval) {
			return fmt.Errorf("%w: %s (%s)", ErrPeriodAlreadySatisfied, habit.Name, habit.Interval)
		}
	}

	return e.record(userID, habit, now)
}

func (e *Engine) record(userID string, habit models.Habit, now time.Time) error {
	today := now.Format(constants.DateFormat)

	streak := 1
	zeroPriorDate := ""
	prior, err := e.store.LatestCheckInBefore(userID, habit.Name, today)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read prior check-in: %w", err)
	case continuesStreak(prior.Date, today, habit.Interval):
		streak = prior.Streak + 1
	default:
		// The gap exceeds one period: the prior row's streak is
		// corrected to 0 in the same transaction as the new check-in.
		zeroPriorDate = prior.Date
	}

	ev := models.CheckIn{
		UserID:     userID,
		HabitName:  habit.Name,
		Date:       today,
		Time:       now.Format(constants.ClockFormat),
		Repetition: 1,
		Streak:     streak,
	}
	if err := e.store.ApplyCheckIn(ev, zeroPriorDate); err != nil {
		return fmt.Errorf("failed to record check-in for %q: %w", habit.Name, err)
	}
	return nil
}

// BumpStreak manually raises the streak by one on top of the latest
// check-in dated today or earlier. The write lands on today's row; on an
// existing row the repetition is left untouched. Repeated bumps on the
// same day stack.
func (e *Engine) BumpStreak(userID, habitName string, now time.Time) error {
	habit, err := e.registry.EnsureOwned(userID, habitName)
	if err != nil {
		return err
	}

	today := now.Format(constants.DateFormat)
	streak := 1
	latest, err := e.store.LatestCheckInThrough(userID, habit.Name, today)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read latest check-in: %w", err)
	default:
		streak = latest.Streak + 1
	}

	ev := models.CheckIn{
		UserID:    userID,
		HabitName: habit.Name,
		Date:      today,
		Time:      now.Format(constants.ClockFormat),
		Streak:    streak,
	}
	if err := e.store.ReplaceStreak(ev); err != nil {
		return fmt.Errorf("failed to bump streak for %q: %w", habit.Name, err)
	}
	return nil
}

// BumpRepetition manually raises today's repetition count by one without
// touching the streak. With no row today the count starts at 1.
func (e *Engine) BumpRepetition(userID, habitName string, now time.Time) error {
	habit, err := e.registry.EnsureOwned(userID, habitName)
	if err != nil {
		return err
	}

	today := now.Format(constants.DateFormat)
	rep := 1
	latest, err := e.store.LatestCheckIn(userID, habit.Name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read latest check-in: %w", err)
	case latest.Date == today:
		rep = latest.Repetition + 1
	}

	ev := models.CheckIn{
		UserID:     userID,
		HabitName:  habit.Name,
		Date:       today,
		Time:       now.Format(constants.ClockFormat),
		Repetition: rep,
	}
	if err := e.store.ReplaceRepetition(ev); err != nil {
		return fmt.Errorf("failed to bump repetition for %q: %w", habit.Name, err)
	}
	return nil
}

// ResetStreak zeroes the streak on the single most recent check-in.
// History before that row keeps its streak values.
func (e *Engine) ResetStreak(userID, habitName string) error {
	habit, err := e.registry.Resolve(userID, habitName)
	if err != nil {
		return err
	}
	if err := e.store.ZeroLatestStreak(userID, habit.Name); err != nil {
		return fmt.Errorf("failed to reset streak for %q: %w", habit.Name, err)
	}
	return nil
}

// ResetRepetition zeroes the repetition count on every check-in row of
// the habit, wiping the whole repetition history.
func (e *Engine) ResetRepetition(userID, habitName string) error {
	habit, err := e.registry.Resolve(userID, habitName)
	if err != nil {
		return err
	}
	if err := e.store.ZeroAllRepetitions(userID, habit.Name); err != nil {
		return fmt.Errorf("failed to reset repetitions for %q: %w", habit.Name, err)
	}
	return nil
}

// withinPeriod reports whether a check-in on priorDate already satisfies
// the period ending on date: the same day for daily habits, fewer than 7
// days back for weekly ones.
func withinPeriod(priorDate, date string, interval models.Interval) bool {
	gap, ok := dayGap(priorDate, date)
	return ok && gap >= 0 && gap < interval.PeriodDays()
}

// continuesStreak reports whether a prior check-in keeps the streak
// alive for a check on date. The continuation window is one day wider
// than the gate: a daily check yesterday or a weekly check exactly a
// week ago extends the streak.
func continuesStreak(priorDate, date string, interval models.Interval) bool {
	gap, ok := dayGap(priorDate, date)
	return ok && gap >= 0 && gap <= interval.PeriodDays()
}

func dayGap(priorDate, date string) (int, bool) {
	prior, err := time.Parse(constants.DateFormat, priorDate)
	if err != nil {
		return 0, false
	}
	cur, err := time.Parse(constants.DateFormat, date)
	if err != nil {
		return 0, false
	}
	return int(cur.Sub(prior).Hours() / 24), true
}
