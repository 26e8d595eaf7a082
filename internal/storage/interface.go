package storage

import (
	"errors"

	"github.com/julianstephens/habitual/internal/models"
)

// ErrNotFound is returned when a requested user, habit, or check-in row
// does not exist. Callers distinguish it from storage failures with
// errors.Is.
var ErrNotFound = errors.New("record not found")

// HabitScope selects which habits a listing query returns.
type HabitScope int

const (
	ScopeAll HabitScope = iota
	ScopeCustom
	ScopePredefined
)

// HabitFilter narrows habit listings. UserID scopes ownership;
// predefined templates are visible to every user. An empty Interval
// matches both cadences.
type HabitFilter struct {
	UserID   string
	Scope    HabitScope
	Interval models.Interval
}

// Provider is the persistence boundary for the whole application. The
// counter engine, habit registry, analytics views, and profile manager
// depend on this interface only, never on a concrete database handle.
//
// The check-in write primitives carry the streak/repetition semantics of
// the upsert keyed on (user, habit, date). They are deliberately split:
// ApplyCheckIn accumulates repetitions and replaces the streak;
// ReplaceStreak and ReplaceRepetition each touch exactly one column on
// conflict. Every write primitive is a single atomic unit; a failure
// mid-sequence leaves the previously committed state intact.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Users
	AddUser(models.User) error
	GetUser(id string) (models.User, error)
	GetUserByName(name string) (models.User, error)
	UpdateUser(models.User) error
	DeleteUser(id string) error

	// Habits
	AddHabit(models.Habit) error
	// GetHabit resolves a habit name for a user: the user's own habit
	// wins; otherwise a predefined template with that name is returned.
	// Name matching is case-insensitive.
	GetHabit(userID, name string) (models.Habit, error)
	GetOwnedHabit(userID, name string) (models.Habit, error)
	GetHabits(filter HabitFilter) ([]models.Habit, error)
	SetHabitInterval(userID, name string, interval models.Interval) error
	DeleteHabit(userID, name string) error
	// AdoptTemplate materializes a per-user copy of a predefined
	// template so check-in rows have an owned habit to reference. The
	// template itself is never mutated.
	AdoptTemplate(userID, name string) error

	// Check-in writes
	//
	// ApplyCheckIn runs one transaction: optionally rewrite the streak
	// of the row at zeroPriorDate to 0 (break correction), upsert the
	// event adding its repetition to any existing same-date row and
	// replacing that row's streak, then raise the habit's max_streak if
	// the new streak exceeds it.
	ApplyCheckIn(ev models.CheckIn, zeroPriorDate string) error
	// ReplaceStreak upserts the event replacing only the streak column
	// on conflict (repetition is written as given on insert, left
	// untouched on an existing row) and raises max_streak.
	ReplaceStreak(ev models.CheckIn) error
	// ReplaceRepetition upserts the event replacing only the repetition
	// column on conflict (streak untouched on an existing row).
	ReplaceRepetition(ev models.CheckIn) error
	// ZeroLatestStreak rewrites the streak of the single most recent row
	// (by date, then time) to 0. Earlier history is untouched.
	ZeroLatestStreak(userID, habitName string) error
	// ZeroAllRepetitions resets the repetition column across every row
	// for the habit, wiping the whole history rather than the latest row.
	ZeroAllRepetitions(userID, habitName string) error

	// Check-in reads
	LatestCheckIn(userID, habitName string) (models.CheckIn, error)
	LatestCheckInBefore(userID, habitName, date string) (models.CheckIn, error)
	LatestCheckInThrough(userID, habitName, date string) (models.CheckIn, error)
	CheckIns(userID, habitName string) ([]models.CheckIn, error)

	// Analytics aggregates
	LongestStreaks(userID, throughDate string) ([]models.HabitStreak, error)
	BrokenStreaks(userID, throughDate string) ([]models.HabitStreak, error)
	TotalRepetitions(userID string) ([]models.HabitRepetitions, error)

	// Utils
	GetConfigPath() string
}
