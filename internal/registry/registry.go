// Package registry manages the habit catalog: custom habit CRUD,
// name resolution against the predefined templates, and template
// adoption.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

// ErrExists is returned when creating a habit whose name is already
// taken for the user, either by an owned habit or a predefined template.
var ErrExists = errors.New("habit already exists")

type Registry struct {
	store storage.Provider
}

func New(store storage.Provider) *Registry {
	return &Registry{store: store}
}

// CreateCustom adds a user-defined habit. Names are normalized to title
// case and collide case-insensitively with templates and existing
// habits.
func (r *Registry) CreateCustom(userID, name, description, category string, interval models.Interval, now time.Time) (models.Habit, error) {
	name = TitleCase(name)
	if name == "" {
		return models.Habit{}, errors.New("habit name must not be empty")
	}
	if !interval.Valid() {
		return models.Habit{}, models.ErrInvalidInterval
	}

	if _, err := r.store.GetHabit(userID, name); err == nil {
		return models.Habit{}, fmt.Errorf("%w: %s", ErrExists, name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.Habit{}, err
	}

	h := models.Habit{
		UserID:      userID,
		Name:        name,
		Description: description,
		Category:    category,
		CreatedDate: now.Format(constants.DateFormat),
		Interval:    interval,
		IsCustom:    true,
	}
	if err := r.store.AddHabit(h); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

// Resolve finds the habit a name refers to for a user: an owned habit
// first, falling back to a predefined template.
func (r *Registry) Resolve(userID, name string) (models.Habit, error) {
	return r.store.GetHabit(userID, name)
}

// EnsureOwned resolves a name and guarantees the returned habit belongs
// to the user, adopting a predefined template into a per-user copy on
// first use.
func (r *Registry) EnsureOwned(userID, name string) (models.Habit, error) {
	habit, err := r.store.GetHabit(userID, name)
	if err != nil {
		return models.Habit{}, err
	}
	if !habit.IsTemplate() {
		return habit, nil
	}

	if err := r.store.AdoptTemplate(userID, habit.Name); err != nil {
		return models.Habit{}, err
	}
	return r.store.GetOwnedHabit(userID, habit.Name)
}

// Delete removes an owned habit and, via the storage cascade, its
// check-in history. Predefined templates cannot be deleted.
func (r *Registry) Delete(userID, name string) error {
	return r.store.DeleteHabit(userID, name)
}

// EditInterval changes the cadence of an owned habit. Streak history is
// left as recorded; future checks are judged against the new interval.
func (r *Registry) EditInterval(userID, name string, interval models.Interval) error {
	if !interval.Valid() {
		return models.ErrInvalidInterval
	}
	return r.store.SetHabitInterval(userID, name, interval)
}

// List returns habits matching the filter.
func (r *Registry) List(filter storage.HabitFilter) ([]models.Habit, error) {
	return r.store.GetHabits(filter)
}

// TitleCase normalizes a habit name: trimmed, single-spaced, each word
// capitalized.
func TitleCase(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
