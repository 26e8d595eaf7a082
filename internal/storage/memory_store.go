package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/julianstephens/habitual/internal/models"
)

type habitKey struct {
	owner string // "" for the ownerless templates
	name  string // lower-cased
}

type checkKey struct {
	user  string
	habit string
	date  string
}

// MemoryStore is an in-process Provider backed by maps. It carries the
// same upsert and cascade semantics as the database stores and exists so
// the engine, registry, and analytics can be unit-tested without a
// database file.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	habits   map[habitKey]models.Habit
	checkins map[checkKey]models.CheckIn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		habits:   make(map[habitKey]models.Habit),
		checkins: make(map[checkKey]models.CheckIn),
	}
}

func (s *MemoryStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range PredefinedHabits() {
		k := habitKey{name: strings.ToLower(h.Name)}
		if _, ok := s.habits[k]; !ok {
			s.habits[k] = h
		}
	}
	return nil
}

func (s *MemoryStore) Load() error  { return nil }
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetConfigPath() string { return ":memory:" }

// Users

func (s *MemoryStore) AddUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("failed to add user %q: id already taken", u.Name)
	}
	for _, other := range s.users {
		if other.Name == u.Name {
			return fmt.Errorf("failed to add user %q: name already taken", u.Name)
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) GetUser(id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	return u, nil
}

func (s *MemoryStore) GetUserByName(name string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Name == name {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
}

func (s *MemoryStore) UpdateUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	for _, other := range s.users {
		if other.ID != u.ID && other.Name == u.Name {
			return fmt.Errorf("failed to update user %q: name already taken", u.Name)
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	delete(s.users, id)
	// Cascade: the user's habits and check-ins go with them. The
	// ownerless templates survive.
	for k := range s.habits {
		if k.owner == id {
			delete(s.habits, k)
		}
	}
	for k := range s.checkins {
		if k.user == id {
			delete(s.checkins, k)
		}
	}
	return nil
}

// Habits

func (s *MemoryStore) AddHabit(h models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := habitKey{owner: h.UserID, name: strings.ToLower(h.Name)}
	if _, ok := s.habits[k]; ok {
		return fmt.Errorf("failed to add habit %q: already exists", h.Name)
	}
	s.habits[k] = h
	return nil
}

func (s *MemoryStore) GetHabit(userID, name string) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(name)
	// The user's own habit shadows a template with the same name.
	if h, ok := s.habits[habitKey{owner: userID, name: lower}]; ok {
		return h, nil
	}
	if h, ok := s.habits[habitKey{name: lower}]; ok {
		return h, nil
	}
	return models.Habit{}, fmt.Errorf("habit: %w", ErrNotFound)
}

func (s *MemoryStore) GetOwnedHabit(userID, name string) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[habitKey{owner: userID, name: strings.ToLower(name)}]
	if !ok {
		return models.Habit{}, fmt.Errorf("habit: %w", ErrNotFound)
	}
	return h, nil
}

func (s *MemoryStore) GetHabits(filter HabitFilter) ([]models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var habits []models.Habit
	for k, h := range s.habits {
		switch filter.Scope {
		case ScopePredefined:
			if k.owner != "" || h.IsCustom {
				continue
			}
		case ScopeCustom:
			if k.owner != filter.UserID || !h.IsCustom {
				continue
			}
		default:
			if k.owner != filter.UserID && k.owner != "" {
				continue
			}
		}
		if filter.Interval != "" && h.Interval != filter.Interval {
			continue
		}
		habits = append(habits, h)
	}
	sort.Slice(habits, func(i, j int) bool { return habits[i].Name < habits[j].Name })
	return habits, nil
}

func (s *MemoryStore) SetHabitInterval(userID, name string, interval models.Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := habitKey{owner: userID, name: strings.ToLower(name)}
	h, ok := s.habits[k]
	if !ok {
		return fmt.Errorf("habit: %w", ErrNotFound)
	}
	h.Interval = interval
	s.habits[k] = h
	return nil
}

func (s *MemoryStore) DeleteHabit(userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := habitKey{owner: userID, name: strings.ToLower(name)}
	h, ok := s.habits[k]
	if !ok {
		return fmt.Errorf("habit: %w", ErrNotFound)
	}
	delete(s.habits, k)
	for ck := range s.checkins {
		if ck.user == userID && ck.habit == h.Name {
			delete(s.checkins, ck)
		}
	}
	return nil
}

func (s *MemoryStore) AdoptTemplate(userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(name)
	tmpl, ok := s.habits[habitKey{name: lower}]
	if !ok || tmpl.IsCustom {
		return fmt.Errorf("template: %w", ErrNotFound)
	}
	k := habitKey{owner: userID, name: lower}
	if _, ok := s.habits[k]; ok {
		return fmt.Errorf("failed to adopt template %q: already owned", name)
	}
	owned := tmpl
	owned.UserID = userID
	owned.MaxStreak = 0
	s.habits[k] = owned
	return nil
}

// Check-in writes

func (s *MemoryStore) ApplyCheckIn(ev models.CheckIn, zeroPriorDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if zeroPriorDate != "" {
		pk := checkKey{user: ev.UserID, habit: ev.HabitName, date: zeroPriorDate}
		if prior, ok := s.checkins[pk]; ok {
			prior.Streak = 0
			s.checkins[pk] = prior
		}
	}

	k := checkKey{user: ev.UserID, habit: ev.HabitName, date: ev.Date}
	if existing, ok := s.checkins[k]; ok {
		existing.Repetition += ev.Repetition
		existing.Streak = ev.Streak
		s.checkins[k] = existing
	} else {
		s.checkins[k] = ev
	}

	s.bumpMaxStreak(ev.UserID, ev.HabitName, ev.Streak)
	return nil
}

func (s *MemoryStore) ReplaceStreak(ev models.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := checkKey{user: ev.UserID, habit: ev.HabitName, date: ev.Date}
	if existing, ok := s.checkins[k]; ok {
		existing.Streak = ev.Streak
		s.checkins[k] = existing
	} else {
		s.checkins[k] = ev
	}
	s.bumpMaxStreak(ev.UserID, ev.HabitName, ev.Streak)
	return nil
}

func (s *MemoryStore) ReplaceRepetition(ev models.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := checkKey{user: ev.UserID, habit: ev.HabitName, date: ev.Date}
	if existing, ok := s.checkins[k]; ok {
		existing.Repetition = ev.Repetition
		s.checkins[k] = existing
	} else {
		s.checkins[k] = ev
	}
	return nil
}

func (s *MemoryStore) ZeroLatestStreak(userID, habitName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest, ok := s.latest(userID, habitName, func(ev models.CheckIn) bool { return true })
	if !ok {
		return fmt.Errorf("check-in: %w", ErrNotFound)
	}
	latest.Streak = 0
	s.checkins[checkKey{user: userID, habit: habitName, date: latest.Date}] = latest
	return nil
}

func (s *MemoryStore) ZeroAllRepetitions(userID, habitName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ev := range s.checkins {
		if k.user == userID && k.habit == habitName {
			ev.Repetition = 0
			s.checkins[k] = ev
		}
	}
	return nil
}

func (s *MemoryStore) bumpMaxStreak(userID, habitName string, streak int) {
	k := habitKey{owner: userID, name: strings.ToLower(habitName)}
	if h, ok := s.habits[k]; ok && h.MaxStreak < streak {
		h.MaxStreak = streak
		s.habits[k] = h
	}
}

// Check-in reads

func (s *MemoryStore) latest(userID, habitName string, accept func(models.CheckIn) bool) (models.CheckIn, bool) {
	var best models.CheckIn
	found := false
	for k, ev := range s.checkins {
		if k.user != userID || k.habit != habitName || !accept(ev) {
			continue
		}
		if !found || ev.Date > best.Date || (ev.Date == best.Date && ev.Time > best.Time) {
			best = ev
			found = true
		}
	}
	return best, found
}

func (s *MemoryStore) LatestCheckIn(userID, habitName string) (models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.latest(userID, habitName, func(models.CheckIn) bool { return true })
	if !ok {
		return models.CheckIn{}, fmt.Errorf("check-in: %w", ErrNotFound)
	}
	return ev, nil
}

func (s *MemoryStore) LatestCheckInBefore(userID, habitName, date string) (models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.latest(userID, habitName, func(ev models.CheckIn) bool { return ev.Date < date })
	if !ok {
		return models.CheckIn{}, fmt.Errorf("check-in: %w", ErrNotFound)
	}
	return ev, nil
}

func (s *MemoryStore) LatestCheckInThrough(userID, habitName, date string) (models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.latest(userID, habitName, func(ev models.CheckIn) bool { return ev.Date <= date })
	if !ok {
		return models.CheckIn{}, fmt.Errorf("check-in: %w", ErrNotFound)
	}
	return ev, nil
}

func (s *MemoryStore) CheckIns(userID, habitName string) ([]models.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []models.CheckIn
	for k, ev := range s.checkins {
		if k.user == userID && k.habit == habitName {
			events = append(events, ev)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Time < events[j].Time
	})
	return events, nil
}

// Analytics aggregates

func (s *MemoryStore) LongestStreaks(userID, throughDate string) ([]models.HabitStreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := make(map[string]int)
	for k, ev := range s.checkins {
		if k.user != userID || ev.Streak <= 0 || ev.Date > throughDate {
			continue
		}
		if ev.Streak > best[k.habit] {
			best[k.habit] = ev.Streak
		}
	}
	streaks := make([]models.HabitStreak, 0, len(best))
	for name, st := range best {
		streaks = append(streaks, models.HabitStreak{HabitName: name, Streak: st})
	}
	sort.Slice(streaks, func(i, j int) bool {
		if streaks[i].Streak != streaks[j].Streak {
			return streaks[i].Streak > streaks[j].Streak
		}
		return streaks[i].HabitName < streaks[j].HabitName
	})
	return streaks, nil
}

func (s *MemoryStore) BrokenStreaks(userID, throughDate string) ([]models.HabitStreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lastDate := make(map[string]string)
	for k, ev := range s.checkins {
		if k.user != userID || ev.Date > throughDate {
			continue
		}
		if ev.Date > lastDate[k.habit] {
			lastDate[k.habit] = ev.Date
		}
	}
	var broken []models.HabitStreak
	for k, ev := range s.checkins {
		if k.user == userID && ev.Date == lastDate[k.habit] && ev.Streak == 0 {
			broken = append(broken, models.HabitStreak{HabitName: k.habit, Streak: 0})
		}
	}
	sort.Slice(broken, func(i, j int) bool { return broken[i].HabitName < broken[j].HabitName })
	return broken, nil
}

func (s *MemoryStore) TotalRepetitions(userID string) ([]models.HabitRepetitions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := make(map[string]int)
	for k, ev := range s.checkins {
		if k.user == userID {
			sums[k.habit] += ev.Repetition
		}
	}
	totals := make([]models.HabitRepetitions, 0, len(sums))
	for name, n := range sums {
		totals = append(totals, models.HabitRepetitions{HabitName: name, Repetitions: n})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Repetitions != totals[j].Repetitions {
			return totals[i].Repetitions > totals[j].Repetitions
		}
		return totals[i].HabitName < totals[j].HabitName
	})
	return totals, nil
}
