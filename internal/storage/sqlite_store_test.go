package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/habitual/internal/models"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func addTestUser(t *testing.T, store *SQLiteStore, id, name string) {
	t.Helper()
	if err := store.AddUser(models.User{ID: id, Name: name, PasswordSecret: "secret"}); err != nil {
		t.Fatalf("failed to add user %s: %v", name, err)
	}
}

func addTestHabit(t *testing.T, store *SQLiteStore, userID, name string, interval models.Interval) {
	t.Helper()
	err := store.AddHabit(models.Habit{
		UserID:      userID,
		Name:        name,
		CreatedDate: "2025-04-01",
		Interval:    interval,
		IsCustom:    true,
	})
	if err != nil {
		t.Fatalf("failed to add habit %s: %v", name, err)
	}
}

func TestInitSeedsTemplates(t *testing.T) {
	store := setupTestStore(t)

	habits, err := store.GetHabits(HabitFilter{Scope: ScopePredefined})
	if err != nil {
		t.Fatalf("GetHabits() returned unexpected error: %v", err)
	}
	if len(habits) != 6 {
		t.Fatalf("GetHabits(predefined) returned %d habits, want 6", len(habits))
	}
	for _, h := range habits {
		if !h.IsTemplate() {
			t.Errorf("seeded habit %q is not a template (user_id=%q, is_custom=%v)", h.Name, h.UserID, h.IsCustom)
		}
	}

	// Init must be idempotent: re-running it does not duplicate templates.
	if err := store.seedTemplates(); err != nil {
		t.Fatalf("seedTemplates() second run returned error: %v", err)
	}
	habits, _ = store.GetHabits(HabitFilter{Scope: ScopePredefined})
	if len(habits) != 6 {
		t.Errorf("after reseed got %d templates, want 6", len(habits))
	}
}

func TestReInit(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")

	// A second full init against an existing database must not duplicate
	// the ownerless template rows.
	if err := store.Init(); err != nil {
		t.Fatalf("Init() second run returned error: %v", err)
	}

	habits, err := store.GetHabits(HabitFilter{Scope: ScopePredefined})
	if err != nil {
		t.Fatalf("GetHabits() returned unexpected error: %v", err)
	}
	if len(habits) != 6 {
		t.Fatalf("after re-init got %d templates, want 6", len(habits))
	}

	// Adoption copies exactly one template row, so the first check of a
	// predefined habit still works after a re-init.
	if err := store.AdoptTemplate("u1", "Yoga"); err != nil {
		t.Fatalf("AdoptTemplate() after re-init returned error: %v", err)
	}
	h, err := store.GetOwnedHabit("u1", "Yoga")
	if err != nil {
		t.Fatalf("GetOwnedHabit() returned unexpected error: %v", err)
	}
	if h.IsCustom {
		t.Error("adopted copy should keep is_custom=false")
	}
}

func TestLoadWithoutInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(); err == nil {
		t.Error("Load() on missing database file should return an error")
	}
}

func TestGetHabit(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")

	t.Run("template visible to any user", func(t *testing.T) {
		h, err := store.GetHabit("u1", "Yoga")
		if err != nil {
			t.Fatalf("GetHabit() returned unexpected error: %v", err)
		}
		if !h.IsTemplate() {
			t.Errorf("expected template, got user_id=%q", h.UserID)
		}
	})

	t.Run("case-insensitive match", func(t *testing.T) {
		h, err := store.GetHabit("u1", "yOgA")
		if err != nil {
			t.Fatalf("GetHabit() returned unexpected error: %v", err)
		}
		if h.Name != "Yoga" {
			t.Errorf("GetHabit(yOgA) returned name %q, want Yoga", h.Name)
		}
	})

	t.Run("owned copy shadows template", func(t *testing.T) {
		if err := store.AdoptTemplate("u1", "Yoga"); err != nil {
			t.Fatalf("AdoptTemplate() returned unexpected error: %v", err)
		}
		h, err := store.GetHabit("u1", "Yoga")
		if err != nil {
			t.Fatalf("GetHabit() returned unexpected error: %v", err)
		}
		if h.UserID != "u1" {
			t.Errorf("GetHabit() returned owner %q, want u1", h.UserID)
		}
		if h.IsCustom {
			t.Error("adopted template copy should keep is_custom=false")
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := store.GetHabit("u1", "Nonexistent")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetHabit(unknown) error = %v, want ErrNotFound", err)
		}
	})
}

func TestGetHabitsFilter(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")
	addTestUser(t, store, "u2", "bob")
	addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)
	addTestHabit(t, store, "u2", "Swimming", models.IntervalWeekly)

	t.Run("all includes templates and own habits only", func(t *testing.T) {
		habits, err := store.GetHabits(HabitFilter{UserID: "u1", Scope: ScopeAll})
		if err != nil {
			t.Fatalf("GetHabits() returned unexpected error: %v", err)
		}
		if len(habits) != 7 {
			t.Fatalf("got %d habits, want 7 (6 templates + 1 own)", len(habits))
		}
		for _, h := range habits {
			if h.Name == "Swimming" {
				t.Error("listing for u1 leaked u2's habit")
			}
		}
	})

	t.Run("custom scope", func(t *testing.T) {
		habits, err := store.GetHabits(HabitFilter{UserID: "u1", Scope: ScopeCustom})
		if err != nil {
			t.Fatalf("GetHabits() returned unexpected error: %v", err)
		}
		if len(habits) != 1 || habits[0].Name != "Reading" {
			t.Errorf("custom scope returned %v, want just Reading", habits)
		}
	})

	t.Run("interval filter", func(t *testing.T) {
		habits, err := store.GetHabits(HabitFilter{UserID: "u1", Scope: ScopeAll, Interval: models.IntervalWeekly})
		if err != nil {
			t.Fatalf("GetHabits() returned unexpected error: %v", err)
		}
		for _, h := range habits {
			if h.Interval != models.IntervalWeekly {
				t.Errorf("interval filter leaked %s habit %q", h.Interval, h.Name)
			}
		}
	})
}

func TestApplyCheckIn(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")
	addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)

	ev := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-01", Time: "08:00:00", Repetition: 1, Streak: 1}
	if err := store.ApplyCheckIn(ev, ""); err != nil {
		t.Fatalf("ApplyCheckIn() returned unexpected error: %v", err)
	}

	t.Run("same-date upsert accumulates repetition and replaces streak", func(t *testing.T) {
		again := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-01", Time: "12:00:00", Repetition: 1, Streak: 5}
		if err := store.ApplyCheckIn(again, ""); err != nil {
			t.Fatalf("ApplyCheckIn() returned unexpected error: %v", err)
		}

		got, err := store.LatestCheckIn("u1", "Reading")
		if err != nil {
			t.Fatalf("LatestCheckIn() returned unexpected error: %v", err)
		}
		if got.Repetition != 2 {
			t.Errorf("repetition = %d, want 2 (accumulated)", got.Repetition)
		}
		if got.Streak != 5 {
			t.Errorf("streak = %d, want 5 (replaced)", got.Streak)
		}
		if got.Time != "08:00:00" {
			t.Errorf("check_time = %s, want original 08:00:00 kept on conflict", got.Time)
		}
	})

	t.Run("max streak raised, never lowered", func(t *testing.T) {
		h, err := store.GetOwnedHabit("u1", "Reading")
		if err != nil {
			t.Fatalf("GetOwnedHabit() returned unexpected error: %v", err)
		}
		if h.MaxStreak != 5 {
			t.Errorf("max_streak = %d, want 5", h.MaxStreak)
		}

		low := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-10", Time: "08:00:00", Repetition: 1, Streak: 1}
		if err := store.ApplyCheckIn(low, ""); err != nil {
			t.Fatalf("ApplyCheckIn() returned unexpected error: %v", err)
		}
		h, _ = store.GetOwnedHabit("u1", "Reading")
		if h.MaxStreak != 5 {
			t.Errorf("max_streak = %d after lower streak, want 5 unchanged", h.MaxStreak)
		}
	})

	t.Run("zeroPriorDate rewrites the broken row in place", func(t *testing.T) {
		next := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-20", Time: "08:00:00", Repetition: 1, Streak: 1}
		if err := store.ApplyCheckIn(next, "2025-04-10"); err != nil {
			t.Fatalf("ApplyCheckIn() returned unexpected error: %v", err)
		}

		prior, err := store.LatestCheckInBefore("u1", "Reading", "2025-04-20")
		if err != nil {
			t.Fatalf("LatestCheckInBefore() returned unexpected error: %v", err)
		}
		if prior.Date != "2025-04-10" || prior.Streak != 0 {
			t.Errorf("prior row = {%s streak=%d}, want {2025-04-10 streak=0}", prior.Date, prior.Streak)
		}
		if prior.Repetition != 1 {
			t.Errorf("prior repetition = %d, want 1 untouched by streak rewrite", prior.Repetition)
		}
	})
}

func TestReplaceStreak(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")
	addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)

	ev := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-01", Time: "08:00:00", Repetition: 3, Streak: 1}
	if err := store.ApplyCheckIn(ev, ""); err != nil {
		t.Fatalf("ApplyCheckIn() returned unexpected error: %v", err)
	}

	bump := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-01", Time: "12:00:00", Repetition: 0, Streak: 2}
	if err := store.ReplaceStreak(bump); err != nil {
		t.Fatalf("ReplaceStreak() returned unexpected error: %v", err)
	}

	got, err := store.LatestCheckIn("u1", "Reading")
	if err != nil {
		t.Fatalf("LatestCheckIn() returned unexpected error: %v", err)
	}
	if got.Streak != 2 {
		t.Errorf("streak = %d, want 2", got.Streak)
	}
	if got.Repetition != 3 {
		t.Errorf("repetition = %d, want 3 untouched on existing row", got.Repetition)
	}

	h, _ := store.GetOwnedHabit("u1", "Reading")
	if h.MaxStreak != 2 {
		t.Errorf("max_streak = %d, want 2", h.MaxStreak)
	}
}

func TestReplaceRepetition(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")
	addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)

	ev := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-01", Time: "08:00:00", Repetition: 1, Streak: 4}
	if err := store.ApplyCheckIn(ev, ""); err != nil {
		t.Fatalf("ApplyCheckIn() returned unexpected error: %v", err)
	}

	bump := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-01", Time: "12:00:00", Repetition: 2, Streak: 0}
	if err := store.ReplaceRepetition(bump); err != nil {
		t.Fatalf("ReplaceRepetition() returned unexpected error: %v", err)
	}

	got, err := store.LatestCheckIn("u1", "Reading")
	if err != nil {
		t.Fatalf("LatestCheckIn() returned unexpected error: %v", err)
	}
	if got.Repetition != 2 {
		t.Errorf("repetition = %d, want 2 (replaced)", got.Repetition)
	}
	if got.Streak != 4 {
		t.Errorf("streak = %d, want 4 untouched on existing row", got.Streak)
	}
}

func TestZeroLatestStreak(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")
	addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)

	dates := []string{"2025-04-01", "2025-04-02", "2025-04-03"}
	for i, d := range dates {
		ev := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: d, Time: "08:00:00", Repetition: 1, Streak: i + 1}
		if err := store.ApplyCheckIn(ev, ""); err != nil {
			t.Fatalf("ApplyCheckIn(%s) returned unexpected error: %v", d, err)
		}
	}

	if err := store.ZeroLatestStreak("u1", "Reading"); err != nil {
		t.Fatalf("ZeroLatestStreak() returned unexpected error: %v", err)
	}

	events, err := store.CheckIns("u1", "Reading")
	if err != nil {
		t.Fatalf("CheckIns() returned unexpected error: %v", err)
	}
	wantStreaks := []int{1, 2, 0}
	for i, ev := range events {
		if ev.Streak != wantStreaks[i] {
			t.Errorf("row %s streak = %d, want %d", ev.Date, ev.Streak, wantStreaks[i])
		}
	}

	t.Run("no rows", func(t *testing.T) {
		addTestHabit(t, store, "u1", "Empty", models.IntervalDaily)
		err := store.ZeroLatestStreak("u1", "Empty")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("ZeroLatestStreak(no rows) error = %v, want ErrNotFound", err)
		}
	})
}

func TestZeroAllRepetitions(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")
	addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)

	for i, d := range []string{"2025-04-01", "2025-04-02"} {
		ev := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: d, Time: "08:00:00", Repetition: 3, Streak: i + 1}
		if err := store.ApplyCheckIn(ev, ""); err != nil {
			t.Fatalf("ApplyCheckIn(%s) returned unexpected error: %v", d, err)
		}
	}

	if err := store.ZeroAllRepetitions("u1", "Reading"); err != nil {
		t.Fatalf("ZeroAllRepetitions() returned unexpected error: %v", err)
	}

	events, _ := store.CheckIns("u1", "Reading")
	for _, ev := range events {
		if ev.Repetition != 0 {
			t.Errorf("row %s repetition = %d, want 0", ev.Date, ev.Repetition)
		}
		if ev.Streak == 0 {
			t.Errorf("row %s streak zeroed, repetition reset must not touch streaks", ev.Date)
		}
	}
}

func TestCascadeDeletes(t *testing.T) {
	t.Run("deleting a habit removes its check-ins", func(t *testing.T) {
		store := setupTestStore(t)
		addTestUser(t, store, "u1", "alice")
		addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)

		ev := models.CheckIn{UserID: "u1", HabitName: "Reading", Date: "2025-04-01", Time: "08:00:00", Repetition: 1, Streak: 1}
		if err := store.ApplyCheckIn(ev, ""); err != nil {
			t.Fatalf("ApplyCheckIn() returned unexpected error: %v", err)
		}

		if err := store.DeleteHabit("u1", "Reading"); err != nil {
			t.Fatalf("DeleteHabit() returned unexpected error: %v", err)
		}

		events, err := store.CheckIns("u1", "Reading")
		if err != nil {
			t.Fatalf("CheckIns() returned unexpected error: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("got %d orphaned check-ins after habit delete, want 0", len(events))
		}
	})

	t.Run("deleting a user removes habits but keeps templates", func(t *testing.T) {
		store := setupTestStore(t)
		addTestUser(t, store, "u1", "alice")
		addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)

		if err := store.DeleteUser("u1"); err != nil {
			t.Fatalf("DeleteUser() returned unexpected error: %v", err)
		}

		if _, err := store.GetOwnedHabit("u1", "Reading"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetOwnedHabit after user delete error = %v, want ErrNotFound", err)
		}

		templates, _ := store.GetHabits(HabitFilter{Scope: ScopePredefined})
		if len(templates) != 6 {
			t.Errorf("got %d templates after user delete, want 6", len(templates))
		}
	})
}

func TestAnalyticsQueries(t *testing.T) {
	store := setupTestStore(t)
	addTestUser(t, store, "u1", "alice")
	addTestHabit(t, store, "u1", "Reading", models.IntervalDaily)
	addTestHabit(t, store, "u1", "Swimming", models.IntervalWeekly)

	seed := []models.CheckIn{
		{UserID: "u1", HabitName: "Reading", Date: "2025-04-01", Time: "08:00:00", Repetition: 1, Streak: 1},
		{UserID: "u1", HabitName: "Reading", Date: "2025-04-02", Time: "08:00:00", Repetition: 2, Streak: 2},
		{UserID: "u1", HabitName: "Swimming", Date: "2025-04-01", Time: "08:00:00", Repetition: 1, Streak: 1},
	}
	for _, ev := range seed {
		if err := store.ApplyCheckIn(ev, ""); err != nil {
			t.Fatalf("ApplyCheckIn() returned unexpected error: %v", err)
		}
	}
	// Swimming's latest row goes to zero, marking it broken.
	if err := store.ZeroLatestStreak("u1", "Swimming"); err != nil {
		t.Fatalf("ZeroLatestStreak() returned unexpected error: %v", err)
	}

	t.Run("longest streaks", func(t *testing.T) {
		streaks, err := store.LongestStreaks("u1", "2025-04-30")
		if err != nil {
			t.Fatalf("LongestStreaks() returned unexpected error: %v", err)
		}
		if len(streaks) != 1 || streaks[0].HabitName != "Reading" || streaks[0].Streak != 2 {
			t.Errorf("LongestStreaks() = %v, want [{Reading 2}]", streaks)
		}
	})

	t.Run("broken streaks", func(t *testing.T) {
		broken, err := store.BrokenStreaks("u1", "2025-04-30")
		if err != nil {
			t.Fatalf("BrokenStreaks() returned unexpected error: %v", err)
		}
		if len(broken) != 1 || broken[0].HabitName != "Swimming" {
			t.Errorf("BrokenStreaks() = %v, want just Swimming", broken)
		}
	})

	t.Run("total repetitions", func(t *testing.T) {
		totals, err := store.TotalRepetitions("u1")
		if err != nil {
			t.Fatalf("TotalRepetitions() returned unexpected error: %v", err)
		}
		want := map[string]int{"Reading": 3, "Swimming": 1}
		if len(totals) != len(want) {
			t.Fatalf("TotalRepetitions() returned %d rows, want %d", len(totals), len(want))
		}
		for _, r := range totals {
			if want[r.HabitName] != r.Repetitions {
				t.Errorf("%s repetitions = %d, want %d", r.HabitName, r.Repetitions, want[r.HabitName])
			}
		}
	})
}

func TestUsers(t *testing.T) {
	store := setupTestStore(t)

	t.Run("add and fetch", func(t *testing.T) {
		addTestUser(t, store, "u1", "alice")

		byID, err := store.GetUser("u1")
		if err != nil {
			t.Fatalf("GetUser() returned unexpected error: %v", err)
		}
		byName, err := store.GetUserByName("alice")
		if err != nil {
			t.Fatalf("GetUserByName() returned unexpected error: %v", err)
		}
		if byID != byName {
			t.Errorf("GetUser and GetUserByName disagree: %v vs %v", byID, byName)
		}
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := store.AddUser(models.User{ID: "u2", Name: "alice", PasswordSecret: "x"})
		if err == nil {
			t.Error("AddUser() with duplicate name should return an error")
		}
	})

	t.Run("update", func(t *testing.T) {
		if err := store.UpdateUser(models.User{ID: "u1", Name: "alicia", PasswordSecret: "new"}); err != nil {
			t.Fatalf("UpdateUser() returned unexpected error: %v", err)
		}
		u, _ := store.GetUser("u1")
		if u.Name != "alicia" || u.PasswordSecret != "new" {
			t.Errorf("UpdateUser() left %v", u)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		if _, err := store.GetUser("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetUser(missing) error = %v, want ErrNotFound", err)
		}
		if err := store.DeleteUser("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteUser(missing) error = %v, want ErrNotFound", err)
		}
	})
}
