package analytics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/registry"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/tracker"
)

var now = time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC)

// setupViews builds a month of history: Reading checked daily through
// 2025-04-28, Swimming checked twice then abandoned.
func setupViews(t *testing.T) *Views {
	t.Helper()
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.AddUser(models.User{ID: "u1", Name: "alice", PasswordSecret: "secret"}); err != nil {
		t.Fatalf("failed to add user: %v", err)
	}

	reg := registry.New(store)
	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	if _, err := reg.CreateCustom("u1", "Reading", "", "", models.IntervalDaily, start); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	if _, err := reg.CreateCustom("u1", "Swimming", "", "", models.IntervalWeekly, start); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	engine := tracker.NewEngine(store, reg)
	for i := 0; i < 28; i++ {
		if err := engine.Check("u1", "Reading", start.AddDate(0, 0, i)); err != nil {
			t.Fatalf("Check(Reading) day %d returned unexpected error: %v", i+1, err)
		}
	}
	for _, d := range []int{1, 8} {
		if err := engine.Check("u1", "Swimming", time.Date(2025, 4, d, 9, 0, 0, 0, time.UTC)); err != nil {
			t.Fatalf("Check(Swimming) returned unexpected error: %v", err)
		}
	}
	if err := engine.ResetStreak("u1", "Swimming"); err != nil {
		t.Fatalf("ResetStreak() returned unexpected error: %v", err)
	}

	return New(store)
}

func TestLongestStreaks(t *testing.T) {
	views := setupViews(t)

	streaks, err := views.LongestStreaks("u1", now)
	if err != nil {
		t.Fatalf("LongestStreaks() returned unexpected error: %v", err)
	}
	want := map[string]int{"Reading": 28, "Swimming": 1}
	if len(streaks) != len(want) {
		t.Fatalf("got %d habits, want %d", len(streaks), len(want))
	}
	if streaks[0].HabitName != "Reading" {
		t.Errorf("first entry = %s, want Reading (ordered by streak desc)", streaks[0].HabitName)
	}
	for _, st := range streaks {
		if want[st.HabitName] != st.Streak {
			t.Errorf("%s longest streak = %d, want %d", st.HabitName, st.Streak, want[st.HabitName])
		}
	}
}

func TestBrokenStreaks(t *testing.T) {
	views := setupViews(t)

	broken, err := views.BrokenStreaks("u1", now)
	if err != nil {
		t.Fatalf("BrokenStreaks() returned unexpected error: %v", err)
	}
	if len(broken) != 1 || broken[0].HabitName != "Swimming" {
		t.Errorf("BrokenStreaks() = %v, want just Swimming", broken)
	}
}

func TestTotalRepetitions(t *testing.T) {
	views := setupViews(t)

	totals, err := views.TotalRepetitions("u1")
	if err != nil {
		t.Fatalf("TotalRepetitions() returned unexpected error: %v", err)
	}
	want := map[string]int{"Reading": 28, "Swimming": 2}
	for _, r := range totals {
		if want[r.HabitName] != r.Repetitions {
			t.Errorf("%s repetitions = %d, want %d", r.HabitName, r.Repetitions, want[r.HabitName])
		}
	}
	if totals[0].HabitName != "Reading" {
		t.Errorf("first entry = %s, want Reading (ordered by repetitions desc)", totals[0].HabitName)
	}
}

func TestCurrentStreaks(t *testing.T) {
	views := setupViews(t)

	streaks, err := views.CurrentStreaks("u1", now)
	if err != nil {
		t.Fatalf("CurrentStreaks() returned unexpected error: %v", err)
	}
	want := map[string]int{"Reading": 28, "Swimming": 0}
	if len(streaks) != len(want) {
		t.Fatalf("got %d habits, want %d (templates excluded)", len(streaks), len(want))
	}
	for _, st := range streaks {
		if want[st.HabitName] != st.Streak {
			t.Errorf("%s current streak = %d, want %d", st.HabitName, st.Streak, want[st.HabitName])
		}
	}
}

func TestCurrentStreakSingle(t *testing.T) {
	views := setupViews(t)

	got, err := views.CurrentStreak("u1", "reading", now)
	if err != nil {
		t.Fatalf("CurrentStreak() returned unexpected error: %v", err)
	}
	if got != 28 {
		t.Errorf("CurrentStreak(Reading) = %d, want 28", got)
	}

	// A template with no history reports zero rather than an error.
	got, err = views.CurrentStreak("u1", "Yoga", now)
	if err != nil {
		t.Fatalf("CurrentStreak(Yoga) returned unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("CurrentStreak(Yoga) = %d, want 0", got)
	}
}
