package registry

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

func setupRegistry(t *testing.T) (*Registry, storage.Provider) {
	t.Helper()
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.AddUser(models.User{ID: "u1", Name: "alice", PasswordSecret: "secret"}); err != nil {
		t.Fatalf("failed to add user: %v", err)
	}
	return New(store), store
}

var testNow = time.Date(2025, 4, 15, 9, 30, 0, 0, time.UTC)

func TestCreateCustom(t *testing.T) {
	reg, _ := setupRegistry(t)

	t.Run("normalizes name to title case", func(t *testing.T) {
		h, err := reg.CreateCustom("u1", "morning   reading", "Read 10 pages", "Cognitive", models.IntervalDaily, testNow)
		if err != nil {
			t.Fatalf("CreateCustom() returned unexpected error: %v", err)
		}
		if h.Name != "Morning Reading" {
			t.Errorf("name = %q, want %q", h.Name, "Morning Reading")
		}
		if h.CreatedDate != "2025-04-15" {
			t.Errorf("created date = %q, want 2025-04-15", h.CreatedDate)
		}
		if !h.IsCustom {
			t.Error("custom habit should have IsCustom set")
		}
	})

	t.Run("duplicate name rejected case-insensitively", func(t *testing.T) {
		_, err := reg.CreateCustom("u1", "MORNING READING", "", "", models.IntervalDaily, testNow)
		if !errors.Is(err, ErrExists) {
			t.Errorf("CreateCustom(duplicate) error = %v, want ErrExists", err)
		}
	})

	t.Run("template name rejected", func(t *testing.T) {
		_, err := reg.CreateCustom("u1", "yoga", "", "", models.IntervalDaily, testNow)
		if !errors.Is(err, ErrExists) {
			t.Errorf("CreateCustom(template name) error = %v, want ErrExists", err)
		}
	})

	t.Run("invalid interval rejected", func(t *testing.T) {
		_, err := reg.CreateCustom("u1", "Stretching", "", "", models.Interval("Monthly"), testNow)
		if !errors.Is(err, models.ErrInvalidInterval) {
			t.Errorf("CreateCustom(bad interval) error = %v, want ErrInvalidInterval", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		if _, err := reg.CreateCustom("u1", "   ", "", "", models.IntervalDaily, testNow); err == nil {
			t.Error("CreateCustom(blank name) should return an error")
		}
	})
}

func TestEnsureOwned(t *testing.T) {
	reg, store := setupRegistry(t)

	t.Run("adopts template on first use", func(t *testing.T) {
		h, err := reg.EnsureOwned("u1", "yoga")
		if err != nil {
			t.Fatalf("EnsureOwned() returned unexpected error: %v", err)
		}
		if h.UserID != "u1" {
			t.Errorf("owner = %q, want u1", h.UserID)
		}
		if h.IsCustom {
			t.Error("adopted copy should keep IsCustom false")
		}

		// The shared template survives adoption.
		templates, _ := store.GetHabits(storage.HabitFilter{Scope: storage.ScopePredefined})
		if len(templates) != 6 {
			t.Errorf("got %d templates after adoption, want 6", len(templates))
		}
	})

	t.Run("idempotent once owned", func(t *testing.T) {
		if _, err := reg.EnsureOwned("u1", "Yoga"); err != nil {
			t.Fatalf("EnsureOwned() second call returned error: %v", err)
		}
		habits, _ := store.GetHabits(storage.HabitFilter{UserID: "u1", Scope: storage.ScopeAll})
		owned := 0
		for _, h := range habits {
			if h.UserID == "u1" && h.Name == "Yoga" {
				owned++
			}
		}
		if owned != 1 {
			t.Errorf("got %d owned copies of Yoga, want 1", owned)
		}
	})

	t.Run("unknown habit", func(t *testing.T) {
		if _, err := reg.EnsureOwned("u1", "Nonexistent"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("EnsureOwned(unknown) error = %v, want ErrNotFound", err)
		}
	})
}

func TestEditInterval(t *testing.T) {
	reg, _ := setupRegistry(t)
	if _, err := reg.CreateCustom("u1", "Reading", "", "", models.IntervalDaily, testNow); err != nil {
		t.Fatalf("CreateCustom() returned unexpected error: %v", err)
	}

	if err := reg.EditInterval("u1", "reading", models.IntervalWeekly); err != nil {
		t.Fatalf("EditInterval() returned unexpected error: %v", err)
	}
	h, err := reg.Resolve("u1", "Reading")
	if err != nil {
		t.Fatalf("Resolve() returned unexpected error: %v", err)
	}
	if h.Interval != models.IntervalWeekly {
		t.Errorf("interval = %s, want Weekly", h.Interval)
	}

	if err := reg.EditInterval("u1", "Reading", models.Interval("Hourly")); !errors.Is(err, models.ErrInvalidInterval) {
		t.Errorf("EditInterval(bad interval) error = %v, want ErrInvalidInterval", err)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"yoga", "Yoga"},
		{"WEEK PLANNING", "Week Planning"},
		{"  morning   reading  ", "Morning Reading"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
