package system

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/backup"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/storage"
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := false

	// Check 1: DB reachable
	if err := checkDBReachable(ctx); err != nil {
		fmt.Printf("❌ Database reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Database reachable: OK\n")
		dbReachable = true
	}

	// Check 2: Predefined habits seeded (only if DB is reachable)
	if dbReachable {
		if err := checkTemplatesSeeded(ctx); err != nil {
			fmt.Printf("❌ Predefined habits: FAIL\n")
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		} else {
			fmt.Printf("✓ Predefined habits: OK\n")
		}
	} else {
		fmt.Printf("⊘ Predefined habits: SKIPPED (database not reachable)\n")
	}

	// Check 3: Check-in integrity (only if DB is reachable)
	if dbReachable {
		if err := checkCheckInIntegrity(ctx); err != nil {
			fmt.Printf("❌ Check-in integrity: FAIL\n")
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		} else {
			fmt.Printf("✓ Check-in integrity: OK\n")
		}
	} else {
		fmt.Printf("⊘ Check-in integrity: SKIPPED (database not reachable)\n")
	}

	// Check 4: Interval values (only if DB is reachable)
	if dbReachable {
		if err := checkIntervals(ctx); err != nil {
			fmt.Printf("❌ Interval values: FAIL\n")
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		} else {
			fmt.Printf("✓ Interval values: OK\n")
		}
	} else {
		fmt.Printf("⊘ Interval values: SKIPPED (database not reachable)\n")
	}

	// Check 5: Backups present (warning only)
	if cli.IsSQLiteStore(ctx.Store) {
		if err := checkBackupsPresent(ctx); err != nil {
			fmt.Printf("⚠ Backups present: WARNING\n")
			fmt.Printf("   %v\n", err)
		} else {
			fmt.Printf("✓ Backups present: OK\n")
		}
	} else {
		fmt.Printf("⊘ Backups present: SKIPPED (not SQLite storage)\n")
	}

	// Check 6: OS keyring (warning only; login is unavailable without it)
	if session.IsAvailable() {
		fmt.Printf("✓ OS keyring: OK\n")
	} else {
		fmt.Printf("⚠ OS keyring: WARNING\n")
		fmt.Printf("   OS keyring is not available; 'habitual user login' will not work\n")
	}

	// Check 7: Clock/timezone sanity
	if err := checkClockTimezone(); err != nil {
		fmt.Printf("❌ Clock/timezone: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Clock/timezone: OK\n")
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	if sqliteStore, ok := ctx.Store.(*storage.SQLiteStore); ok {
		db := sqliteStore.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}

	return nil
}

func checkTemplatesSeeded(ctx *cli.Context) error {
	templates, err := ctx.Store.GetHabits(storage.HabitFilter{Scope: storage.ScopePredefined})
	if err != nil {
		return fmt.Errorf("failed to list predefined habits: %w", err)
	}
	want := len(storage.PredefinedHabits())
	if len(templates) < want {
		return fmt.Errorf("only %d of %d predefined habits present (run 'habitual init')", len(templates), want)
	}
	return nil
}

func checkCheckInIntegrity(ctx *cli.Context) error {
	sqliteStore, ok := ctx.Store.(*storage.SQLiteStore)
	if !ok {
		return nil // Postgres enforces these with foreign keys
	}

	db := sqliteStore.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Orphaned check-ins: rows whose habit no longer exists
	var orphanedCount int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM checkins c
		LEFT JOIN habits h ON c.user_id = h.user_id AND c.habit_name = h.habit_name
		WHERE h.habit_name IS NULL
	`).Scan(&orphanedCount)
	if err != nil {
		return fmt.Errorf("failed to check orphaned check-ins: %w", err)
	}
	if orphanedCount > 0 {
		return fmt.Errorf("found %d check-ins referencing non-existent habits", orphanedCount)
	}

	// Invalid date formats
	var invalidCount int
	err = db.QueryRow(`
		SELECT COUNT(*)
		FROM checkins
		WHERE check_date NOT GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]'
	`).Scan(&invalidCount)
	if err != nil {
		return fmt.Errorf("failed to check check-in dates: %w", err)
	}
	if invalidCount > 0 {
		return fmt.Errorf("found %d check-ins with invalid date format", invalidCount)
	}

	return nil
}

func checkIntervals(ctx *cli.Context) error {
	sqliteStore, ok := ctx.Store.(*storage.SQLiteStore)
	if !ok {
		return nil // Postgres enforces the CHECK constraint
	}

	db := sqliteStore.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	var badCount int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM habits WHERE interval NOT IN ('Daily', 'Weekly')
	`).Scan(&badCount)
	if err != nil {
		return fmt.Errorf("failed to check intervals: %w", err)
	}
	if badCount > 0 {
		return fmt.Errorf("found %d habits with an invalid interval", badCount)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'habitual backup create'")
	}
	return nil
}

func checkClockTimezone() error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
