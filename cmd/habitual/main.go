package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitual/internal/analytics"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/cli/backups"
	"github.com/julianstephens/habitual/internal/cli/habits"
	"github.com/julianstephens/habitual/internal/cli/stats"
	"github.com/julianstephens/habitual/internal/cli/system"
	"github.com/julianstephens/habitual/internal/cli/track"
	"github.com/julianstephens/habitual/internal/cli/users"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/lockfile"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/profile"
	"github.com/julianstephens/habitual/internal/registry"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/tracker"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Database file path or PostgreSQL connection string. For PostgreSQL, credentials must NOT be embedded in the connection string. Use environment variables, .pgpass, or OS keyring instead." default:"~/.config/habitual/habitual.db"`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init   system.InitCmd   `cmd:"" help:"Initialize habitual storage."`
	Doctor system.DoctorCmd `cmd:"" help:"Run health checks and diagnostics."`
	User   users.UserCmd    `cmd:"" help:"Manage users and sessions."`
	Habit  habits.HabitCmd  `cmd:"" help:"Manage habits."`
	Check  track.CheckCmd   `cmd:"" help:"Check off a habit for the current period."`
	Streak track.StreakCmd  `cmd:"" help:"Manually adjust a habit's streak."`
	Rep    track.RepCmd     `cmd:"" help:"Manually adjust a habit's repetition count."`
	Stats  stats.StatsCmd   `cmd:"" help:"Show habit analytics."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("habitual"),
		kong.Description("Habit tracker with streaks, repetitions, and analytics"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	configPath := expandHome(CLI.Config)

	// Initialize storage based on config format
	var store storage.Provider
	isPostgres := strings.HasPrefix(configPath, "postgres://") || strings.HasPrefix(configPath, "postgresql://")
	if isPostgres {
		if storage.HasEmbeddedCredentials(configPath) {
			fmt.Fprintf(os.Stderr, "❌ Error: PostgreSQL connection strings with embedded credentials are NOT allowed.\n")
			fmt.Fprintf(os.Stderr, "       Use environment variables (PGPASSWORD) or a .pgpass file instead.\n")
			os.Exit(1)
		}
		store = storage.NewPostgresStore(configPath)
	} else {
		store = storage.NewSQLiteStore(configPath)
	}

	configDir := configDirFor(configPath, isPostgres)
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	// One writer at a time; a stale lock from a crashed run is reclaimed.
	lock, err := lockfile.Acquire(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer lock.Release()

	reg := registry.New(store)
	appCtx := &cli.Context{
		Store:    store,
		Tracker:  tracker.NewEngine(store, reg),
		Registry: reg,
		Views:    analytics.New(store),
		Users:    profile.NewManager(store),
		Debug:    CLI.Debug,
	}

	// Load the store before running the command (init handles its own setup)
	if ctx.Selected() != nil && ctx.Selected().Name != "init" {
		if err := store.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			lock.Release()
			os.Exit(1)
		}
	}
	defer store.Close()

	if err := ctx.Run(appCtx); err != nil {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		lock.Release()
		os.Exit(1)
	}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// configDirFor picks the directory holding logs and the instance lock:
// next to the database file for SQLite, the user config dir for Postgres.
func configDirFor(configPath string, isPostgres bool) string {
	if !isPostgres {
		return filepath.Dir(configPath)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, constants.AppName)
	}
	return "."
}
