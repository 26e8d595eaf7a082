package cli

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/analytics"
	"github.com/julianstephens/habitual/internal/backup"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/profile"
	"github.com/julianstephens/habitual/internal/registry"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/tracker"
)

// Context carries the wired application services into every command's
// Run method.
type Context struct {
	Store    storage.Provider
	Tracker  *tracker.Engine
	Registry *registry.Registry
	Views    *analytics.Views
	Users    *profile.Manager
	Debug    bool
}

// CurrentUser resolves the active session to a user record.
func (c *Context) CurrentUser() (models.User, error) {
	userID, err := session.Current()
	if err != nil {
		return models.User{}, err
	}
	u, err := c.Store.GetUser(userID)
	if err != nil {
		return models.User{}, fmt.Errorf("session user not found, run 'habitual user login' again: %w", err)
	}
	return u, nil
}

// Now returns the wall-clock time commands hand to the engine.
func (c *Context) Now() time.Time {
	return time.Now()
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if !IsSQLiteStore(c.Store) {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// IsSQLiteStore reports whether the provider is file-backed SQLite.
// Backups operate on the database file and are unavailable on Postgres.
func IsSQLiteStore(store storage.Provider) bool {
	_, ok := store.(*storage.SQLiteStore)
	return ok
}
