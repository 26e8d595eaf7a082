// Package lockfile guards the database against concurrent writers from
// a second running instance. The lock is a pidfile next to the database;
// a stale file left by a crashed process is reclaimed after checking the
// recorded PID against the live process table.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/habitual/internal/constants"
)

var findProcessFunc = ps.FindProcess

// ErrLocked is returned when another live process holds the lock.
var ErrLocked = errors.New("another habitual process is already running")

type Lock struct {
	path string
}

// Acquire takes the instance lock in dir, reclaiming a stale pidfile
// whose owner is no longer alive.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(dir, constants.LockfileName)

	if content, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
		if err == nil && pidAlive(pid) {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, pid)
		}
		// Stale or malformed pidfile; the owner is gone.
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to reclaim stale lockfile: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the pidfile. Safe to call once per acquired lock.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}

func pidAlive(pid int) bool {
	if pid <= 0 || pid == os.Getpid() {
		return false
	}
	process, err := findProcessFunc(pid)
	return err == nil && process != nil
}
