// Package session persists the logged-in user id in the OS keyring so
// a login survives across invocations without a session file on disk.
package session

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitual/internal/constants"
)

var (
	// ErrNoSession is returned when no user is logged in
	ErrNoSession = errors.New("no active session, run 'habitual user login' first")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Current returns the user id of the active session.
// Returns ErrNoSession if nobody is logged in.
func Current() (string, error) {
	userID, err := keyring.Get(constants.AppName, constants.DefaultKeyringUser)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNoSession
		}
		// Wrap other keyring errors as unavailable
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return userID, nil
}

// Save stores the user id as the active session in the OS keyring.
func Save(userID string) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}
	if err := keyring.Set(constants.AppName, constants.DefaultKeyringUser, userID); err != nil {
		return fmt.Errorf("failed to store session in keyring: %w", err)
	}
	return nil
}

// Clear removes the active session from the OS keyring.
func Clear() error {
	err := keyring.Delete(constants.AppName, constants.DefaultKeyringUser)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrNoSession
		}
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	// ErrNotFound means the keyring works but holds nothing
	return err == nil || err == keyring.ErrNotFound
}
