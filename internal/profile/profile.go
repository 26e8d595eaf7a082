// Package profile manages user accounts: creation, authentication, and
// credential changes. Passwords are stored as bcrypt hashes only.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

// ErrAuthFailed is returned on a bad name/password pair. It is
// deliberately the same for an unknown user and a wrong password.
var ErrAuthFailed = errors.New("authentication failed")

type Manager struct {
	store storage.Provider
}

func NewManager(store storage.Provider) *Manager {
	return &Manager{store: store}
}

// Create registers a new user. An empty id gets a generated one; a
// provided id must be exactly eight characters. Names are unique.
func (m *Manager) Create(id, name, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.User{}, errors.New("user name must not be empty")
	}
	if len(password) < constants.MinPasswordLength {
		return models.User{}, fmt.Errorf("password must be at least %d characters", constants.MinPasswordLength)
	}

	if id == "" {
		id = uuid.NewString()[:constants.UserIDLength]
	} else if len(id) != constants.UserIDLength {
		return models.User{}, fmt.Errorf("user id must be exactly %d characters", constants.UserIDLength)
	}

	if _, err := m.store.GetUserByName(name); err == nil {
		return models.User{}, fmt.Errorf("user %q already exists", name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, err
	}

	secret, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u := models.User{ID: id, Name: name, PasswordSecret: string(secret)}
	if err := m.store.AddUser(u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Authenticate checks a name/password pair and returns the user on
// success.
func (m *Manager) Authenticate(name, password string) (models.User, error) {
	u, err := m.store.GetUserByName(strings.TrimSpace(name))
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, ErrAuthFailed
	}
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordSecret), []byte(password)) != nil {
		return models.User{}, ErrAuthFailed
	}
	return u, nil
}

// Rename changes a user's name. The new name must not be taken.
func (m *Manager) Rename(id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.New("user name must not be empty")
	}

	u, err := m.store.GetUser(id)
	if err != nil {
		return err
	}
	if other, err := m.store.GetUserByName(newName); err == nil && other.ID != id {
		return fmt.Errorf("user %q already exists", newName)
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	u.Name = newName
	return m.store.UpdateUser(u)
}

// ChangePassword verifies the current password before storing a hash of
// the new one.
func (m *Manager) ChangePassword(id, current, next string) error {
	if len(next) < constants.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", constants.MinPasswordLength)
	}

	u, err := m.store.GetUser(id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordSecret), []byte(current)) != nil {
		return ErrAuthFailed
	}

	secret, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordSecret = string(secret)
	return m.store.UpdateUser(u)
}

// Delete removes the user and, via the storage cascade, every habit and
// check-in they own.
func (m *Manager) Delete(id string) error {
	return m.store.DeleteUser(id)
}

// Get returns the user with the given id.
func (m *Manager) Get(id string) (models.User, error) {
	return m.store.GetUser(id)
}
