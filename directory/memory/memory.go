// Package memory is an in-process user directory for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/MrEthical07/credguard"
)

// Directory keeps users in a map keyed by username.
type Directory struct {
	mu     sync.RWMutex
	byName map[string]credguard.User
	byID   map[string]string
}

func New() *Directory {
	return &Directory{
		byName: make(map[string]credguard.User),
		byID:   make(map[string]string),
	}
}

func (d *Directory) FindByUsername(_ context.Context, username string) (credguard.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byName[username]
	if !ok {
		return credguard.User{}, credguard.ErrUserNotFound
	}
	return user, nil
}

// Insert stores user under a fresh UUID. A taken username fails with
// credguard.ErrUserExists.
func (d *Directory) Insert(_ context.Context, user credguard.User) (credguard.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byName[user.Username]; ok {
		return credguard.User{}, credguard.ErrUserExists
	}
	user.ID = uuid.NewString()
	d.byName[user.Username] = user
	d.byID[user.ID] = user.Username
	return user, nil
}

func (d *Directory) UpdateByID(_ context.Context, id string, update credguard.UserUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, ok := d.byID[id]
	if !ok {
		return credguard.ErrUserNotFound
	}
	user := d.byName[name]
	if update.PasswordHash != "" {
		user.PasswordHash = update.PasswordHash
	}
	if !update.UpdatedAt.IsZero() {
		user.UpdatedAt = update.UpdatedAt
	}
	d.byName[name] = user
	return nil
}

// Len reports how many users are stored.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byName)
}
