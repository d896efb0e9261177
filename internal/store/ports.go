// Package store defines the persistence ports for ledgers, profiles and
// accounts. Implementations live in store/memory, storage (SQLite) and
// postgres.
package store

import (
	"context"
	"errors"
	"time"

	"finanzas/internal/core"
)

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrAccountNotFound = errors.New("account not found")
)

// Ports for outbound adapters.
type (
	// LedgerStore holds the three per-user entry collections.
	LedgerStore interface {
		// List returns a collection ordered by date descending, newest
		// creation first within the same day.
		List(ctx context.Context, userID string, c core.Category) ([]core.Entry, error)
		// Create persists e and returns it with ID and CreatedAt assigned.
		Create(ctx context.Context, userID string, e core.Entry) (core.Entry, error)
		// Update writes the patch fields. Missing entries yield core.ErrNotFound.
		Update(ctx context.Context, userID string, c core.Category, id string, p core.EntryPatch) error
		// Delete removes one entry. Missing entries yield core.ErrNotFound.
		Delete(ctx context.Context, userID string, c core.Category, id string) error
	}

	ProfileStore interface {
		CreateProfile(ctx context.Context, p core.Profile) error
		// GetProfile yields core.ErrProfileNotFound when absent.
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
	}

	AccountStore interface {
		// CreateAccount yields ErrEmailTaken on a duplicate email.
		CreateAccount(ctx context.Context, a Account) error
		// AccountByEmail yields ErrAccountNotFound when absent.
		AccountByEmail(ctx context.Context, email string) (Account, error)
	}

	Store interface {
		LedgerStore
		ProfileStore
		AccountStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// Account is an identity record. Email is stored lower-cased.
type Account struct {
	UserID       string
	Email        string
	PasswordHash []byte
	Disabled     bool
	CreatedAt    time.Time
}
