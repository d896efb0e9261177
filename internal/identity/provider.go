// Package identity signs users up and in, and notifies listeners of
// authentication state transitions.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// AuthState is delivered to listeners on every transition.
type AuthState struct {
	UserID   string
	SignedIn bool
}

type Listener func(AuthState)

// Accounts is the persistence the provider needs.
type Accounts interface {
	store.AccountStore
	store.ProfileStore
}

type Provider struct {
	accounts Accounts
	now      func() time.Time
	cost     int

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

type ProviderOption func(*Provider)

// WithHashCost sets the bcrypt cost.
func WithHashCost(cost int) ProviderOption { return func(p *Provider) { p.cost = cost } }

func WithNow(now func() time.Time) ProviderOption { return func(p *Provider) { p.now = now } }

func NewProvider(accounts Accounts, opts ...ProviderOption) *Provider {
	p := &Provider{
		accounts:  accounts,
		now:       time.Now,
		cost:      bcrypt.DefaultCost,
		listeners: map[int]Listener{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SignUp creates the account and its profile document, then signs the
// user in.
func (p *Provider) SignUp(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return "", newAuthError(MissingFields, nil)
	}
	if len(password) < MinPasswordLength {
		return "", newAuthError(WeakPassword, nil)
	}
	if err := validateEmail(email); err != nil {
		return "", newAuthError(InvalidEmail, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", newAuthError(WeakPassword, err)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := p.now().UTC()
	acc := store.Account{
		UserID:       uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := p.accounts.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return "", newAuthError(EmailInUse, err)
		}
		return "", core.StoreError("create account", err)
	}
	if err := p.accounts.CreateProfile(ctx, core.Profile{
		UserID: acc.UserID, Name: name, Email: acc.Email, CreatedAt: now,
	}); err != nil {
		// the account exists; a missing profile only hides the name
		slog.ErrorContext(ctx, "Failed to save profile", "user_id", acc.UserID, "error", err)
	}

	slog.InfoContext(ctx, "Account created", "user_id", acc.UserID)
	p.emit(AuthState{UserID: acc.UserID, SignedIn: true})
	return acc.UserID, nil
}

// SignIn checks the credentials and returns the user id.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", newAuthError(MissingFields, nil)
	}
	if err := validateEmail(email); err != nil {
		return "", newAuthError(InvalidEmail, err)
	}
	acc, err := p.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, store.ErrAccountNotFound) {
		// same cost as a real comparison
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", newAuthError(InvalidCredentials, err)
	}
	if err != nil {
		return "", core.StoreError("find account", err)
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return "", newAuthError(InvalidCredentials, err)
	}
	if acc.Disabled {
		return "", newAuthError(UserDisabled, nil)
	}

	slog.InfoContext(ctx, "User signed in", "user_id", acc.UserID)
	p.emit(AuthState{UserID: acc.UserID, SignedIn: true})
	return acc.UserID, nil
}

// SignOut notifies listeners that userID signed out.
func (p *Provider) SignOut(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	slog.InfoContext(ctx, "User signed out", "user_id", userID)
	p.emit(AuthState{UserID: userID})
}

// OnAuthStateChange registers fn and returns a function that removes it.
func (p *Provider) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) emit(s AuthState) {
	p.mu.Lock()
	fns := make([]Listener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	if addr.Address != email || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return fmt.Errorf("malformed address %q", email)
	}
	return nil
}

// dummyHash is bcrypt("finanzas") at MinCost, compared against on unknown
// emails.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("finanzas"), bcrypt.MinCost)
