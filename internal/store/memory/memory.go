// Package memory is an in-process store used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

type ledger map[core.Category][]core.Entry

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	ledgers  map[string]ledger
	profiles map[string]core.Profile
	accounts map[string]store.Account // by email

	// failures lets tests inject errors per operation name
	// ("list", "create", "update", "delete", "profile").
	failures map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		ledgers:  map[string]ledger{},
		profiles: map[string]core.Profile{},
		accounts: map[string]store.Account{},
		failures: map[string]error{},
	}
}

// WithClock replaces the CreatedAt clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// FailOn makes every later call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

func (s *Store) List(ctx context.Context, userID string, c core.Category) ([]core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("list"); err != nil {
		return nil, err
	}
	items := append([]core.Entry(nil), s.ledgers[userID][c]...)
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.After(items[j].Date.Time)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) Create(ctx context.Context, userID string, e core.Entry) (core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return core.Entry{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create"); err != nil {
		return core.Entry{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = s.now().UTC()
	l := s.ledgers[userID]
	if l == nil {
		l = ledger{}
		s.ledgers[userID] = l
	}
	l[e.Category] = append(l[e.Category], e)
	return e, nil
}

func (s *Store) Update(ctx context.Context, userID string, c core.Category, id string, p core.EntryPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("update"); err != nil {
		return err
	}
	items := s.ledgers[userID][c]
	for i := range items {
		if items[i].ID == id {
			items[i] = items[i].Apply(p)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) Delete(ctx context.Context, userID string, c core.Category, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("delete"); err != nil {
		return err
	}
	if err := s.fail("delete:" + id); err != nil {
		return err
	}
	l := s.ledgers[userID]
	for i, e := range l[c] {
		if e.ID == id {
			l[c] = append(l[c][:i:i], l[c][i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) CreateProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	if err := ctx.Err(); err != nil {
		return core.Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("profile"); err != nil {
		return core.Profile{}, err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, core.ErrProfileNotFound
	}
	return p, nil
}

func (s *Store) CreateAccount(_ context.Context, a store.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(a.Email)
	if _, ok := s.accounts[key]; ok {
		return store.ErrEmailTaken
	}
	a.Email = key
	s.accounts[key] = a
	return nil
}

func (s *Store) AccountByEmail(_ context.Context, email string) (store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return store.Account{}, store.ErrAccountNotFound
	}
	return a, nil
}

// DisableAccount marks an account disabled.
func (s *Store) DisableAccount(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if a, ok := s.accounts[key]; ok {
		a.Disabled = true
		s.accounts[key] = a
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
