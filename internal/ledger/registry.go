package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"finanzas/internal/cache"
)

// Registry keeps one session per signed-in user. Idle sessions expire after
// the TTL and the least recently used one is dropped when full; either way
// its cache is cleared.
type Registry struct {
	mu       sync.Mutex
	store    Source
	locale   string
	opts     []Option
	sessions *cache.LRUCache[*Commands]
}

func NewRegistry(store Source, locale string, maxSessions int, ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{store: store, locale: locale, opts: opts}
	r.sessions = cache.NewLRUCache[*Commands](maxSessions, ttl).
		OnEvict(func(userID string, c *Commands) {
			c.gw.Close()
			slog.Info("Idle ledger session evicted", "user_id", userID)
		})
	return r
}

// Cleaner exposes the session cache to a cache.Manager.
func (r *Registry) Cleaner() cache.Cleaner { return r.sessions }

// Get returns the open session of userID.
func (r *Registry) Get(userID string) (*Commands, bool) {
	return r.sessions.Get(userID)
}

// Acquire returns the session of userID, loading it when absent.
func (r *Registry) Acquire(ctx context.Context, userID string) (*Commands, error) {
	if c, ok := r.sessions.Get(userID); ok {
		return c, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.sessions.Get(userID); ok {
		return c, nil
	}
	gw := NewGateway(r.store, r.opts...)
	if err := gw.Open(ctx, userID); err != nil {
		return nil, err
	}
	c := NewCommands(gw, r.locale)
	r.sessions.Set(userID, c)
	return c, nil
}

// Close ends the session of userID, if any.
func (r *Registry) Close(userID string) {
	if c, ok := r.sessions.Get(userID); ok {
		r.sessions.Delete(userID)
		c.gw.Close()
	}
}

// SetSignedIn follows identity transitions: a sign-out closes the session.
func (r *Registry) SetSignedIn(userID string, signedIn bool) {
	if !signedIn {
		r.Close(userID)
	}
}

func (r *Registry) Len() int { return r.sessions.Size() }
