package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/core"
)

const defaultResetConcurrency = 8

// Session is the state of one signed-in user.
type Session struct {
	userID   string
	cache    *Cache
	openedAt time.Time
}

func (s *Session) UserID() string      { return s.userID }
func (s *Session) Cache() *Cache       { return s.cache }
func (s *Session) OpenedAt() time.Time { return s.openedAt }

// Snapshotter stores a copy of a ledger before it is wiped.
type Snapshotter interface {
	Snapshot(ctx context.Context, userID string, entries map[core.Category][]core.Entry) (key string, err error)
}

// FailedDeletion is one document reset-all could not remove. An empty ID
// means the collection itself could not be listed.
type FailedDeletion struct {
	Category core.Category
	ID       string
	Err      error
}

type ResetReport struct {
	Deleted     int
	Failed      []FailedDeletion
	SnapshotKey string
}

// Gateway validates, persists and reflects ledger mutations for at most
// one session. Operations run one at a time.
type Gateway struct {
	mu      sync.Mutex
	store   Source
	session *Session

	now        func() time.Time
	loc        *time.Location
	timeout    time.Duration
	snapshots  Snapshotter
	resetLimit int
}

type Option func(*Gateway)

func WithClock(now func() time.Time) Option { return func(g *Gateway) { g.now = now } }

// WithLocation sets the zone used to stamp entry dates.
func WithLocation(loc *time.Location) Option { return func(g *Gateway) { g.loc = loc } }

// WithTimeout bounds every store call. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(g *Gateway) { g.timeout = d } }

func WithSnapshotter(s Snapshotter) Option { return func(g *Gateway) { g.snapshots = s } }

func WithResetConcurrency(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.resetLimit = n
		}
	}
}

func NewGateway(store Source, opts ...Option) *Gateway {
	g := &Gateway{
		store:      store,
		now:        time.Now,
		loc:        time.UTC,
		resetLimit: defaultResetConcurrency,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

// Open loads userID's ledger and makes it the active session. A failed
// load keeps the previous session.
func (g *Gateway) Open(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrUnauthenticated
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := g.opContext(ctx)
	defer cancel()

	cache := NewCache()
	if err := cache.Load(ctx, g.store, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to load ledger", "user_id", userID, "error", err)
		return err
	}
	if g.session != nil {
		g.session.cache.Clear()
	}
	g.session = &Session{userID: userID, cache: cache, openedAt: g.now()}
	slog.InfoContext(ctx, "Ledger session opened", "user_id", userID, "entries", cache.Len())
	return nil
}

// Reload refreshes the active session from the store.
func (g *Gateway) Reload(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return core.ErrUnauthenticated
	}
	ctx, cancel := g.opContext(ctx)
	defer cancel()
	return g.session.cache.Load(ctx, g.store, g.session.userID)
}

// Close clears the cache and ends the session.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return
	}
	g.session.cache.Clear()
	slog.Info("Ledger session closed", "user_id", g.session.userID)
	g.session = nil
}

func (g *Gateway) Session() (*Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session, g.session != nil
}

func (g *Gateway) UserID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return ""
	}
	return g.session.userID
}

// Create validates and persists a new entry, then puts it at the head of
// its cached collection.
func (g *Gateway) Create(ctx context.Context, cat core.Category, description string, amount core.Money) (core.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return core.Entry{}, core.ErrUnauthenticated
	}
	if !cat.Valid() {
		return core.Entry{}, core.ErrUnknownCategory
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return core.Entry{}, &core.ValidationError{Field: "description", Err: core.ErrEmptyDescription}
	}
	if err := amount.Validate(); err != nil {
		return core.Entry{}, &core.ValidationError{Field: "amount", Err: err}
	}
	cache := g.session.cache
	if !cache.Summary().Allows(cat, amount) {
		return core.Entry{}, &core.ValidationError{Field: "amount", Err: core.ErrInsufficientFunds}
	}

	ctx, cancel := g.opContext(ctx)
	defer cancel()

	e, err := g.store.Create(ctx, g.session.userID, core.Entry{
		Category:    cat,
		Description: description,
		Amount:      amount,
		Date:        core.Today(g.now(), g.loc),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to create entry", "category", cat, "error", err)
		return core.Entry{}, core.StoreError("create "+cat.Collection(), err)
	}
	cache.prepend(e)

	slog.InfoContext(ctx, "Entry created",
		"user_id", g.session.userID,
		"category", cat,
		"id", e.ID,
		"amount_cents", e.Amount.Cents)
	return e, nil
}

// Update writes the patch and replaces the cached entry in place. There is
// no funds check on update.
func (g *Gateway) Update(ctx context.Context, cat core.Category, id string, p core.EntryPatch) (core.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return core.Entry{}, core.ErrUnauthenticated
	}
	if err := p.Validate(); err != nil {
		return core.Entry{}, err
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		p.Description = &d
	}
	cache := g.session.cache
	current, _, ok := cache.Find(cat, id)
	if !ok {
		return core.Entry{}, core.ErrNotFound
	}

	ctx, cancel := g.opContext(ctx)
	defer cancel()

	if err := g.store.Update(ctx, g.session.userID, cat, id, p); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// removed elsewhere; the cached row is stale
			cache.remove(cat, id)
			return core.Entry{}, core.ErrNotFound
		}
		slog.ErrorContext(ctx, "Failed to update entry", "category", cat, "id", id, "error", err)
		return core.Entry{}, core.StoreError("update "+cat.Collection(), err)
	}
	updated := current.Apply(p)
	cache.replace(updated)

	slog.InfoContext(ctx, "Entry updated", "user_id", g.session.userID, "category", cat, "id", id)
	return updated, nil
}

// Delete removes one confirmed entry from the store and the cache.
func (g *Gateway) Delete(ctx context.Context, cat core.Category, id string, confirmed bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return core.ErrUnauthenticated
	}
	if !confirmed {
		return core.ErrConfirmationRequired
	}
	cache := g.session.cache
	if _, _, ok := cache.Find(cat, id); !ok {
		return core.ErrNotFound
	}

	ctx, cancel := g.opContext(ctx)
	defer cancel()

	err := g.store.Delete(ctx, g.session.userID, cat, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		slog.WarnContext(ctx, "Entry already gone from store", "category", cat, "id", id)
	case err != nil:
		slog.ErrorContext(ctx, "Failed to delete entry", "category", cat, "id", id, "error", err)
		return core.StoreError("delete "+cat.Collection(), err)
	}
	cache.remove(cat, id)

	slog.InfoContext(ctx, "Entry deleted", "user_id", g.session.userID, "category", cat, "id", id)
	return nil
}

// ResetAll deletes every stored entry of the user. All deletions are
// awaited; only entries whose deletion succeeded leave the cache. When any
// deletion failed the report lists them and the error is ErrPartialReset.
func (g *Gateway) ResetAll(ctx context.Context, confirmed bool) (ResetReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return ResetReport{}, core.ErrUnauthenticated
	}
	if !confirmed {
		return ResetReport{}, core.ErrConfirmationRequired
	}
	userID := g.session.userID
	cache := g.session.cache

	ctx, cancel := g.opContext(ctx)
	defer cancel()

	var report ResetReport
	if g.snapshots != nil {
		key, err := g.snapshots.Snapshot(ctx, userID, cache.Snapshot())
		if err != nil {
			slog.ErrorContext(ctx, "Snapshot before reset failed, nothing deleted", "user_id", userID, "error", err)
			return ResetReport{}, core.StoreError("snapshot", err)
		}
		report.SnapshotKey = key
	}

	var (
		mu       sync.Mutex
		listed   = map[core.Category]bool{}
		failedID = map[core.Category]map[string]bool{}
	)
	fail := func(f FailedDeletion) {
		mu.Lock()
		defer mu.Unlock()
		report.Failed = append(report.Failed, f)
		if failedID[f.Category] == nil {
			failedID[f.Category] = map[string]bool{}
		}
		failedID[f.Category][f.ID] = true
	}

	eg := new(errgroup.Group)
	eg.SetLimit(g.resetLimit)
	for _, cat := range core.Categories {
		items, err := g.store.List(ctx, userID, cat)
		if err != nil {
			fail(FailedDeletion{Category: cat, Err: core.StoreError("list "+cat.Collection(), err)})
			continue
		}
		listed[cat] = true
		for _, e := range items {
			eg.Go(func() error {
				err := g.store.Delete(ctx, userID, cat, e.ID)
				if err != nil && !errors.Is(err, core.ErrNotFound) {
					fail(FailedDeletion{Category: cat, ID: e.ID, Err: core.StoreError("delete "+cat.Collection(), err)})
					return nil
				}
				mu.Lock()
				report.Deleted++
				mu.Unlock()
				return nil
			})
		}
	}
	_ = eg.Wait()

	for _, cat := range core.Categories {
		if !listed[cat] {
			continue
		}
		for _, e := range cache.Entries(cat) {
			if !failedID[cat][e.ID] {
				cache.remove(cat, e.ID)
			}
		}
	}

	if len(report.Failed) > 0 {
		slog.WarnContext(ctx, "Reset partially failed",
			"user_id", userID,
			"deleted", report.Deleted,
			"failed", len(report.Failed))
		return report, core.ErrPartialReset
	}
	slog.InfoContext(ctx, "Ledger reset", "user_id", userID, "deleted", report.Deleted)
	return report, nil
}

// Summary returns the aggregates of the active session.
func (g *Gateway) Summary() (core.Summary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return core.Summary{}, core.ErrUnauthenticated
	}
	return g.session.cache.Summary(), nil
}

// Entries returns one cached collection in display order.
func (g *Gateway) Entries(cat core.Category) ([]core.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil, core.ErrUnauthenticated
	}
	return g.session.cache.Entries(cat), nil
}

func (g *Gateway) Profile() (core.Profile, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return core.Profile{}, false
	}
	return g.session.cache.Profile()
}

// Snapshot copies the three cached collections.
func (g *Gateway) Snapshot() (map[core.Category][]core.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil, core.ErrUnauthenticated
	}
	return g.session.cache.Snapshot(), nil
}
