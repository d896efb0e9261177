package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/sheets"
	"finanzas/internal/store"
)

// SyncWorker mirrors ledger changes from AMQP into a spreadsheet.
type SyncWorker struct {
	ledger    store.LedgerStore
	mirror    sheets.Mirror
	batchSize int

	mu     sync.Mutex
	cursor int // next user offset for StartupSyncCheck
}

func NewSyncWorker(ledger store.LedgerStore, mirror sheets.Mirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{ledger: ledger, mirror: mirror, batchSize: batchSize}
}

// HandleLedgerEvent applies one event to the mirror. A returned error makes
// the consumer requeue the message.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"type", ev.Type,
		"category", ev.Category,
		"entry_id", ev.EntryID)

	cat, err := core.ParseCategory(ev.Category)
	if err != nil {
		return fmt.Errorf("event category: %w", err)
	}

	switch ev.Type {
	case amqp.EntryCreated:
		e, err := ev.Entry()
		if err != nil {
			return fmt.Errorf("decode created entry: %w", err)
		}
		if err := w.mirror.ApplyCreated(ctx, ev.UserID, e); err != nil {
			return fmt.Errorf("mirror create: %w", err)
		}

	case amqp.EntryUpdated:
		err := w.mirror.ApplyUpdated(ctx, ev.UserID, cat, ev.EntryID, ev.Patch())
		if errors.Is(err, sheets.ErrRowNotFound) {
			// the create was missed; copy the current entry instead
			return w.resync(ctx, ev.UserID, cat, ev.EntryID)
		}
		if err != nil {
			return fmt.Errorf("mirror update: %w", err)
		}

	case amqp.EntryDeleted:
		if err := w.mirror.ApplyDeleted(ctx, ev.UserID, cat, ev.EntryID); err != nil {
			return fmt.Errorf("mirror delete: %w", err)
		}

	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	slog.InfoContext(ctx, "Successfully mirrored ledger event",
		"type", ev.Type,
		"entry_id", ev.EntryID)
	return nil
}

// resync copies a single entry from the store to the mirror. An entry
// that no longer exists is skipped, a later delete event covers it.
func (w *SyncWorker) resync(ctx context.Context, userID string, c core.Category, id string) error {
	if w.ledger == nil {
		slog.WarnContext(ctx, "No ledger store configured, dropping update for unknown row", "entry_id", id)
		return nil
	}
	entries, err := w.ledger.List(ctx, userID, c)
	if err != nil {
		return fmt.Errorf("list %s: %w", c, err)
	}
	for _, e := range entries {
		if e.ID == id {
			slog.InfoContext(ctx, "Re-mirroring entry missing from sheet", "entry_id", id)
			return w.mirror.ApplyCreated(ctx, userID, e)
		}
	}
	slog.WarnContext(ctx, "Updated entry no longer exists, skipping", "entry_id", id)
	return nil
}

// ReconcileUser makes the mirror match the store for one user: entries the
// mirror lacks or holds stale are rewritten and rows the store no longer
// has are removed.
func (w *SyncWorker) ReconcileUser(ctx context.Context, userID string) (written, removed int, err error) {
	lister, ok := w.mirror.(sheets.RowLister)
	if !ok || w.ledger == nil {
		return 0, 0, errors.New("reconcile needs a readable mirror and a ledger store")
	}
	for _, c := range core.Categories {
		entries, err := w.ledger.List(ctx, userID, c)
		if err != nil {
			return written, removed, fmt.Errorf("list %s: %w", c, err)
		}
		rows, err := lister.Rows(ctx, c)
		if err != nil {
			return written, removed, fmt.Errorf("read mirror %s: %w", c, err)
		}

		mirrored := make(map[string]core.Entry)
		for _, r := range rows {
			if r.UserID == userID {
				mirrored[r.Entry.ID] = r.Entry
			}
		}
		for _, e := range entries {
			m, ok := mirrored[e.ID]
			delete(mirrored, e.ID)
			if ok && sameEntry(m, e) {
				continue
			}
			if err := w.mirror.ApplyCreated(ctx, userID, e); err != nil {
				return written, removed, fmt.Errorf("mirror %s: %w", e.ID, err)
			}
			written++
		}
		for id := range mirrored {
			if err := w.mirror.ApplyDeleted(ctx, userID, c, id); err != nil {
				return written, removed, fmt.Errorf("remove %s: %w", id, err)
			}
			removed++
		}
	}
	return written, removed, nil
}

func sameEntry(a, b core.Entry) bool {
	return a.Description == b.Description && a.Amount == b.Amount && a.Date.ISO() == b.Date.ISO()
}

// StartupSyncCheck reconciles the users already present in the mirror, at
// most batchSize of them per call. Successive calls continue where the
// previous one stopped, so every mirrored user is reached within
// ceil(users/batchSize) passes. This recovers updates and deletes missed
// while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	lister, ok := w.mirror.(sheets.RowLister)
	if !ok || w.ledger == nil {
		slog.InfoContext(ctx, "Mirror is write-only, skipping startup sync check")
		return nil
	}

	var users []string
	seen := make(map[string]bool)
	for _, c := range core.Categories {
		rows, err := lister.Rows(ctx, c)
		if err != nil {
			return fmt.Errorf("read mirror for startup check: %w", err)
		}
		for _, r := range rows {
			if r.UserID != "" && !seen[r.UserID] {
				seen[r.UserID] = true
				users = append(users, r.UserID)
			}
		}
	}
	if len(users) == 0 {
		slog.InfoContext(ctx, "No mirrored users found on startup")
		return nil
	}
	users = w.nextBatch(users)

	var written, removed, failed int
	for _, u := range users {
		wn, rm, err := w.ReconcileUser(ctx, u)
		written += wn
		removed += rm
		if err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile user", "user_id", u, "error", err)
			failed++
		}
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"users", len(users),
		"written", written,
		"removed", removed,
		"errors", failed)
	return nil
}

// nextBatch picks up to batchSize users in ID order starting at the cursor,
// wrapping around, and advances the cursor past them.
func (w *SyncWorker) nextBatch(users []string) []string {
	slices.Sort(users)
	if len(users) <= w.batchSize {
		return users
	}
	w.mu.Lock()
	start := w.cursor % len(users)
	w.cursor = start + w.batchSize
	w.mu.Unlock()

	batch := make([]string, 0, w.batchSize)
	for i := 0; i < w.batchSize; i++ {
		batch = append(batch, users[(start+i)%len(users)])
	}
	return batch
}
