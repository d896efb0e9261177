package sheets

import (
	"context"
	"errors"

	"finanzas/internal/core"
)

// ErrRowNotFound is returned when an update targets an entry the mirror
// has never seen.
var ErrRowNotFound = errors.New("row not found")

// Ports for outbound adapters.
type (
	// Mirror keeps a spreadsheet copy of every user's ledger. Writes are
	// idempotent: a created entry that already has a row is overwritten and
	// deleting a missing row succeeds.
	Mirror interface {
		ApplyCreated(ctx context.Context, userID string, e core.Entry) error
		ApplyUpdated(ctx context.Context, userID string, c core.Category, id string, p core.EntryPatch) error
		ApplyDeleted(ctx context.Context, userID string, c core.Category, id string) error
	}

	// RowLister reads mirrored rows back, used for reconciliation.
	RowLister interface {
		Rows(ctx context.Context, c core.Category) ([]Row, error)
	}
)

// Row is one mirrored entry.
type Row struct {
	UserID string
	Entry  core.Entry
}
