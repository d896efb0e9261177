// Package services composes the store with the event publisher.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/store"
)

// LedgerService is a store.Store that publishes a ledger event after every
// committed write. The store is the system of record: a failed publish is
// logged and never fails the write.
type LedgerService struct {
	store.Store
	publisher amqp.Publisher
}

var _ store.Store = (*LedgerService)(nil)

// NewLedgerService wraps st. A nil publisher disables events.
func NewLedgerService(st store.Store, publisher amqp.Publisher) *LedgerService {
	return &LedgerService{Store: st, publisher: publisher}
}

func (s *LedgerService) Create(ctx context.Context, userID string, e core.Entry) (core.Entry, error) {
	created, err := s.Store.Create(ctx, userID, e)
	if err != nil {
		return core.Entry{}, err
	}
	s.publish(ctx, amqp.NewCreatedEvent(userID, created))
	return created, nil
}

func (s *LedgerService) Update(ctx context.Context, userID string, c core.Category, id string, p core.EntryPatch) error {
	if err := s.Store.Update(ctx, userID, c, id, p); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewUpdatedEvent(userID, c, id, p))
	return nil
}

func (s *LedgerService) Delete(ctx context.Context, userID string, c core.Category, id string) error {
	if err := s.Store.Delete(ctx, userID, c, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewDeletedEvent(userID, c, id))
	return nil
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "type", ev.Type)
		return
	}
	// the write is committed; do not let the caller's deadline drop the event
	ctx = context.WithoutCancel(ctx)
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			"entry_id", ev.EntryID,
			"error", err)
	}
}

// Close closes the store and, when it has one, the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
