package memory

import (
	"context"
	"errors"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/store/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.Run(t, New())
}

func TestCreateRejectsInvalidEntry(t *testing.T) {
	s := New()
	_, err := s.Create(context.Background(), "u", core.Entry{Category: core.Income, Description: " ", Amount: core.Money{Cents: 1}})
	if !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
}

func TestFailOn(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailOn("list", boom)
	if _, err := s.List(context.Background(), "u", core.Income); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	s.FailOn("list", nil)
	if _, err := s.List(context.Background(), "u", core.Income); err != nil {
		t.Fatalf("expected cleared failure, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().List(ctx, "u", core.Income); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
