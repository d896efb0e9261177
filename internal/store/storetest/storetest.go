// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

// Run exercises s. The store must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create assigns id and created_at", func(t *testing.T) {
		e, err := s.Create(ctx, "u1", core.Entry{
			Category: core.Income, Description: "Salary",
			Amount: core.Money{Cents: 1000000}, Date: core.NewDate(2026, 10, 1),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if e.ID == "" || e.CreatedAt.IsZero() {
			t.Fatalf("expected id and created_at, got %+v", e)
		}
	})

	t.Run("list orders by date descending and isolates users", func(t *testing.T) {
		for _, d := range []int{3, 12, 7} {
			if _, err := s.Create(ctx, "u2", core.Entry{
				Category: core.Expense, Description: "e",
				Amount: core.Money{Cents: int64(d)}, Date: core.NewDate(2026, 10, d),
			}); err != nil {
				t.Fatalf("create: %v", err)
			}
			time.Sleep(2 * time.Millisecond)
		}
		got, err := s.List(ctx, "u2", core.Expense)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 3 || got[0].Date.Day() != 12 || got[1].Date.Day() != 7 || got[2].Date.Day() != 3 {
			t.Fatalf("unexpected order: %+v", got)
		}
		other, err := s.List(ctx, "u1", core.Expense)
		if err != nil || len(other) != 0 {
			t.Fatalf("expected no expenses for u1, got %v %v", other, err)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		e, err := s.Create(ctx, "u3", core.Entry{
			Category: core.Saving, Description: "Fund",
			Amount: core.Money{Cents: 500}, Date: core.NewDate(2026, 10, 2),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		amt := core.Money{Cents: 900}
		if err := s.Update(ctx, "u3", core.Saving, e.ID, core.EntryPatch{Amount: &amt}); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, _ := s.List(ctx, "u3", core.Saving)
		if len(got) != 1 || got[0].Amount.Cents != 900 || got[0].Description != "Fund" {
			t.Fatalf("unexpected after update: %+v", got)
		}
		if err := s.Update(ctx, "u3", core.Saving, "missing", core.EntryPatch{Amount: &amt}); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := s.Delete(ctx, "u3", core.Saving, e.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Delete(ctx, "u3", core.Saving, e.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("profiles", func(t *testing.T) {
		if _, err := s.GetProfile(ctx, "nobody"); !errors.Is(err, core.ErrProfileNotFound) {
			t.Fatalf("expected ErrProfileNotFound, got %v", err)
		}
		p := core.Profile{UserID: "u1", Name: "Ana", Email: "ana@example.com", CreatedAt: time.Now().UTC().Truncate(time.Second)}
		if err := s.CreateProfile(ctx, p); err != nil {
			t.Fatalf("create profile: %v", err)
		}
		got, err := s.GetProfile(ctx, "u1")
		if err != nil || got.Name != "Ana" || got.Email != p.Email {
			t.Fatalf("unexpected profile %+v %v", got, err)
		}
	})

	t.Run("accounts", func(t *testing.T) {
		a := store.Account{UserID: "u9", Email: "Bob@Example.com", PasswordHash: []byte("h"), CreatedAt: time.Now().UTC()}
		if err := s.CreateAccount(ctx, a); err != nil {
			t.Fatalf("create account: %v", err)
		}
		if err := s.CreateAccount(ctx, a); !errors.Is(err, store.ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
		got, err := s.AccountByEmail(ctx, "bob@example.com")
		if err != nil || got.UserID != "u9" || string(got.PasswordHash) != "h" {
			t.Fatalf("unexpected account %+v %v", got, err)
		}
		if _, err := s.AccountByEmail(ctx, "x@example.com"); !errors.Is(err, store.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})
}
