package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Income  Category = "income"
	Expense Category = "expenses"
	Saving  Category = "savings"
)

// Categories lists every ledger category in display order.
var Categories = []Category{Income, Expense, Saving}

type (
	// Category discriminates the three ledger collections. Its value is the
	// store collection name.
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Entry struct {
		ID          string
		Category    Category
		Description string
		Amount      Money
		Date        Date      // set once on creation
		CreatedAt   time.Time // server-assigned, audit only
	}

	// EntryPatch carries the fields of an update. Nil fields stay unchanged.
	EntryPatch struct {
		Description *string
		Amount      *Money
	}

	Profile struct {
		UserID    string
		Name      string
		Email     string
		CreatedAt time.Time
	}
)

// ParseCategory accepts collection names and their singular forms.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "ingreso", "ingresos":
		return Income, nil
	case "expenses", "expense", "gasto", "gastos":
		return Expense, nil
	case "savings", "saving", "ahorro", "ahorros":
		return Saving, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) Valid() bool {
	return c == Income || c == Expense || c == Saving
}

// Collection returns the store collection name.
func (c Category) Collection() string { return string(c) }

// ConsumesBalance reports whether creating an entry of this category is
// bounded by the remaining balance.
func (c Category) ConsumesBalance() bool {
	return c == Expense || c == Saving
}

func (c Category) String() string { return string(c) }

// Validate checks the invariants every stored entry must hold.
func (e Entry) Validate() error {
	if !e.Category.Valid() {
		return ErrUnknownCategory
	}
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if err := e.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	return nil
}

// Apply returns a copy of e with the patch fields applied. ID, Category,
// Date and CreatedAt never change.
func (e Entry) Apply(p EntryPatch) Entry {
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	return e
}

func (p EntryPatch) Validate() error {
	if p.Description == nil && p.Amount == nil {
		return &ValidationError{Field: "patch", Err: ErrEmptyPatch}
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return &ValidationError{Field: "amount", Err: err}
		}
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
