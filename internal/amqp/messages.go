package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finanzas/internal/core"
)

// EventType names a ledger change.
type EventType string

const (
	EntryCreated EventType = "entry.created"
	EntryUpdated EventType = "entry.updated"
	EntryDeleted EventType = "entry.deleted"
)

// LedgerEvent describes one committed ledger change. Updates carry only
// the changed fields; deletes carry only the identity fields.
type LedgerEvent struct {
	Type        EventType `json:"type"`
	UserID      string    `json:"user_id"`
	Category    string    `json:"category"`
	EntryID     string    `json:"entry_id"`
	Description *string   `json:"description,omitempty"`
	AmountCents *int64    `json:"amount_cents,omitempty"`
	Date        string    `json:"date,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewCreatedEvent describes a freshly stored entry.
func NewCreatedEvent(userID string, e core.Entry) *LedgerEvent {
	desc, cents := e.Description, e.Amount.Cents
	return &LedgerEvent{
		Type:        EntryCreated,
		UserID:      userID,
		Category:    e.Category.Collection(),
		EntryID:     e.ID,
		Description: &desc,
		AmountCents: &cents,
		Date:        e.Date.ISO(),
		Timestamp:   time.Now(),
	}
}

func NewUpdatedEvent(userID string, c core.Category, id string, p core.EntryPatch) *LedgerEvent {
	ev := &LedgerEvent{
		Type:      EntryUpdated,
		UserID:    userID,
		Category:  c.Collection(),
		EntryID:   id,
		Timestamp: time.Now(),
	}
	if p.Description != nil {
		d := *p.Description
		ev.Description = &d
	}
	if p.Amount != nil {
		cents := p.Amount.Cents
		ev.AmountCents = &cents
	}
	return ev
}

func NewDeletedEvent(userID string, c core.Category, id string) *LedgerEvent {
	return &LedgerEvent{
		Type:      EntryDeleted,
		UserID:    userID,
		Category:  c.Collection(),
		EntryID:   id,
		Timestamp: time.Now(),
	}
}

// Entry rebuilds the entry carried by a created event.
func (m *LedgerEvent) Entry() (core.Entry, error) {
	cat, err := core.ParseCategory(m.Category)
	if err != nil {
		return core.Entry{}, err
	}
	e := core.Entry{ID: m.EntryID, Category: cat}
	if m.Description != nil {
		e.Description = *m.Description
	}
	if m.AmountCents != nil {
		e.Amount = core.Money{Cents: *m.AmountCents}
	}
	if m.Date != "" {
		if e.Date, err = core.ParseISODate(m.Date); err != nil {
			return core.Entry{}, err
		}
	}
	return e, nil
}

// Patch rebuilds the patch carried by an updated event.
func (m *LedgerEvent) Patch() core.EntryPatch {
	var p core.EntryPatch
	if m.Description != nil {
		d := *m.Description
		p.Description = &d
	}
	if m.AmountCents != nil {
		p.Amount = &core.Money{Cents: *m.AmountCents}
	}
	return p
}

// Validate checks the fields every event type needs.
func (m *LedgerEvent) Validate() error {
	if m.UserID == "" || m.EntryID == "" {
		return fmt.Errorf("event %s: missing user or entry id", m.Type)
	}
	if _, err := core.ParseCategory(m.Category); err != nil {
		return err
	}
	switch m.Type {
	case EntryCreated, EntryUpdated, EntryDeleted:
		return nil
	}
	return fmt.Errorf("unknown event type %q", m.Type)
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON parses and validates a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
