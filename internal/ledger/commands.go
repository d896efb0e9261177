package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finanzas/internal/core"
)

// Outcome is the result of a command as shown to the user.
type Outcome struct {
	OK      bool         `json:"ok"`
	Message string       `json:"message"`
	Entry   *EntryView   `json:"entry,omitempty"`
	Report  *ResetReport `json:"-"`
	Err     error        `json:"-"`
}

type EntryView struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
}

type SummaryView struct {
	TotalIncome      string `json:"total_income"`
	TotalExpenses    string `json:"total_expenses"`
	TotalSavings     string `json:"total_savings"`
	AvailableMoney   string `json:"available_money"`
	RemainingBalance string `json:"remaining_balance"`
	Overdrawn        bool   `json:"overdrawn"`
}

// View is everything needed to render the ledger.
type View struct {
	UserName string       `json:"user_name,omitempty"`
	Summary  core.Summary `json:"-"`
	Totals   SummaryView  `json:"totals"`
	Income   []EntryView  `json:"income"`
	Expenses []EntryView  `json:"expenses"`
	Savings  []EntryView  `json:"savings"`
}

// Commands turns user input into gateway calls and every result into a
// message. Errors never escape as errors; they are carried in the Outcome.
type Commands struct {
	gw     *Gateway
	locale string
}

func NewCommands(gw *Gateway, locale string) *Commands {
	return &Commands{gw: gw, locale: locale}
}

func (c *Commands) Gateway() *Gateway { return c.gw }

func (c *Commands) entryView(e core.Entry) EntryView {
	return EntryView{
		ID:          e.ID,
		Category:    e.Category.Collection(),
		Description: e.Description,
		Amount:      e.Amount.MXN(),
		AmountCents: e.Amount.Cents,
		Date:        e.Date.Format(c.locale),
	}
}

func failed(err error, msg string) Outcome {
	return Outcome{OK: false, Message: msg, Err: err}
}

// AddEntry parses amountText and creates an entry.
func (c *Commands) AddEntry(ctx context.Context, cat core.Category, description, amountText string) Outcome {
	if c.gw.UserID() == "" {
		return failed(core.ErrUnauthenticated, msgSignInRequired)
	}
	// description is checked before the amount text, as the form does
	if strings.TrimSpace(description) == "" {
		err := &core.ValidationError{Field: "description", Err: core.ErrEmptyDescription}
		return failed(err, msgEmptyDescription)
	}
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		err = &core.ValidationError{Field: "amount", Err: err}
		return failed(err, message(err, "agregar", cat))
	}
	e, err := c.gw.Create(ctx, cat, description, amount)
	if err != nil {
		return failed(err, message(err, "agregar", cat))
	}
	v := c.entryView(e)
	return Outcome{OK: true, Message: addedMessage(e), Entry: &v}
}

// EditEntry changes the description, the amount, or both. Nil inputs are
// left unchanged.
func (c *Commands) EditEntry(ctx context.Context, cat core.Category, id string, newDescription, newAmountText *string) Outcome {
	var p core.EntryPatch
	if newDescription != nil {
		p.Description = newDescription
	}
	if newAmountText != nil {
		amount, err := core.ParseAmount(*newAmountText)
		if err != nil {
			err = &core.ValidationError{Field: "amount", Err: err}
			if c.gw.UserID() == "" {
				return failed(core.ErrUnauthenticated, msgSignInRequired)
			}
			return failed(err, message(err, "actualizar", cat))
		}
		p.Amount = &amount
	}
	e, err := c.gw.Update(ctx, cat, id, p)
	if err != nil {
		return failed(err, message(err, "actualizar", cat))
	}
	v := c.entryView(e)
	return Outcome{OK: true, Message: updatedMessage(cat, p), Entry: &v}
}

// DeleteEntry removes an entry after the user confirmed it.
func (c *Commands) DeleteEntry(ctx context.Context, cat core.Category, id string, confirmed bool) Outcome {
	if err := c.gw.Delete(ctx, cat, id, confirmed); err != nil {
		return failed(err, message(err, "eliminar", cat))
	}
	return Outcome{OK: true, Message: deletedMessage(cat)}
}

// ResetAll wipes the ledger after the user confirmed it.
func (c *Commands) ResetAll(ctx context.Context, confirmed bool) Outcome {
	report, err := c.gw.ResetAll(ctx, confirmed)
	switch {
	case err == nil:
		return Outcome{OK: true, Message: msgResetDone, Report: &report}
	case errors.Is(err, core.ErrUnauthenticated):
		return failed(err, msgSignInRequired)
	case errors.Is(err, core.ErrConfirmationRequired):
		return failed(err, msgResetConfirm)
	case errors.Is(err, core.ErrPartialReset):
		o := failed(err, fmt.Sprintf("%s: no se pudieron eliminar %d registros", msgResetFailed, len(report.Failed)))
		o.Report = &report
		return o
	}
	return failed(err, msgResetFailed)
}

// Reload refreshes the session from the store.
func (c *Commands) Reload(ctx context.Context) Outcome {
	if err := c.gw.Reload(ctx); err != nil {
		if errors.Is(err, core.ErrUnauthenticated) {
			return failed(err, msgSignInRequired)
		}
		return failed(err, msgLoadFailed)
	}
	return Outcome{OK: true}
}

// View renders the aggregates and the three lists.
func (c *Commands) View() (View, error) {
	snap, err := c.gw.Snapshot()
	if err != nil {
		return View{}, err
	}
	s := core.Summarize(snap[core.Income], snap[core.Expense], snap[core.Saving])
	v := View{
		Summary: s,
		Totals: SummaryView{
			TotalIncome:      s.TotalIncome.MXN(),
			TotalExpenses:    s.TotalExpenses.MXN(),
			TotalSavings:     s.TotalSavings.MXN(),
			AvailableMoney:   s.AvailableMoney.MXN(),
			RemainingBalance: s.RemainingBalance.MXN(),
			Overdrawn:        s.Overdrawn(),
		},
		Income:   c.views(snap[core.Income]),
		Expenses: c.views(snap[core.Expense]),
		Savings:  c.views(snap[core.Saving]),
	}
	if p, ok := c.gw.Profile(); ok {
		v.UserName = p.Name
	}
	return v, nil
}

func (c *Commands) views(entries []core.Entry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.entryView(e))
	}
	return out
}

// Message maps any gateway error to its user-facing text.
func Message(err error, c core.Category) string {
	return message(err, "procesar", c)
}
