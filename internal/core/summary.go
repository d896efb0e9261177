package core

// Summary holds the aggregates derived from the three collections.
type Summary struct {
	TotalIncome      Money
	TotalExpenses    Money
	TotalSavings     Money
	AvailableMoney   Money // equals TotalIncome
	RemainingBalance Money // TotalIncome - TotalExpenses; savings not subtracted
}

// Summarize computes the aggregates. Pure: it never touches a store.
func Summarize(income, expenses, savings []Entry) Summary {
	s := Summary{
		TotalIncome:   Total(income),
		TotalExpenses: Total(expenses),
		TotalSavings:  Total(savings),
	}
	s.AvailableMoney = s.TotalIncome
	s.RemainingBalance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// Total sums the amounts of entries.
func Total(entries []Entry) Money {
	var m Money
	for _, e := range entries {
		m = m.Add(e.Amount)
	}
	return m
}

// Overdrawn reports a negative remaining balance.
func (s Summary) Overdrawn() bool { return s.RemainingBalance.Cents < 0 }

// Allows reports whether a new entry of category c and amount a fits the
// remaining balance. Income is never bounded.
func (s Summary) Allows(c Category, a Money) bool {
	if !c.ConsumesBalance() {
		return true
	}
	return a.Cents <= s.RemainingBalance.Cents
}
