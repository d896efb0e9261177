// Package core provides the ledger domain: categories, entries, money and
// the aggregate summary.
//
// This file contains amount parsing from user text and MXN formatting.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts user text to Money with half-up rounding to cents.
//
// A lone comma is read as the decimal separator ("12,5"); when both a comma
// and a dot appear the comma is a thousands separator ("1,234.56").
// Signs, exponents and non-positive values are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("1500")      -> 150000
//	ParseAmount("12,34")     -> 1234
//	ParseAmount("1,234.567") -> 123457
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.Cmp(decimal.NewFromInt(1<<53)) > 0 {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Cents: cents.IntPart()}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Pesos returns the amount as a float for spreadsheet cells.
// Use Cents for arithmetic.
func (m Money) Pesos() float64 {
	return m.Decimal().InexactFloat64()
}

// MXN formats the amount as es-MX currency text: "$1,234.50", "-$600.00".
func (m Money) MXN() string {
	whole, frac, _ := strings.Cut(m.Decimal().Abs().StringFixed(2), ".")
	var b strings.Builder
	if m.Cents < 0 {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

func (m Money) String() string { return m.MXN() }
