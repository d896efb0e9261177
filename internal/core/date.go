package core

import (
	"errors"
	"time"
)

// ISODate is the storage layout; it sorts lexically in calendar order.
const ISODate = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return NewDate(y, int(m), d)
}

// ParseISODate reads the storage layout.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) ISO() string { return d.Time.Format(ISODate) }

// Format renders the day for a locale. es-MX and en-US follow the browser
// short date form; any other locale gets ISO text.
func (d Date) Format(locale string) string {
	switch locale {
	case "es-MX", "es":
		return d.Time.Format("2/1/2006")
	case "en-US", "en":
		return d.Time.Format("1/2/2006")
	}
	return d.ISO()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
