package domain

import (
	"fmt"
	"time"
)

// WeekLayout is the date layout used for week keys in every CSV artifact.
const WeekLayout = "2006-01-02"

// Week identifies a Monday-start calendar week by the date of its Monday.
// The zero Week is invalid. Weeks are comparable and safe to use as map keys.
type Week struct {
	start time.Time
}

// WeekOf returns the week containing t. The calendar date of t is taken in
// t's own location, so a timestamp logged as local time lands in the week a
// person at the makerspace would recognise.
func WeekOf(t time.Time) Week {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return Week{start: day.AddDate(0, 0, -offset)}
}

// ParseWeek parses a week key. Any date inside the week is accepted.
func ParseWeek(s string) (Week, error) {
	t, err := time.Parse(WeekLayout, s)
	if err != nil {
		return Week{}, fmt.Errorf("parse week %q: %w", s, err)
	}
	return WeekOf(t), nil
}

// Start returns the Monday of the week at UTC midnight.
func (w Week) Start() time.Time { return w.start }

// End returns the Sunday of the week at UTC midnight.
func (w Week) End() time.Time { return w.start.AddDate(0, 0, 6) }

// Next returns the following week.
func (w Week) Next() Week { return Week{start: w.start.AddDate(0, 0, 7)} }

// Before reports whether w is earlier than o.
func (w Week) Before(o Week) bool { return w.start.Before(o.start) }

// After reports whether w is later than o.
func (w Week) After(o Week) bool { return w.start.After(o.start) }

// IsZero reports whether w is the zero Week.
func (w Week) IsZero() bool { return w.start.IsZero() }

// String returns the week key (the Monday date).
func (w Week) String() string {
	if w.IsZero() {
		return ""
	}
	return w.start.Format(WeekLayout)
}

// ISOLabel returns the ISO-8601 week label, e.g. "2020-W12".
func (w Week) ISOLabel() string {
	if w.IsZero() {
		return ""
	}
	y, n := w.start.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, n)
}
