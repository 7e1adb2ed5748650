// Package calendar holds the date reference data of the pipeline: the closure
// calendar, the study window and the academic term calendar.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"makertrends/pkg/contracts/domain"
)

// DateOf returns the calendar date of t, in t's own location, at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClosureCalendar is an immutable, start-ordered set of closure periods.
type ClosureCalendar struct {
	periods []domain.ClosurePeriod
}

// NewClosureCalendar validates and orders periods. Overlapping periods are allowed.
func NewClosureCalendar(periods []domain.ClosurePeriod) (*ClosureCalendar, error) {
	sorted := make([]domain.ClosurePeriod, 0, len(periods))
	for _, p := range periods {
		if p.Start.IsZero() || p.End.IsZero() {
			return nil, fmt.Errorf("closure %q has an unset bound", p.Name)
		}
		p.Start, p.End = DateOf(p.Start), DateOf(p.End)
		if p.End.Before(p.Start) {
			return nil, fmt.Errorf("closure %q ends before it starts", p.Name)
		}
		sorted = append(sorted, p)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	return &ClosureCalendar{periods: sorted}, nil
}

// Periods returns a copy of the closure periods in start order.
func (c *ClosureCalendar) Periods() []domain.ClosurePeriod {
	out := make([]domain.ClosurePeriod, len(c.periods))
	copy(out, c.periods)
	return out
}

// ContainsDate reports whether the calendar date of t is inside any closure.
func (c *ClosureCalendar) ContainsDate(t time.Time) bool {
	d := DateOf(t)
	for _, p := range c.periods {
		if !d.Before(p.Start) && !d.After(p.End) {
			return true
		}
	}
	return false
}

// ContainsWeek reports whether any day of w falls inside any closure.
func (c *ClosureCalendar) ContainsWeek(w domain.Week) bool {
	_, ok := c.ClosureFor(w)
	return ok
}

// ClosureFor returns the first closure intersecting w.
func (c *ClosureCalendar) ClosureFor(w domain.Week) (domain.ClosurePeriod, bool) {
	for _, p := range c.periods {
		if !w.End().Before(p.Start) && !w.Start().After(p.End) {
			return p, true
		}
	}
	return domain.ClosurePeriod{}, false
}

// StudyWindow is an inclusive range of calendar dates.
type StudyWindow struct {
	Start time.Time
	End   time.Time
}

// NewStudyWindow returns the window [start, end] by calendar date.
func NewStudyWindow(start, end time.Time) (StudyWindow, error) {
	w := StudyWindow{Start: DateOf(start), End: DateOf(end)}
	if w.End.Before(w.Start) {
		return StudyWindow{}, fmt.Errorf("study window ends %s before it starts %s",
			w.End.Format(domain.WeekLayout), w.Start.Format(domain.WeekLayout))
	}
	return w, nil
}

// Contains reports whether the calendar date of t lies in the window.
func (w StudyWindow) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// String formats the window for logs.
func (w StudyWindow) String() string {
	return w.Start.Format(domain.WeekLayout) + ".." + w.End.Format(domain.WeekLayout)
}
