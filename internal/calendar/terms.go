package calendar

import (
	"fmt"
	"sort"
	"time"

	"makertrends/pkg/contracts/domain"
)

// TermCalendar assigns records to academic terms and numbers semester weeks.
type TermCalendar struct {
	terms []domain.Term
}

// NewTermCalendar validates and orders terms by start date.
func NewTermCalendar(terms []domain.Term) (*TermCalendar, error) {
	sorted := make([]domain.Term, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if t.Name == "" {
			return nil, fmt.Errorf("term %q has no name", t.ID)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("term %q listed twice", t.Name)
		}
		seen[t.Name] = struct{}{}

		t.Start, t.End = DateOf(t.Start), DateOf(t.End)
		if t.End.Before(t.Start) {
			return nil, fmt.Errorf("term %q ends before it starts", t.Name)
		}
		sorted = append(sorted, t)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	return &TermCalendar{terms: sorted}, nil
}

// Terms returns a copy of the terms in start order.
func (c *TermCalendar) Terms() []domain.Term {
	out := make([]domain.Term, len(c.terms))
	copy(out, c.terms)
	return out
}

// Len returns the number of terms.
func (c *TermCalendar) Len() int { return len(c.terms) }

// Assign returns the term containing the calendar date of t and its semester
// week. Week 1 begins on the Monday on or before the term start. When terms
// overlap the later-starting term wins.
func (c *TermCalendar) Assign(t time.Time) (string, int, bool) {
	d := DateOf(t)
	for i := len(c.terms) - 1; i >= 0; i-- {
		term := c.terms[i]
		if d.Before(term.Start) || d.After(term.End) {
			continue
		}
		first := domain.WeekOf(term.Start).Start()
		days := int(d.Sub(first).Hours() / 24)
		return term.Name, days/7 + 1, true
	}
	return "", 0, false
}
