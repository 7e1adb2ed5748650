package analytics

import (
	"makertrends/internal/calendar"
	"makertrends/internal/equipment"
	"makertrends/pkg/contracts/domain"
)

// categorySet matches categories after normalization.
type categorySet map[string]struct{}

func newCategorySet(categories []string) categorySet {
	set := make(categorySet, len(categories))
	for _, c := range categories {
		if n := equipment.Normalize(c); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func (s categorySet) has(category string) bool {
	_, ok := s[equipment.Normalize(category)]
	return ok
}

// recordFilter decides which records reach an aggregate. Both aggregators
// build theirs from the same closures and exclusions, so a week's equipment
// counts add up to its usage total.
type recordFilter struct {
	closures *calendar.ClosureCalendar
	exclude  categorySet
}

func newRecordFilter(closures *calendar.ClosureCalendar, exclude []string) recordFilter {
	return recordFilter{closures: closures, exclude: newCategorySet(exclude)}
}

// open reports whether r lies outside every closure.
func (f recordFilter) open(r domain.UsageRecord) bool {
	return !r.Closure && !f.closures.ContainsWeek(r.Week)
}

// excluded reports whether r belongs to an excluded category.
func (f recordFilter) excluded(r domain.UsageRecord) bool {
	return f.exclude.has(r.EquipmentType)
}

// included reports whether r counts toward totals and rankings.
func (f recordFilter) included(r domain.UsageRecord) bool {
	return f.open(r) && !f.excluded(r)
}
