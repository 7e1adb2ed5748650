package domain

import "sort"

// WeeklyUsagePoint is one non-closure week of the usage time series.
type WeeklyUsagePoint struct {
	Week Week
	// Total is the usage that the equipment rankings also count.
	Total int
	// Excluded is usage in excluded categories, such as building entries.
	Excluded      int
	MovingAverage float64
	Trend         float64
	// PercentChange is nil for the first week and after an idle (zero) week.
	PercentChange *float64
}

// WeeklyUsageSeries is strictly ascending in Week with no duplicates and no
// closure weeks. Idle weeks inside the span appear with a zero total.
type WeeklyUsageSeries struct {
	Points    []WeeklyUsagePoint
	Slope     float64 // trend slope in uses per week
	Intercept float64 // trend value at the first week
}

// Len returns the number of weeks in the series.
func (s WeeklyUsageSeries) Len() int { return len(s.Points) }

// TotalFor returns the total for week w and whether w is in the series.
func (s WeeklyUsageSeries) TotalFor(w Week) (int, bool) {
	i := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].Week.Before(w) })
	if i < len(s.Points) && s.Points[i].Week == w {
		return s.Points[i].Total, true
	}
	return 0, false
}

// Dimension selects what the equipment aggregator groups by.
type Dimension string

const (
	DimensionEquipment Dimension = "equipment"
	DimensionCategory  Dimension = "category"
)

// Of returns the identifier of r along the dimension.
func (d Dimension) Of(r UsageRecord) string {
	if d == DimensionCategory {
		return r.EquipmentType
	}
	return r.Equipment
}

// Title returns a human-readable label for charts and logs.
func (d Dimension) Title() string {
	if d == DimensionCategory {
		return "Equipment Category"
	}
	return "Equipment"
}

// EquipmentWeek is one (identifier, week) cell of the equipment aggregation.
type EquipmentWeek struct {
	Week       Week
	Count      int
	Total      int     // usage of all ranked identifiers that week
	Percentage float64 // Count / Total * 100
	Rank       int     // 1 = most used; ties broken by identifier
}

// EquipmentWeeklySeries maps each identifier to its week-ordered cells.
type EquipmentWeeklySeries struct {
	Dimension Dimension
	Series    map[string][]EquipmentWeek
}

// IDs returns the identifiers in byte-wise order.
func (s EquipmentWeeklySeries) IDs() []string {
	ids := make([]string, 0, len(s.Series))
	for id := range s.Series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Weeks returns every week that has at least one cell, ascending.
func (s EquipmentWeeklySeries) Weeks() []Week {
	seen := make(map[Week]struct{})
	for _, cells := range s.Series {
		for _, c := range cells {
			seen[c.Week] = struct{}{}
		}
	}
	weeks := make([]Week, 0, len(seen))
	for w := range seen {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })
	return weeks
}

// RankedEntry is one row of a weekly ranking.
type RankedEntry struct {
	ID         string
	Count      int
	Percentage float64
	Rank       int
}

// WeekRanking is the full ranking for one week.
type WeekRanking struct {
	Week    Week
	Total   int
	Entries []RankedEntry // ordered by Rank
}

// RankConsistency summarizes how an identifier ranked across weeks.
type RankConsistency struct {
	ID          string
	MeanRank    float64
	StdRank     float64
	MinRank     int
	MaxRank     int
	WeeksRanked int
	TotalUses   int
	PeakWeek    Week
	PeakCount   int
}

// TopChange records the top identifier for a week and whether it changed.
type TopChange struct {
	Week    Week
	Top     string
	Count   int
	Changed bool
}

// EquipmentSemesterStats is one identifier's semester week compared across
// semesters. PercentChange is unused.
type EquipmentSemesterStats struct {
	ID string
	SemesterWeekStats
}

// EquipmentPeak holds one identifier's busiest and quietest semester weeks.
type EquipmentPeak struct {
	ID    string
	Peaks PeakWeeks
}

// EquipmentAnalysis bundles every equipment-aggregator output for one dimension.
type EquipmentAnalysis struct {
	Dimension     Dimension
	Series        EquipmentWeeklySeries
	Rankings      []WeekRanking
	Consistency   []RankConsistency
	Top           []TopChange
	SemesterStats []EquipmentSemesterStats // ordered by identifier, then semester week
	Peaks         []EquipmentPeak          // ordered by identifier
}

// SemesterWeekCount is the usage of one semester week in one semester.
type SemesterWeekCount struct {
	Semester     string
	SemesterWeek int
	Count        int
}

// SemesterWeekStats aggregates one semester week across semesters.
type SemesterWeekStats struct {
	SemesterWeek  int
	AvgUsage      float64
	StdUsage      float64
	MinUsage      int
	MaxUsage      int
	NumSemesters  int
	PercentChange *float64
}

// PeakWeeks holds the busiest and quietest semester weeks.
type PeakWeeks struct {
	Highest *SemesterWeekStats
	Lowest  *SemesterWeekStats
}

// SemesterAnalysis bundles the semester-week outputs of the usage aggregator.
type SemesterAnalysis struct {
	Counts    []SemesterWeekCount // ordered by semester start, then week
	Semesters []string            // chronological
	Stats     []SemesterWeekStats // ordered by semester week
	Peaks     PeakWeeks
}
