package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"makertrends/internal/calendar"
	"makertrends/pkg/contracts/domain"
)

// UsageConfig tunes the usage aggregator.
type UsageConfig struct {
	MovingAverageWeeks int
	// ExcludeCategories are counted in a week's Excluded column instead of
	// its Total, and left out of the semester views.
	ExcludeCategories []string
	// CoverageThreshold is the share of the best-covered semester week a week
	// needs before it can be reported as the quietest.
	CoverageThreshold float64
}

// UsageAggregator builds the weekly usage series and the semester-week views.
type UsageAggregator struct {
	logger *slog.Logger
	filter recordFilter
	config UsageConfig
}

// NewUsageAggregator creates a usage aggregator.
func NewUsageAggregator(logger *slog.Logger, closures *calendar.ClosureCalendar, config UsageConfig) (*UsageAggregator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if closures == nil {
		return nil, fmt.Errorf("usage aggregator needs a closure calendar")
	}
	if config.MovingAverageWeeks < 1 {
		config.MovingAverageWeeks = 4
	}
	if config.CoverageThreshold <= 0 || config.CoverageThreshold > 1 {
		config.CoverageThreshold = 0.75
	}
	return &UsageAggregator{
		logger: logger,
		filter: newRecordFilter(closures, config.ExcludeCategories),
		config: config,
	}, nil
}

// WeeklySeries sums usage per week. Closure weeks are absent, and idle weeks
// between the first and last open week appear with a zero total. Usage in
// excluded categories goes to Excluded and stays out of the total and trend.
func (u *UsageAggregator) WeeklySeries(ctx context.Context, records []domain.UsageRecord) domain.WeeklyUsageSeries {
	totals := make(map[domain.Week]int)
	excluded := make(map[domain.Week]int)
	seen := make(map[domain.Week]struct{})
	dropped, excludedUses := 0, 0
	for _, r := range records {
		if !u.filter.open(r) {
			dropped++
			continue
		}
		seen[r.Week] = struct{}{}
		if u.filter.excluded(r) {
			excluded[r.Week] += r.Count
			excludedUses += r.Count
			continue
		}
		totals[r.Week] += r.Count
	}

	if len(seen) == 0 {
		u.logger.WarnContext(ctx, "No usage outside closure periods",
			slog.Int("records", len(records)),
			slog.Int("closure_records", dropped))
		return domain.WeeklyUsageSeries{}
	}

	var first, last domain.Week
	for w := range seen {
		if first.IsZero() || w.Before(first) {
			first = w
		}
		if last.IsZero() || w.After(last) {
			last = w
		}
	}

	var weeks []domain.Week
	for w := first; !w.After(last); w = w.Next() {
		if u.filter.closures.ContainsWeek(w) {
			continue
		}
		weeks = append(weeks, w)
	}

	values := make([]float64, len(weeks))
	for i, w := range weeks {
		values[i] = float64(totals[w])
	}
	slope, intercept := leastSquares(values)

	series := domain.WeeklyUsageSeries{
		Points:    make([]domain.WeeklyUsagePoint, len(weeks)),
		Slope:     Round2(slope),
		Intercept: Round2(intercept),
	}
	for i, w := range weeks {
		p := domain.WeeklyUsagePoint{
			Week:          w,
			Total:         totals[w],
			Excluded:      excluded[w],
			MovingAverage: Round2(trailingMean(values, i, u.config.MovingAverageWeeks)),
			Trend:         Round2(intercept + slope*float64(i)),
		}
		if i > 0 {
			p.PercentChange = percentChange(values[i-1], values[i])
		}
		series.Points[i] = p
	}

	u.logger.InfoContext(ctx, "Built weekly usage series",
		slog.Int("weeks", len(weeks)),
		slog.String("first_week", first.String()),
		slog.String("last_week", last.String()),
		slog.Int("closure_records", dropped),
		slog.Int("excluded_uses", excludedUses),
		slog.Float64("slope", series.Slope))
	return series
}

// Semesters groups included, term-assigned records by semester week and
// compares each semester week across semesters.
func (u *UsageAggregator) Semesters(ctx context.Context, records []domain.UsageRecord) domain.SemesterAnalysis {
	type cell struct {
		semester string
		week     int
	}
	counts := make(map[cell]int)
	firstSeen := make(map[string]int64)
	for _, r := range records {
		if !r.InSemester() || !u.filter.included(r) {
			continue
		}
		counts[cell{r.Semester, r.SemesterWeek}] += r.Count
		ts := r.Timestamp.UnixNano()
		if at, ok := firstSeen[r.Semester]; !ok || ts < at {
			firstSeen[r.Semester] = ts
		}
	}

	var analysis domain.SemesterAnalysis
	if len(counts) == 0 {
		u.logger.WarnContext(ctx, "No records fall inside a semester")
		return analysis
	}

	for s := range firstSeen {
		analysis.Semesters = append(analysis.Semesters, s)
	}
	sort.Slice(analysis.Semesters, func(i, j int) bool {
		a, b := analysis.Semesters[i], analysis.Semesters[j]
		if firstSeen[a] != firstSeen[b] {
			return firstSeen[a] < firstSeen[b]
		}
		return a < b
	})
	order := make(map[string]int, len(analysis.Semesters))
	for i, s := range analysis.Semesters {
		order[s] = i
	}

	byWeek := make(map[int][]float64)
	for c, n := range counts {
		analysis.Counts = append(analysis.Counts, domain.SemesterWeekCount{Semester: c.semester, SemesterWeek: c.week, Count: n})
	}
	sort.Slice(analysis.Counts, func(i, j int) bool {
		a, b := analysis.Counts[i], analysis.Counts[j]
		if a.Semester != b.Semester {
			return order[a.Semester] < order[b.Semester]
		}
		return a.SemesterWeek < b.SemesterWeek
	})
	for _, c := range analysis.Counts {
		byWeek[c.SemesterWeek] = append(byWeek[c.SemesterWeek], float64(c.Count))
	}

	weeks := make([]int, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	var prevAvg float64
	for i, w := range weeks {
		values := byWeek[w]
		st := weekStats(w, values)
		avg := mean(values)
		if i > 0 {
			st.PercentChange = percentChange(prevAvg, avg)
		}
		prevAvg = avg
		analysis.Stats = append(analysis.Stats, st)
	}

	analysis.Peaks = peakWeeks(analysis.Stats, u.config.CoverageThreshold)

	attrs := []any{
		slog.Int("semesters", len(analysis.Semesters)),
		slog.Int("semester_weeks", len(analysis.Stats)),
	}
	if h := analysis.Peaks.Highest; h != nil {
		attrs = append(attrs, slog.Int("highest_week", h.SemesterWeek), slog.Float64("highest_avg", h.AvgUsage))
	}
	if l := analysis.Peaks.Lowest; l != nil {
		attrs = append(attrs, slog.Int("lowest_week", l.SemesterWeek), slog.Float64("lowest_avg", l.AvgUsage))
	}
	u.logger.InfoContext(ctx, "Built semester week analysis", attrs...)
	return analysis
}

// weekStats summarizes one semester week's per-semester counts.
func weekStats(week int, values []float64) domain.SemesterWeekStats {
	lo, hi := minMax(values)
	return domain.SemesterWeekStats{
		SemesterWeek: week,
		AvgUsage:     Round2(mean(values)),
		StdUsage:     Round2(sampleStd(values)),
		MinUsage:     lo,
		MaxUsage:     hi,
		NumSemesters: len(values),
	}
}

// peakWeeks picks the busiest week overall and the quietest week among those
// seen in at least coverage × the best-covered week's semesters. Ties go to
// the earlier semester week.
func peakWeeks(stats []domain.SemesterWeekStats, coverage float64) domain.PeakWeeks {
	var peaks domain.PeakWeeks
	if len(stats) == 0 {
		return peaks
	}

	maxSemesters := 0
	for _, st := range stats {
		if st.NumSemesters > maxSemesters {
			maxSemesters = st.NumSemesters
		}
	}
	floor := coverage * float64(maxSemesters)

	for i := range stats {
		st := stats[i]
		if peaks.Highest == nil || st.AvgUsage > peaks.Highest.AvgUsage {
			peaks.Highest = &st
		}
		if float64(st.NumSemesters) >= floor && (peaks.Lowest == nil || st.AvgUsage < peaks.Lowest.AvgUsage) {
			peaks.Lowest = &st
		}
	}
	return peaks
}
