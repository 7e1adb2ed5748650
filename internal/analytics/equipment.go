package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"makertrends/internal/calendar"
	"makertrends/pkg/contracts/domain"
)

// EquipmentConfig tunes the equipment aggregator.
type EquipmentConfig struct {
	// ExcludeCategories are matched case-insensitively and never ranked.
	ExcludeCategories []string
	// CoverageThreshold applies per identifier when picking its quietest
	// semester week.
	CoverageThreshold float64
}

// EquipmentAggregator ranks equipment and categories week by week and
// compares each identifier's semester weeks.
type EquipmentAggregator struct {
	logger *slog.Logger
	filter recordFilter
	config EquipmentConfig
}

// NewEquipmentAggregator creates an equipment aggregator.
func NewEquipmentAggregator(logger *slog.Logger, closures *calendar.ClosureCalendar, config EquipmentConfig) (*EquipmentAggregator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if closures == nil {
		return nil, fmt.Errorf("equipment aggregator needs a closure calendar")
	}
	if config.CoverageThreshold <= 0 || config.CoverageThreshold > 1 {
		config.CoverageThreshold = 0.75
	}
	return &EquipmentAggregator{
		logger: logger,
		filter: newRecordFilter(closures, config.ExcludeCategories),
		config: config,
	}, nil
}

// Analyze aggregates records along one dimension.
func (a *EquipmentAggregator) Analyze(ctx context.Context, records []domain.UsageRecord, dim domain.Dimension) domain.EquipmentAnalysis {
	counts := make(map[domain.Week]map[string]int)
	skipped := 0
	for _, r := range records {
		if !a.filter.included(r) {
			skipped++
			continue
		}
		id := dim.Of(r)
		if id == "" {
			skipped++
			continue
		}
		if counts[r.Week] == nil {
			counts[r.Week] = make(map[string]int)
		}
		counts[r.Week][id] += r.Count
	}

	analysis := domain.EquipmentAnalysis{
		Dimension: dim,
		Series:    domain.EquipmentWeeklySeries{Dimension: dim, Series: make(map[string][]domain.EquipmentWeek)},
	}

	weeks := make([]domain.Week, 0, len(counts))
	for w := range counts {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	for _, w := range weeks {
		ranking := RankWeek(w, counts[w])
		analysis.Rankings = append(analysis.Rankings, ranking)
		for _, e := range ranking.Entries {
			analysis.Series.Series[e.ID] = append(analysis.Series.Series[e.ID], domain.EquipmentWeek{
				Week:       w,
				Count:      e.Count,
				Total:      ranking.Total,
				Percentage: e.Percentage,
				Rank:       e.Rank,
			})
		}
	}

	analysis.Consistency = Consistency(analysis.Series)
	analysis.Top = TopChanges(analysis.Rankings)
	analysis.SemesterStats = a.SemesterStats(records, dim)
	analysis.Peaks = a.PeakUsage(analysis.SemesterStats)

	a.logger.InfoContext(ctx, "Built equipment rankings",
		slog.String("dimension", string(dim)),
		slog.Int("weeks", len(weeks)),
		slog.Int("identifiers", len(analysis.Series.Series)),
		slog.Int("semester_week_stats", len(analysis.SemesterStats)),
		slog.Int("skipped_records", skipped))
	return analysis
}

// SemesterStats compares each identifier's semester weeks across semesters.
// Only included, term-assigned records count.
func (a *EquipmentAggregator) SemesterStats(records []domain.UsageRecord, dim domain.Dimension) []domain.EquipmentSemesterStats {
	type cell struct {
		id       string
		week     int
		semester string
	}
	counts := make(map[cell]int)
	for _, r := range records {
		if !r.InSemester() || !a.filter.included(r) {
			continue
		}
		id := dim.Of(r)
		if id == "" {
			continue
		}
		counts[cell{id, r.SemesterWeek, r.Semester}] += r.Count
	}

	cells := make([]cell, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		x, y := cells[i], cells[j]
		if x.id != y.id {
			return x.id < y.id
		}
		if x.week != y.week {
			return x.week < y.week
		}
		return x.semester < y.semester
	})

	var out []domain.EquipmentSemesterStats
	for i := 0; i < len(cells); {
		j := i
		var values []float64
		for ; j < len(cells) && cells[j].id == cells[i].id && cells[j].week == cells[i].week; j++ {
			values = append(values, float64(counts[cells[j]]))
		}
		out = append(out, domain.EquipmentSemesterStats{
			ID:                cells[i].id,
			SemesterWeekStats: weekStats(cells[i].week, values),
		})
		i = j
	}
	return out
}

// PeakUsage finds every identifier's busiest semester week and its quietest
// week among those covered by enough semesters. The coverage floor is
// relative to that identifier's best-covered week.
func (a *EquipmentAggregator) PeakUsage(stats []domain.EquipmentSemesterStats) []domain.EquipmentPeak {
	var out []domain.EquipmentPeak
	for i := 0; i < len(stats); {
		j := i
		var weeks []domain.SemesterWeekStats
		for ; j < len(stats) && stats[j].ID == stats[i].ID; j++ {
			weeks = append(weeks, stats[j].SemesterWeekStats)
		}
		out = append(out, domain.EquipmentPeak{
			ID:    stats[i].ID,
			Peaks: peakWeeks(weeks, a.config.CoverageThreshold),
		})
		i = j
	}
	return out
}

// RankWeek orders one week's counts by count descending, then identifier
// byte-wise, and assigns ordinal ranks 1..N. Identifiers with no usage are
// left out.
func RankWeek(w domain.Week, counts map[string]int) domain.WeekRanking {
	ranking := domain.WeekRanking{Week: w}
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		ranking.Total += n
		ranking.Entries = append(ranking.Entries, domain.RankedEntry{ID: id, Count: n})
	}
	sort.Slice(ranking.Entries, func(i, j int) bool {
		a, b := ranking.Entries[i], ranking.Entries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ID < b.ID
	})
	for i := range ranking.Entries {
		e := &ranking.Entries[i]
		e.Rank = i + 1
		e.Percentage = Round2(float64(e.Count) / float64(ranking.Total) * 100)
	}
	return ranking
}

// Consistency summarizes each identifier's ranks, sorted by mean rank then
// identifier.
func Consistency(series domain.EquipmentWeeklySeries) []domain.RankConsistency {
	out := make([]domain.RankConsistency, 0, len(series.Series))
	for _, id := range series.IDs() {
		cells := series.Series[id]
		if len(cells) == 0 {
			continue
		}
		rc := domain.RankConsistency{
			ID:          id,
			MinRank:     math.MaxInt,
			WeeksRanked: len(cells),
		}
		ranks := make([]float64, len(cells))
		for i, c := range cells {
			ranks[i] = float64(c.Rank)
			rc.TotalUses += c.Count
			if c.Rank < rc.MinRank {
				rc.MinRank = c.Rank
			}
			if c.Rank > rc.MaxRank {
				rc.MaxRank = c.Rank
			}
			if c.Count > rc.PeakCount {
				rc.PeakCount = c.Count
				rc.PeakWeek = c.Week
			}
		}
		rc.MeanRank = Round2(mean(ranks))
		rc.StdRank = Round2(sampleStd(ranks))
		out = append(out, rc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MeanRank != out[j].MeanRank {
			return out[i].MeanRank < out[j].MeanRank
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TopChanges lists the rank-1 identifier of every week and flags the weeks
// where it differs from the previous week's.
func TopChanges(rankings []domain.WeekRanking) []domain.TopChange {
	var out []domain.TopChange
	prev := ""
	for _, r := range rankings {
		if len(r.Entries) == 0 {
			continue
		}
		top := r.Entries[0]
		out = append(out, domain.TopChange{
			Week:    r.Week,
			Top:     top.ID,
			Count:   top.Count,
			Changed: prev != "" && prev != top.ID,
		})
		prev = top.ID
	}
	return out
}
