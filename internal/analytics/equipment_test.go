package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makertrends/internal/calendar"
	"makertrends/internal/config"
	"makertrends/pkg/contracts/domain"
)

func newEquipment(t *testing.T, closures *calendar.ClosureCalendar) *EquipmentAggregator {
	t.Helper()
	a, err := NewEquipmentAggregator(nil, closures, EquipmentConfig{ExcludeCategories: []string{"entry"}})
	require.NoError(t, err)
	return a
}

func equipmentRecords() []domain.UsageRecord {
	return []domain.UsageRecord{
		rec(at(2019, 2, 4), "3D Printer", "Basic 3D Printing", 12),
		rec(at(2019, 2, 5), "Laser Cutter", "Laser Cutting", 7),
		rec(at(2019, 2, 6), "Laser Cutter", "Laser Cutting", 5),
		rec(at(2019, 2, 6), "Front Door", "Entry", 50),
		rec(at(2019, 2, 7), "Jacobs Wood Shop", "Wood Shop", 6),
		rec(at(2019, 2, 11), "Laser Cutter", "Laser Cutting", 9),
		rec(at(2019, 2, 12), "3D Printer", "Basic 3D Printing", 3),
		closed(rec(at(2020, 3, 18), "3D Printer", "Basic 3D Printing", 100)),
		rec(at(2020, 4, 1), "Jacobs Wood Shop", "Wood Shop", 40),
	}
}

func TestRankWeekTiesByName(t *testing.T) {
	w := domain.WeekOf(at(2019, 2, 4))
	ranking := RankWeek(w, map[string]int{"Laser Cutter": 12, "3D Printer": 12, "Idle": 0})

	assert.Equal(t, 24, ranking.Total)
	assert.Equal(t, []domain.RankedEntry{
		{ID: "3D Printer", Count: 12, Percentage: 50, Rank: 1},
		{ID: "Laser Cutter", Count: 12, Percentage: 50, Rank: 2},
	}, ranking.Entries)
}

func TestAnalyzeEquipment(t *testing.T) {
	a := newEquipment(t, covidClosures(t))
	analysis := a.Analyze(context.Background(), equipmentRecords(), domain.DimensionEquipment)

	require.Len(t, analysis.Rankings, 2, "closure weeks and excluded categories leave two weeks")
	first := analysis.Rankings[0]
	assert.Equal(t, "2019-02-04", first.Week.String())
	assert.Equal(t, 30, first.Total)
	assert.Equal(t, []domain.RankedEntry{
		{ID: "3D Printer", Count: 12, Percentage: 40, Rank: 1},
		{ID: "Laser Cutter", Count: 12, Percentage: 40, Rank: 2},
		{ID: "Jacobs Wood Shop", Count: 6, Percentage: 20, Rank: 3},
	}, first.Entries)

	second := analysis.Rankings[1]
	assert.Equal(t, 12, second.Total)
	assert.Equal(t, "Laser Cutter", second.Entries[0].ID)
	assert.Equal(t, 75.0, second.Entries[0].Percentage)

	assert.Equal(t, []string{"3D Printer", "Jacobs Wood Shop", "Laser Cutter"}, analysis.Series.IDs())
	assert.NotContains(t, analysis.Series.Series, "Front Door")

	assert.Equal(t, []domain.RankConsistency{
		{ID: "3D Printer", MeanRank: 1.5, StdRank: 0.71, MinRank: 1, MaxRank: 2, WeeksRanked: 2, TotalUses: 15, PeakWeek: first.Week, PeakCount: 12},
		{ID: "Laser Cutter", MeanRank: 1.5, StdRank: 0.71, MinRank: 1, MaxRank: 2, WeeksRanked: 2, TotalUses: 21, PeakWeek: first.Week, PeakCount: 12},
		{ID: "Jacobs Wood Shop", MeanRank: 3, StdRank: 0, MinRank: 3, MaxRank: 3, WeeksRanked: 1, TotalUses: 6, PeakWeek: first.Week, PeakCount: 6},
	}, analysis.Consistency)

	assert.Equal(t, []domain.TopChange{
		{Week: first.Week, Top: "3D Printer", Count: 12, Changed: false},
		{Week: second.Week, Top: "Laser Cutter", Count: 9, Changed: true},
	}, analysis.Top)
}

func TestAnalyzeRanksArePermutations(t *testing.T) {
	a := newEquipment(t, noClosures(t))
	records := equipmentRecords()

	for _, dim := range []domain.Dimension{domain.DimensionEquipment, domain.DimensionCategory} {
		analysis := a.Analyze(context.Background(), records, dim)
		for _, r := range analysis.Rankings {
			seen := make(map[int]bool)
			for _, e := range r.Entries {
				seen[e.Rank] = true
			}
			for rank := 1; rank <= len(r.Entries); rank++ {
				assert.True(t, seen[rank], "%s %s missing rank %d", dim, r.Week, rank)
			}
		}
	}
}

func TestEquipmentCountsMatchWeeklyTotals(t *testing.T) {
	exclude := config.Default().Analysis.ExcludeCategories
	closures := covidClosures(t)
	usage, err := NewUsageAggregator(nil, closures, UsageConfig{ExcludeCategories: exclude})
	require.NoError(t, err)
	equip, err := NewEquipmentAggregator(nil, closures, EquipmentConfig{ExcludeCategories: exclude})
	require.NoError(t, err)

	records := append(equipmentRecords(),
		rec(at(2019, 2, 13), "Jacobs MakerPass Access", config.CategoryEntry, 40),
		rec(at(2019, 2, 13), "Jacobs Type A", "Basic 3D Printing", 5),
	)
	series := usage.WeeklySeries(context.Background(), records)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 50, series.Points[0].Excluded)
	assert.Equal(t, 40, series.Points[1].Excluded)

	for _, dim := range []domain.Dimension{domain.DimensionEquipment, domain.DimensionCategory} {
		analysis := equip.Analyze(context.Background(), records, dim)
		require.Len(t, analysis.Rankings, series.Len(), dim)
		for _, r := range analysis.Rankings {
			sum := 0
			for _, e := range r.Entries {
				sum += e.Count
			}
			assert.Equal(t, r.Total, sum)
			total, ok := series.TotalFor(r.Week)
			require.True(t, ok)
			assert.Equal(t, total, sum, "%s %s", dim, r.Week)
		}
	}
}

func semesterRecords() []domain.UsageRecord {
	return []domain.UsageRecord{
		inSemester(rec(at(2019, 2, 4), "Laser Cutter", "Laser Cutting", 4), "Spring 2019", 1),
		inSemester(rec(at(2019, 2, 5), "Laser Cutter", "Laser Cutting", 2), "Spring 2019", 1),
		inSemester(rec(at(2020, 1, 21), "Laser Cutter", "Laser Cutting", 10), "Spring 2020", 1),
		inSemester(rec(at(2019, 2, 11), "Laser Cutter", "Laser Cutting", 3), "Spring 2019", 2),
		inSemester(rec(at(2019, 2, 4), "3D Printer", "Basic 3D Printing", 5), "Spring 2019", 1),
		inSemester(rec(at(2019, 2, 6), "Front Door", "Entry", 50), "Spring 2019", 1),
		rec(at(2019, 6, 3), "3D Printer", "Basic 3D Printing", 9),
	}
}

func TestEquipmentSemesterStats(t *testing.T) {
	a := newEquipment(t, noClosures(t))

	stats := a.SemesterStats(semesterRecords(), domain.DimensionEquipment)
	assert.Equal(t, []domain.EquipmentSemesterStats{
		{ID: "3D Printer", SemesterWeekStats: domain.SemesterWeekStats{SemesterWeek: 1, AvgUsage: 5, MinUsage: 5, MaxUsage: 5, NumSemesters: 1}},
		{ID: "Laser Cutter", SemesterWeekStats: domain.SemesterWeekStats{SemesterWeek: 1, AvgUsage: 8, StdUsage: 2.83, MinUsage: 6, MaxUsage: 10, NumSemesters: 2}},
		{ID: "Laser Cutter", SemesterWeekStats: domain.SemesterWeekStats{SemesterWeek: 2, AvgUsage: 3, MinUsage: 3, MaxUsage: 3, NumSemesters: 1}},
	}, stats)

	categories := a.SemesterStats(semesterRecords(), domain.DimensionCategory)
	require.Len(t, categories, 3)
	assert.Equal(t, "Basic 3D Printing", categories[0].ID)
	assert.Equal(t, "Laser Cutting", categories[1].ID)
}

func TestEquipmentPeakUsage(t *testing.T) {
	tests := []struct {
		name       string
		coverage   float64
		laserLow   int
		laserPeak  int
		printerLow int
	}{
		{"sparse weeks are skipped", 0.75, 1, 1, 1},
		{"low threshold admits sparse weeks", 0.5, 2, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewEquipmentAggregator(nil, noClosures(t), EquipmentConfig{
				ExcludeCategories: []string{"Entry"},
				CoverageThreshold: tt.coverage,
			})
			require.NoError(t, err)

			peaks := a.PeakUsage(a.SemesterStats(semesterRecords(), domain.DimensionEquipment))
			require.Len(t, peaks, 2)
			assert.Equal(t, "3D Printer", peaks[0].ID)
			assert.Equal(t, tt.printerLow, peaks[0].Peaks.Lowest.SemesterWeek)
			assert.Equal(t, "Laser Cutter", peaks[1].ID)
			assert.Equal(t, tt.laserPeak, peaks[1].Peaks.Highest.SemesterWeek)
			assert.Equal(t, tt.laserLow, peaks[1].Peaks.Lowest.SemesterWeek)
		})
	}
}

func TestAnalyzeIncludesSemesterViews(t *testing.T) {
	a := newEquipment(t, noClosures(t))
	analysis := a.Analyze(context.Background(), semesterRecords(), domain.DimensionEquipment)

	assert.Len(t, analysis.SemesterStats, 3)
	require.Len(t, analysis.Peaks, 2)
	assert.Equal(t, 8.0, analysis.Peaks[1].Peaks.Highest.AvgUsage)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := newEquipment(t, covidClosures(t))
	records := equipmentRecords()

	first := a.Analyze(context.Background(), records, domain.DimensionCategory)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, a.Analyze(context.Background(), records, domain.DimensionCategory))
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	a := newEquipment(t, noClosures(t))
	analysis := a.Analyze(context.Background(), nil, domain.DimensionEquipment)
	assert.Empty(t, analysis.Rankings)
	assert.Empty(t, analysis.Consistency)
	assert.Empty(t, analysis.Top)
}

func TestNewAggregatorsRequireClosures(t *testing.T) {
	_, err := NewEquipmentAggregator(nil, nil, EquipmentConfig{})
	assert.Error(t, err)
	_, err = NewUsageAggregator(nil, nil, UsageConfig{})
	assert.Error(t, err)
}
