package charts

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makertrends/internal/config"
	"makertrends/internal/shared/testutil"
	"makertrends/pkg/contracts/domain"
)

func newTestRenderer(t *testing.T, format string) (*Renderer, *config.Paths, *testutil.BufferedSlogHandler) {
	t.Helper()
	paths := testutil.Paths(t)
	logger, logs := testutil.NewTestLogger(t)
	cfg := config.Default().Charts
	cfg.Format = format
	cfg.TopN = 2
	return NewRenderer(paths, cfg, logger), paths, logs
}

func week(y int, m time.Month, d int) domain.Week {
	return domain.WeekOf(time.Date(y, m, d, 12, 0, 0, 0, time.UTC))
}

func sampleSeries() domain.WeeklyUsageSeries {
	w := week(2019, 2, 4)
	var s domain.WeeklyUsageSeries
	for i, total := range []int{10, 0, 6, 3} {
		s.Points = append(s.Points, domain.WeeklyUsagePoint{
			Week:          w,
			Total:         total,
			MovingAverage: float64(total) / 2,
			Trend:         7 - 1.5*float64(i),
		})
		w = w.Next()
	}
	return s
}

func sampleCounts() []domain.SemesterWeekCount {
	return []domain.SemesterWeekCount{
		{Semester: "Spring 2015", SemesterWeek: 1, Count: 4},
		{Semester: "Spring 2015", SemesterWeek: 2, Count: 6},
		{Semester: "Fall 2015", SemesterWeek: 1, Count: 8},
		{Semester: "Fall 2015", SemesterWeek: 3, Count: 5},
		{Semester: "Spring 2016", SemesterWeek: 1, Count: 6},
		{Semester: "Summer 2016", SemesterWeek: 1, Count: 1},
	}
}

func sampleEquipment() domain.EquipmentWeeklySeries {
	w1, w2 := week(2019, 2, 4), week(2019, 2, 11)
	return domain.EquipmentWeeklySeries{
		Dimension: domain.DimensionEquipment,
		Series: map[string][]domain.EquipmentWeek{
			"3D Printer":       {{Week: w1, Count: 12, Total: 30, Percentage: 40, Rank: 1}, {Week: w2, Count: 3, Total: 12, Percentage: 25, Rank: 2}},
			"Laser Cutter":     {{Week: w1, Count: 12, Total: 30, Percentage: 40, Rank: 2}, {Week: w2, Count: 9, Total: 12, Percentage: 75, Rank: 1}},
			"Jacobs Wood Shop": {{Week: w1, Count: 6, Total: 30, Percentage: 20, Rank: 3}},
		},
	}
}

func assertWritten(t *testing.T, res Result, wantName string) {
	t.Helper()
	assert.False(t, res.Skipped, res.Reason)
	assert.Equal(t, wantName, filepath.Base(res.Path))
	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestUsageCharts(t *testing.T) {
	r, _, logs := newTestRenderer(t, "png")
	ctx := context.Background()

	res, err := r.WeeklyUsage(ctx, sampleSeries())
	require.NoError(t, err)
	assertWritten(t, res, "weekly_usage.png")

	res, err = r.SemesterHeatmap(ctx, sampleCounts())
	require.NoError(t, err)
	assertWritten(t, res, "semester_heatmap.png")

	res, err = r.SeasonWeeklyUsage(ctx, sampleCounts())
	require.NoError(t, err)
	assertWritten(t, res, "season_weekly_usage.png")

	testutil.AssertNoErrors(t, logs)
	assert.False(t, logs.ContainsMessage("Chart skipped"))
}

func TestEquipmentChartsSVG(t *testing.T) {
	r, _, _ := newTestRenderer(t, "svg")
	ctx := context.Background()
	series := sampleEquipment()

	res, err := r.RankTrends(ctx, series)
	require.NoError(t, err)
	assertWritten(t, res, "equipment_rank_trends.svg")

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<svg"))
	assert.False(t, strings.Contains(string(data), "Jacobs Wood Shop"), "only the top 2 are drawn")

	res, err = r.ShareHeatmap(ctx, series)
	require.NoError(t, err)
	assertWritten(t, res, "equipment_share_heatmap.svg")

	res, err = r.Popularity(ctx, series)
	require.NoError(t, err)
	assertWritten(t, res, "equipment_popularity.svg")
}

func TestEmptyInputsAreSkipped(t *testing.T) {
	r, paths, logs := newTestRenderer(t, "png")
	ctx := context.Background()
	empty := domain.EquipmentWeeklySeries{Dimension: domain.DimensionCategory}

	renders := map[string]func() (Result, error){
		"weekly_usage":           func() (Result, error) { return r.WeeklyUsage(ctx, domain.WeeklyUsageSeries{}) },
		"semester_heatmap":       func() (Result, error) { return r.SemesterHeatmap(ctx, nil) },
		"season_weekly_usage":    func() (Result, error) { return r.SeasonWeeklyUsage(ctx, nil) },
		"category_rank_trends":   func() (Result, error) { return r.RankTrends(ctx, empty) },
		"category_share_heatmap": func() (Result, error) { return r.ShareHeatmap(ctx, empty) },
		"category_popularity":    func() (Result, error) { return r.Popularity(ctx, empty) },
	}
	for name, render := range renders {
		t.Run(name, func(t *testing.T) {
			res, err := render()
			require.NoError(t, err)
			assert.True(t, res.Skipped)
			assert.Equal(t, name, res.Name)
			assert.NotEmpty(t, res.Reason)
			_, err = os.Stat(paths.GetImagePath(name + ".png"))
			assert.True(t, os.IsNotExist(err), "no file is written")
		})
	}
	assert.Len(t, logs.RecordsAt(slog.LevelWarn), len(renders))
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "Chart skipped")
}

func TestRankByPopularity(t *testing.T) {
	got := RankByPopularity(sampleEquipment())
	require.Len(t, got, 3)
	assert.Equal(t, Popularity{ID: "Laser Cutter", Total: 21, Average: 10.5}, got[0])
	assert.Equal(t, Popularity{ID: "3D Printer", Total: 15, Average: 7.5}, got[1])
	assert.Equal(t, Popularity{ID: "Jacobs Wood Shop", Total: 6, Average: 3}, got[2])
}

func TestSeasonAverages(t *testing.T) {
	avg := SeasonAverages(sampleCounts())
	assert.Equal(t, map[int]float64{1: 5, 2: 6}, avg["Spring"])
	assert.Equal(t, map[int]float64{1: 8, 3: 5}, avg["Fall"])
	assert.Equal(t, map[int]float64{1: 1}, avg["Summer"])
}

func TestLabelTicks(t *testing.T) {
	ticks := labelTicks([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, ticks, 5)
	var shown []string
	for _, tk := range ticks {
		if tk.Label != "" {
			shown = append(shown, tk.Label)
		}
	}
	assert.Equal(t, []string{"a", "d"}, shown)
	assert.Len(t, labelTicks([]string{"x", "y"}, 0), 2)
}

func TestUnsupportedFormatIsRenderError(t *testing.T) {
	r, _, _ := newTestRenderer(t, "bmp")
	_, err := r.WeeklyUsage(context.Background(), sampleSeries())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RENDER")
}
