package testutil

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makertrends/internal/exporter"
	"makertrends/pkg/contracts/domain"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records and attributes", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.Info("weekly series built", slog.Int("weeks", 12))
		logger.Error("cannot write", slog.String("path", "analysis/weekly_usage.csv"))

		assert.Equal(t, 2, logs.Count())
		assert.True(t, logs.ContainsMessage("weekly series"))
		assert.True(t, logs.ContainsAttr("weeks", int64(12)))
		assert.Len(t, logs.RecordsAt(slog.LevelError), 1)
	})

	t.Run("keeps attributes and groups from derived loggers", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.With(slog.String("stage", "weekly")).WithGroup("chart").Warn("Chart skipped", slog.String("name", "weekly_usage"))

		r, ok := logs.Find("Chart skipped")
		require.True(t, ok)
		assert.Equal(t, "weekly", r.Attrs["stage"])
		assert.Equal(t, "weekly_usage", r.Attrs["chart.name"])
	})

	t.Run("derived loggers share one buffer", func(t *testing.T) {
		logger, logs := NewTestLogger(nil)

		logger.With("a", 1).Info("one")
		logger.Info("two")
		assert.Equal(t, 2, logs.Count())

		logs.Clear()
		assert.Zero(t, logs.Count())
	})
}

func TestFixtures(t *testing.T) {
	paths := Paths(t)
	info, err := os.Stat(paths.AnalysisDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	ts := time.Date(2019, 2, 6, 14, 0, 0, 0, time.UTC)
	r := InSemester(Record(ts, "Jacobs Type A", "Basic 3D Printing", 3), "Spring 2019", 5)
	assert.Equal(t, "2019-02-04", r.Week.String())

	WriteCleaned(t, paths, []domain.UsageRecord{r})
	got, err := exporter.ReadCleanedRecords(paths.CleanedRecordsCSV)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Spring 2019", got[0].Semester)
	assert.Equal(t, 5, got[0].SemesterWeek)

	path := WriteFile(t, paths.RawDir, "log.csv", "Timestamp,Access Type\n")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Access Type\n", string(data))
	assert.True(t, Day(2019, 2, 4).Equal(r.Week.Start()))

	snapshot := SnapshotCSVs(t, paths.BaseDir)
	assert.Contains(t, snapshot, "data/raw/log.csv")
	assert.Contains(t, snapshot, "data/clean/cleaned_records.csv")
}
