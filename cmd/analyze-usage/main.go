package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"makertrends/internal/analytics"
	"makertrends/internal/app"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/exporter"
	"makertrends/pkg/contracts/domain"
)

const command = "analyze-usage"

func main() {
	common := app.RegisterFlags(flag.CommandLine)
	flag.Parse()

	os.Exit(app.Main(common.Options(command), run))
}

func run(ctx context.Context, rt *app.Runtime) error {
	var records []domain.UsageRecord
	if err := rt.Stage(ctx, "read", func(ctx context.Context) ([]string, error) {
		var err error
		records, err = exporter.ReadCleanedRecords(rt.Paths.CleanedRecordsCSV)
		return nil, err
	}); err != nil {
		return err
	}
	rt.Printf("Loaded %d cleaned records", len(records))
	if m := rt.Telemetry.Metrics; m != nil {
		m.RowsRead.Add(ctx, int64(len(records)))
	}

	closures, err := rt.Closures()
	if err != nil {
		return err
	}
	aggregator, err := analytics.NewUsageAggregator(rt.Component("analytics"), closures, analytics.UsageConfig{
		MovingAverageWeeks: rt.Config.Analysis.MovingAverageWeeks,
		ExcludeCategories:  rt.Config.Analysis.ExcludeCategories,
		CoverageThreshold:  rt.Config.Analysis.CoverageThreshold,
	})
	if err != nil {
		return apperrors.NewConfigError("cannot create usage aggregator", err)
	}

	usage := exporter.NewUsageExporter(exporter.NewCSVWriter(rt.Paths, rt.Component("exporter")), rt.Paths)

	var series domain.WeeklyUsageSeries
	if err := rt.Stage(ctx, "weekly", func(ctx context.Context) ([]string, error) {
		series = aggregator.WeeklySeries(ctx, records)
		if err := usage.WriteWeeklyUsage(series); err != nil {
			return nil, err
		}
		if m := rt.Telemetry.Metrics; m != nil {
			m.AddArtifact(ctx, "weekly_usage", series.Len())
		}
		return []string{rt.Paths.WeeklyUsageCSV}, nil
	}); err != nil {
		return err
	}
	rt.Manifest.SetCount("weeks", series.Len())
	rt.Printf("Weekly usage: %d weeks, trend %+.2f uses/week", series.Len(), series.Slope)

	var analysis domain.SemesterAnalysis
	if err := rt.Stage(ctx, "semesters", func(ctx context.Context) ([]string, error) {
		analysis = aggregator.Semesters(ctx, records)
		if _, err := usage.WriteSemesterAnalysis(analysis); err != nil {
			return nil, err
		}
		if m := rt.Telemetry.Metrics; m != nil {
			m.AddArtifact(ctx, "weekly_counts", len(analysis.Counts))
			m.AddArtifact(ctx, "weekly_stats", len(analysis.Stats))
		}
		return []string{
			rt.Paths.WeeklyCountsCSV,
			rt.Paths.WeeklyStatsCSV,
			rt.Paths.PivotTableCSV,
			rt.Paths.PeakWeeksCSV,
		}, nil
	}); err != nil {
		return err
	}
	rt.Manifest.SetCount("semesters", len(analysis.Semesters))
	rt.Manifest.SetCount("semester_weeks", len(analysis.Stats))

	rt.Printf("Semester analysis: %d semesters, %d semester weeks", len(analysis.Semesters), len(analysis.Stats))
	if p := analysis.Peaks.Highest; p != nil {
		rt.Printf("  busiest week:  %d (avg %.2f)", p.SemesterWeek, p.AvgUsage)
	}
	if p := analysis.Peaks.Lowest; p != nil {
		rt.Printf("  quietest week: %d (avg %.2f)", p.SemesterWeek, p.AvgUsage)
	}
	if len(analysis.Semesters) == 0 {
		rt.Logger.WarnContext(ctx, "No records carry a semester, semester outputs are empty",
			slog.Int("records", len(records)))
	}
	return nil
}
