package main

import (
	"context"
	"flag"
	"os"

	"makertrends/internal/analytics"
	"makertrends/internal/app"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/exporter"
	"makertrends/pkg/contracts/domain"
)

const command = "analyze-equipment"

var dimensions = []domain.Dimension{domain.DimensionEquipment, domain.DimensionCategory}

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
	aggregator, err := analytics.NewEquipmentAggregator(rt.Component("analytics"), closures, analytics.EquipmentConfig{
		ExcludeCategories: rt.Config.Analysis.ExcludeCategories,
		CoverageThreshold: rt.Config.Analysis.CoverageThreshold,
	})
	if err != nil {
		return apperrors.NewConfigError("cannot create equipment aggregator", err)
	}
	exp := exporter.NewEquipmentExporter(exporter.NewCSVWriter(rt.Paths, rt.Component("exporter")), rt.Paths)

	for _, dim := range dimensions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rt.Stage(ctx, string(dim), func(ctx context.Context) ([]string, error) {
			a := aggregator.Analyze(ctx, records, dim)
			if _, err := exp.Export(a); err != nil {
				return nil, err
			}

			rt.Manifest.SetCount(string(dim)+"_ids", len(a.Series.Series))
			rt.Manifest.SetCount(string(dim)+"_weeks", len(a.Rankings))
			rt.Manifest.SetCount(string(dim)+"_semester_weeks", len(a.SemesterStats))
			if m := rt.Telemetry.Metrics; m != nil {
				m.AddArtifact(ctx, string(dim)+"_rank_table", len(a.Rankings))
				m.AddArtifact(ctx, string(dim)+"_consistency", len(a.Consistency))
				m.AddArtifact(ctx, string(dim)+"_semester_stats", len(a.SemesterStats))
			}

			rt.Printf("%s: %d identifiers over %d weeks", dim.Title(), len(a.Series.Series), len(a.Rankings))
			if len(a.Consistency) > 0 {
				best := a.Consistency[0]
				rt.Printf("  most consistently popular: %s (mean rank %.2f)", best.ID, best.MeanRank)
			}

			artifacts := make([]string, 0, len(exporter.EquipmentKinds))
			for _, kind := range exporter.EquipmentKinds {
				artifacts = append(artifacts, rt.Paths.GetEquipmentCSVPath(string(dim), kind))
			}
			return artifacts, nil
		}); err != nil {
			return err
		}
	}
	return nil
}
