package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"makertrends/internal/app"
	"makertrends/internal/charts"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/exporter"
	"makertrends/pkg/contracts/domain"
)

const command = "visualize"

var dimensions = []domain.Dimension{domain.DimensionEquipment, domain.DimensionCategory}

func main() {
	common := app.RegisterFlags(flag.CommandLine)
	format := flag.String("format", "", "image format: png, svg or pdf (overrides charts.format)")
	flag.Parse()

	if err := checkFormat(*format); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		flag.Usage()
		os.Exit(apperrors.ExitCode(err))
	}

	os.Exit(app.Main(common.Options(command), func(ctx context.Context, rt *app.Runtime) error {
		if *format != "" {
			rt.Config.Charts.Format = *format
		}
		return run(ctx, rt)
	}))
}

// checkFormat accepts an empty -format, which keeps charts.format.
func checkFormat(format string) error {
	if format == "" || slices.Contains(charts.Formats, format) {
		return nil
	}
	return apperrors.NewUsageError(fmt.Sprintf("unknown -format %q, want one of %s", format, strings.Join(charts.Formats, ", ")))
}

func run(ctx context.Context, rt *app.Runtime) error {
	renderer := charts.NewRenderer(rt.Paths, rt.Config.Charts, rt.Component("charts"))

	if err := rt.Stage(ctx, "usage", func(ctx context.Context) ([]string, error) {
		return usageCharts(ctx, rt, renderer)
	}); err != nil {
		return err
	}

	for _, dim := range dimensions {
		if err := rt.Stage(ctx, string(dim), func(ctx context.Context) ([]string, error) {
			return equipmentCharts(ctx, rt, renderer, dim)
		}); err != nil {
			return err
		}
	}

	written := len(rt.Manifest.Artifacts())
	rt.Manifest.SetCount("charts_written", written)
	rt.Manifest.SetCount("charts_skipped", len(rt.Manifest.SkippedCharts))
	rt.Printf("Wrote %d charts to %s, skipped %d", written, rt.Paths.ImageDir, len(rt.Manifest.SkippedCharts))
	return nil
}

func usageCharts(ctx context.Context, rt *app.Runtime, renderer *charts.Renderer) ([]string, error) {
	series, err := exporter.ReadWeeklyUsage(rt.Paths.WeeklyUsageCSV)
	if err != nil {
		return nil, err
	}
	counts, err := exporter.ReadWeeklyCounts(rt.Paths.WeeklyCountsCSV)
	if err != nil {
		return nil, err
	}

	renders := []func() (charts.Result, error){
		func() (charts.Result, error) { return renderer.WeeklyUsage(ctx, series) },
		func() (charts.Result, error) { return renderer.SemesterHeatmap(ctx, counts) },
		func() (charts.Result, error) { return renderer.SeasonWeeklyUsage(ctx, counts) },
	}
	return renderAll(ctx, rt, renders)
}

func equipmentCharts(ctx context.Context, rt *app.Runtime, renderer *charts.Renderer, dim domain.Dimension) ([]string, error) {
	series, err := exporter.ReadEquipmentWeekly(rt.Paths.GetEquipmentCSVPath(string(dim), exporter.KindWeekly), dim)
	if err != nil {
		return nil, err
	}

	renders := []func() (charts.Result, error){
		func() (charts.Result, error) { return renderer.RankTrends(ctx, series) },
		func() (charts.Result, error) { return renderer.ShareHeatmap(ctx, series) },
		func() (charts.Result, error) { return renderer.Popularity(ctx, series) },
	}
	return renderAll(ctx, rt, renders)
}

// renderAll runs each render in order. Skipped charts are reported, not failed.
func renderAll(ctx context.Context, rt *app.Runtime, renders []func() (charts.Result, error)) ([]string, error) {
	var written []string
	for _, render := range renders {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		res, err := render()
		if err != nil {
			return written, err
		}
		if res.Skipped {
			rt.Manifest.RecordSkippedChart(res.Name)
			if m := rt.Telemetry.Metrics; m != nil {
				m.ChartsSkipped.Add(ctx, 1)
			}
			rt.Printf("Skipped %s: %s", res.Name, res.Reason)
			continue
		}
		if m := rt.Telemetry.Metrics; m != nil {
			m.AddArtifact(ctx, res.Name, 0)
		}
		rt.Printf("Wrote %s", res.Path)
		written = append(written, res.Path)
	}
	return written, nil
}
