package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"makertrends/internal/app"
	"makertrends/internal/calendar"
	"makertrends/internal/dataprocessing"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/exporter"
	"makertrends/internal/files"
	"makertrends/internal/terms"
	"makertrends/internal/validation"
	"makertrends/pkg/contracts/domain"
)

const command = "prepare"

type options struct {
	inDir   string
	noTerms bool
}

func main() {
	common := app.RegisterFlags(flag.CommandLine)
	inDir := flag.String("in", "", "directory of raw .csv/.xlsx access logs (defaults to data/raw)")
	noTerms := flag.Bool("no-terms", false, "skip term resolution; records get no semester")
	flag.Parse()

	os.Exit(app.Main(common.Options(command), run(options{inDir: *inDir, noTerms: *noTerms})))
}

func run(opts options) func(ctx context.Context, rt *app.Runtime) error {
	return func(ctx context.Context, rt *app.Runtime) error {
		inDir := opts.inDir
		if inDir == "" {
			inDir = rt.Paths.RawDir
		}

		var inputs []files.FileInfo
		if err := rt.Stage(ctx, "discover", func(ctx context.Context) ([]string, error) {
			validator := validation.NewFileValidator(rt.Component("validation"))
			if err := validator.ValidateInputDirectory(inDir); err != nil {
				return nil, err
			}
			found, err := files.NewDiscovery(rt.Paths.BaseDir).FindInputFiles(inDir)
			if err != nil {
				return nil, apperrors.NewInputError("cannot list input files", err).WithContext("dir", inDir)
			}
			if len(found) == 0 {
				return nil, apperrors.NewInputError("no .csv or .xlsx files in "+inDir, nil)
			}
			for _, f := range found {
				if err := validator.ValidateInputFile(f.Path); err != nil {
					return nil, err
				}
			}
			inputs = found
			return nil, nil
		}); err != nil {
			return err
		}
		rt.Printf("Found %d input files in %s", len(inputs), inDir)

		writer := exporter.NewCSVWriter(rt.Paths, rt.Component("exporter"))
		prepared := exporter.NewPreparedExporter(writer, rt.Paths)

		var termCal *calendar.TermCalendar
		if !opts.noTerms {
			if err := rt.Stage(ctx, "terms", func(ctx context.Context) ([]string, error) {
				cal, source, err := resolveTerms(ctx, rt, prepared)
				if err != nil {
					return nil, err
				}
				termCal = cal
				if source == terms.SourceAPI {
					return []string{rt.Paths.TermsCSV}, nil
				}
				return nil, nil
			}); err != nil {
				return err
			}
		}

		cfg, err := preparerConfig(rt, termCal)
		if err != nil {
			return err
		}
		preparer, err := dataprocessing.NewPreparer(rt.Component("preparer"), cfg)
		if err != nil {
			return apperrors.NewConfigError("cannot create preparer", err)
		}

		var ds *domain.PreparedDataset
		if err := rt.Stage(ctx, "prepare", func(ctx context.Context) ([]string, error) {
			ds, err = preparer.Prepare(ctx, inputs)
			return nil, err
		}); err != nil {
			return err
		}
		rt.Logger.InfoContext(ctx, "Prepared usage records", dataprocessing.Summary(ds)...)
		recordCounts(ctx, rt, ds)
		rt.Printf("Read %d rows: kept %d records, discarded %d", ds.RowsRead, len(ds.Records), ds.Discards.Total())
		for _, reason := range ds.Discards.Reasons() {
			rt.Printf("  %-22s %d", reason, ds.Discards.Counts[reason])
		}

		return rt.Stage(ctx, "export", func(ctx context.Context) ([]string, error) {
			if _, err := prepared.Export(ds); err != nil {
				return nil, err
			}
			artifacts := []string{
				rt.Paths.CleanedRecordsCSV,
				rt.Paths.EquipmentLookupCSV,
				rt.Paths.DiscardReportCSV,
				rt.Paths.DiscardedRowsCSV,
			}
			if m := rt.Telemetry.Metrics; m != nil {
				m.AddArtifact(ctx, "cleaned_records", len(ds.Records))
				m.AddArtifact(ctx, "equipment_lookup", len(ds.Lookup))
				m.AddArtifact(ctx, "discard_report", len(ds.Discards.Counts))
				m.AddArtifact(ctx, "discarded_rows", len(ds.Discards.Rows))
			}
			rt.Printf("Wrote %s", rt.Paths.CleanedRecordsCSV)
			return artifacts, nil
		})
	}
}

// resolveTerms builds the term calendar from the first available source.
func resolveTerms(ctx context.Context, rt *app.Runtime, prepared *exporter.PreparedExporter) (*calendar.TermCalendar, terms.Source, error) {
	var client *terms.Client
	if rt.Config.TermsAPI.Enabled() {
		client = terms.NewClient(rt.Config.TermsAPI, rt.Component("terms"))
	}

	list, source, err := terms.NewResolver(rt.Config, rt.Paths, client, prepared, rt.Component("terms")).Resolve(ctx)
	if err != nil {
		return nil, terms.SourceNone, err
	}
	if source == terms.SourceNone {
		rt.Logger.WarnContext(ctx, "No term calendar available, records get no semester")
		rt.Printf("No term calendar available; semester columns will be empty")
		return nil, source, nil
	}

	cal, err := calendar.NewTermCalendar(list)
	if err != nil {
		return nil, terms.SourceNone, apperrors.NewConfigError("invalid term calendar", err)
	}
	rt.Logger.InfoContext(ctx, "Resolved term calendar",
		slog.String("source", string(source)),
		slog.Int("terms", len(list)))
	rt.Printf("Using %d terms from %s", len(list), source)
	return cal, source, nil
}

func preparerConfig(rt *app.Runtime, termCal *calendar.TermCalendar) (dataprocessing.PreparerConfig, error) {
	catalog, err := rt.Catalog()
	if err != nil {
		return dataprocessing.PreparerConfig{}, err
	}
	closures, err := rt.Closures()
	if err != nil {
		return dataprocessing.PreparerConfig{}, err
	}
	window, err := rt.StudyWindow()
	if err != nil {
		return dataprocessing.PreparerConfig{}, err
	}
	loc, err := rt.Config.Location()
	if err != nil {
		return dataprocessing.PreparerConfig{}, apperrors.NewConfigError("invalid study location", err)
	}
	return dataprocessing.PreparerConfig{
		Catalog:  catalog,
		Window:   window,
		Closures: closures,
		Terms:    termCal,
		Location: loc,
	}, nil
}

func recordCounts(ctx context.Context, rt *app.Runtime, ds *domain.PreparedDataset) {
	rt.Manifest.SetCount("rows_read", ds.RowsRead)
	rt.Manifest.SetCount("records", len(ds.Records))
	rt.Manifest.SetCount("discarded", ds.Discards.Total())
	for _, reason := range ds.Discards.Reasons() {
		rt.Manifest.SetCount(fmt.Sprintf("discarded_%s", reason), ds.Discards.Counts[reason])
	}

	m := rt.Telemetry.Metrics
	if m == nil {
		return
	}
	m.RowsRead.Add(ctx, int64(ds.RowsRead))
	m.RecordsWritten.Add(ctx, int64(len(ds.Records)))
	for _, reason := range ds.Discards.Reasons() {
		m.AddDiscards(ctx, string(reason), ds.Discards.Counts[reason])
	}
}
