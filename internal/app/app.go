package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"makertrends/internal/calendar"
	"makertrends/internal/config"
	"makertrends/internal/equipment"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/files"
	"makertrends/internal/infrastructure"
	"makertrends/pkg/contracts"
)

const AppName = "Makerspace Usage Trends"

// Options configure one pipeline command.
type Options struct {
	Command string
	BaseDir string    // empty: MAKER_BASE_DIR, then the working directory
	Stdout  io.Writer // console progress lines and JSON logs
	Stderr  io.Writer // fatal error line

	ShowVersion bool // print the version and exit without running
}

// Runtime is everything a pipeline command needs: configuration, paths,
// logging, telemetry and the run manifest.
type Runtime struct {
	Command   string
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Manifest  *RunManifest

	out     io.Writer
	logFile *os.File
	files   *files.Manager
}

// New loads configuration, prepares the directory layout and starts logging
// and telemetry. The returned context carries the run trace ID, reusing one
// already present in ctx.
func New(ctx context.Context, opts Options) (*Runtime, context.Context, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	baseDir, err := config.ResolveBaseDir(opts.BaseDir)
	if err != nil {
		return nil, ctx, apperrors.NewConfigError("cannot resolve base directory", err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, ctx, apperrors.NewConfigError("cannot load configuration", err)
	}

	paths := config.GetPaths(baseDir, cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, ctx, apperrors.NewStorageError("cannot create output directories", err)
	}

	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = paths.GetLogPath(opts.Command + ".log")
	}
	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, opts.Stdout)
	if err != nil {
		return nil, ctx, apperrors.NewConfigError("cannot initialize logger", err)
	}
	slog.SetDefault(logger)

	ctx = infrastructure.EnsureTraceID(ctx)
	traceID := infrastructure.GetTraceID(ctx)

	telemetry, err := infrastructure.InitializeTelemetry(ctx, infrastructure.TelemetryConfig{
		Command:       opts.Command,
		EnableTracing: cfg.Telemetry.Tracing,
		EnableMetrics: cfg.Telemetry.Metrics,
		TracePath:     paths.GetLogPath(opts.Command + ".trace.json"),
		MetricsPath:   paths.GetMetricsPath(opts.Command),
	}, logger)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, ctx, apperrors.NewConfigError("cannot initialize telemetry", err)
	}

	rt := &Runtime{
		Command:   opts.Command,
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: telemetry,
		Manifest:  NewRunManifest(traceID, opts.Command),
		out:       opts.Stdout,
		logFile:   logFile,
		files:     files.NewManager(paths),
	}

	logger.InfoContext(ctx, "Command starting",
		slog.String("app", AppName),
		slog.String("version", contracts.Version),
		slog.String("data_format", contracts.DataFormatVersion),
		slog.String("command", opts.Command),
		slog.String("base_dir", baseDir))
	paths.LogPathResolution()

	return rt, ctx, nil
}

// Component returns the run logger tagged with a component name.
func (r *Runtime) Component(name string) *slog.Logger {
	return infrastructure.WithComponent(r.Logger, name)
}

// Printf writes one console progress line.
func (r *Runtime) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Stage runs fn inside a span, times it and records it in the manifest. fn
// returns the artifacts it wrote.
func (r *Runtime) Stage(ctx context.Context, name string, fn func(ctx context.Context) ([]string, error)) error {
	ctx, span := r.Telemetry.StartStage(ctx, name)
	defer span.End()

	started := time.Now()
	r.Manifest.RecordStageStart(name)
	r.Logger.InfoContext(ctx, "Stage started")

	artifacts, err := fn(ctx)
	if r.Telemetry.Metrics != nil {
		r.Telemetry.Metrics.ObserveStage(ctx, name, started)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		r.Manifest.RecordStageFailure(name, err)
		return err
	}

	rel := make([]string, len(artifacts))
	for i, a := range artifacts {
		rel[i] = r.files.RelativePath(a)
	}
	r.Manifest.RecordStageCompletion(name, rel)
	r.Logger.InfoContext(ctx, "Stage completed",
		slog.Int("artifacts", len(artifacts)),
		slog.Duration("duration", time.Since(started)))
	return nil
}

// Close finishes the run: it writes the manifest, flushes telemetry and
// closes the log file. runErr is the command's result.
func (r *Runtime) Close(ctx context.Context, runErr error) error {
	var errs []error

	r.Manifest.Finish(runErr)
	if err := r.Manifest.Save(r.files, r.Paths.GetLogPath(r.Command+".manifest.json")); err != nil {
		errs = append(errs, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.Telemetry.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	if r.logFile != nil {
		if err := r.logFile.Close(); err != nil {
			errs = append(errs, err)
		}
		r.logFile = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close run: %w", errors.Join(errs...))
	}
	return nil
}

// Catalog builds the equipment catalog from configuration.
func (r *Runtime) Catalog() (*equipment.Catalog, error) {
	c, err := equipment.NewCatalog(r.Config.Equipment.Categories, r.Config.Equipment.Aliases, r.Config.Equipment.AllowUnknown)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid equipment catalog", err)
	}
	r.Logger.Debug("Equipment catalog loaded",
		slog.Int("equipment", len(c.Names())),
		slog.Any("categories", c.Categories()),
		slog.Bool("allow_unknown", c.AllowsUnknown()))
	return c, nil
}

// Closures builds the closure calendar from configuration.
func (r *Runtime) Closures() (*calendar.ClosureCalendar, error) {
	periods, err := r.Config.ClosurePeriods()
	if err != nil {
		return nil, apperrors.NewConfigError("invalid closure periods", err)
	}
	c, err := calendar.NewClosureCalendar(periods)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid closure periods", err)
	}
	for _, p := range c.Periods() {
		r.Logger.Debug("Closure period",
			slog.String("name", p.Name),
			slog.String("start", p.Start.Format(time.DateOnly)),
			slog.String("end", p.End.Format(time.DateOnly)))
	}
	return c, nil
}

// StudyWindow builds the inclusive study window from configuration.
func (r *Runtime) StudyWindow() (calendar.StudyWindow, error) {
	start, end, err := r.Config.StudyWindow()
	if err != nil {
		return calendar.StudyWindow{}, apperrors.NewConfigError("invalid study window", err)
	}
	w, err := calendar.NewStudyWindow(start, end)
	if err != nil {
		return calendar.StudyWindow{}, apperrors.NewConfigError("invalid study window", err)
	}
	return w, nil
}

// Main runs one command to completion and returns its exit code. SIGINT and
// SIGTERM cancel the run context.
func Main(opts Options, run func(ctx context.Context, rt *Runtime) error) int {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.ShowVersion {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintln(out, contracts.GetFullVersionString())
		return apperrors.ExitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, ctx, err := New(ctx, opts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "%s: %v\n", opts.Command, err)
		return apperrors.ExitCode(err)
	}

	runErr := run(ctx, rt)
	if runErr != nil {
		rt.Logger.ErrorContext(ctx, "Command failed", apperrors.LogAttrs(runErr)...)
		fmt.Fprintf(opts.Stderr, "%s: %v\n", opts.Command, runErr)
	} else {
		rt.Logger.InfoContext(ctx, "Command completed", slog.String("command", opts.Command))
	}

	if err := rt.Close(ctx, runErr); err != nil {
		fmt.Fprintf(opts.Stderr, "%s: %v\n", opts.Command, err)
		if runErr == nil {
			return apperrors.ExitFailure
		}
	}
	return apperrors.ExitCode(runErr)
}
