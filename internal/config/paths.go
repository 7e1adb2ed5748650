package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the pipeline paths
// This is the single source of truth for every artifact location
type Paths struct {
	BaseDir     string
	DataDir     string
	RawDir      string
	CleanDir    string
	AnalysisDir string
	ImageDir    string
	LogsDir     string
	MetricsDir  string

	// Preparation artifacts
	CleanedRecordsCSV  string
	EquipmentLookupCSV string
	DiscardReportCSV   string
	DiscardedRowsCSV   string
	TermsCSV           string

	// Usage aggregation artifacts
	WeeklyUsageCSV  string
	WeeklyCountsCSV string
	WeeklyStatsCSV  string
	PivotTableCSV   string
	PeakWeeksCSV    string
}

// ResolveBaseDir returns the directory every relative path hangs from.
// An explicit value wins, then MAKER_BASE_DIR, then the working directory.
func ResolveBaseDir(explicit string) (string, error) {
	base := explicit
	if base == "" {
		base = os.Getenv(EnvPrefix + "_BASE_DIR")
	}
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %v", err)
		}
		base = wd
	}

	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory %s: %v", base, err)
	}
	return abs, nil
}

// GetPaths returns the pipeline paths for baseDir using the configured layout.
// baseDir must already be resolved; see ResolveBaseDir.
//
//	<base>/
//	  ├── config.yaml        (optional)
//	  ├── data/
//	  │   ├── raw/           (exported access logs)
//	  │   └── clean/         (prepared records)
//	  ├── analysis/          (aggregator CSVs)
//	  ├── img/               (charts)
//	  └── logs/
//	      └── metrics/
func GetPaths(baseDir string, layout PathsConfig) *Paths {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	rawDir := resolve(layout.RawDir)
	cleanDir := resolve(layout.CleanDir)
	analysisDir := resolve(layout.AnalysisDir)
	logsDir := resolve(layout.LogsDir)

	return &Paths{
		BaseDir:     baseDir,
		DataDir:     filepath.Dir(rawDir),
		RawDir:      rawDir,
		CleanDir:    cleanDir,
		AnalysisDir: analysisDir,
		ImageDir:    resolve(layout.ImageDir),
		LogsDir:     logsDir,
		MetricsDir:  filepath.Join(logsDir, "metrics"),

		CleanedRecordsCSV:  filepath.Join(cleanDir, CleanedRecordsFile),
		EquipmentLookupCSV: filepath.Join(cleanDir, EquipmentLookupFile),
		DiscardReportCSV:   filepath.Join(cleanDir, DiscardReportFile),
		DiscardedRowsCSV:   filepath.Join(cleanDir, DiscardedRowsFile),
		TermsCSV:           filepath.Join(cleanDir, TermsFile),

		WeeklyUsageCSV:  filepath.Join(analysisDir, WeeklyUsageFile),
		WeeklyCountsCSV: filepath.Join(analysisDir, WeeklyCountsFile),
		WeeklyStatsCSV:  filepath.Join(analysisDir, WeeklyStatsFile),
		PivotTableCSV:   filepath.Join(analysisDir, PivotTableFile),
		PeakWeeksCSV:    filepath.Join(analysisDir, PeakWeeksFile),
	}
}

// EnsureDirectories creates all output directories if they don't exist.
// The raw directory is input and is never created here.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.CleanDir,
		p.AnalysisDir,
		p.ImageDir,
		p.LogsDir,
		p.MetricsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetMetricsPath returns the Prometheus textfile path for a command
func (p *Paths) GetMetricsPath(command string) string {
	return filepath.Join(p.MetricsDir, command+".prom")
}

// GetAnalysisPath returns the path for an aggregator artifact
func (p *Paths) GetAnalysisPath(filename string) string {
	return filepath.Join(p.AnalysisDir, filename)
}

// GetImagePath returns the path for a chart
func (p *Paths) GetImagePath(filename string) string {
	return filepath.Join(p.ImageDir, filename)
}

// GetEquipmentCSVPath returns the path of a per-dimension equipment artifact,
// e.g. equipment_weekly.csv or category_rank_table.csv.
func (p *Paths) GetEquipmentCSVPath(dimension, kind string) string {
	return filepath.Join(p.AnalysisDir, fmt.Sprintf("%s_%s.csv", dimension, kind))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved layout for debugging
func (p *Paths) LogPathResolution() {
	slog.Default().Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("raw", p.RawDir),
			slog.String("clean", p.CleanDir),
			slog.String("analysis", p.AnalysisDir),
			slog.String("img", p.ImageDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("artifacts",
			slog.String("cleaned_records", p.CleanedRecordsCSV),
			slog.String("weekly_usage", p.WeeklyUsageCSV),
			slog.Bool("cleaned_records_exists", FileExists(p.CleanedRecordsCSV)),
		))
}
