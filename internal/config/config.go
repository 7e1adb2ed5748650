package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"makertrends/pkg/contracts/domain"
)

// Config represents the complete pipeline configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Study     StudyConfig     `yaml:"study" envconfig:"STUDY"`
	Equipment EquipmentConfig `yaml:"equipment" envconfig:"EQUIPMENT"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Charts    ChartsConfig    `yaml:"charts" envconfig:"CHARTS"`
	TermsAPI  TermsAPIConfig  `yaml:"terms_api" envconfig:"TERMS_API"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`

	// Reference calendars are file-only; they do not map onto env vars.
	Closures []ClosureConfig `yaml:"closures" ignored:"true" validate:"dive"`
	Terms    []TermConfig    `yaml:"terms" ignored:"true" validate:"dive"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains directory overrides relative to the base directory
type PathsConfig struct {
	RawDir      string `yaml:"raw_dir" envconfig:"RAW_DIR" validate:"required"`
	CleanDir    string `yaml:"clean_dir" envconfig:"CLEAN_DIR" validate:"required"`
	AnalysisDir string `yaml:"analysis_dir" envconfig:"ANALYSIS_DIR" validate:"required"`
	ImageDir    string `yaml:"image_dir" envconfig:"IMAGE_DIR" validate:"required"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// StudyConfig bounds the records considered by the pipeline
type StudyConfig struct {
	Start    string `yaml:"start" envconfig:"START" validate:"required,datetime=2006-01-02"`
	End      string `yaml:"end" envconfig:"END" validate:"required,datetime=2006-01-02"`
	Location string `yaml:"location" envconfig:"LOCATION"`
}

// EquipmentConfig describes the canonical equipment catalog
type EquipmentConfig struct {
	AllowUnknown bool `yaml:"allow_unknown" envconfig:"ALLOW_UNKNOWN"`

	// Aliases maps raw labels to canonical names. Categories maps canonical
	// names to their category. Nil maps fall back to the built-in catalog.
	Aliases    map[string]string `yaml:"aliases" ignored:"true"`
	Categories map[string]string `yaml:"categories" ignored:"true"`
}

// AnalysisConfig tunes the aggregators
type AnalysisConfig struct {
	MovingAverageWeeks int      `yaml:"moving_average_weeks" envconfig:"MOVING_AVERAGE_WEEKS" validate:"min=1,max=52"`
	ExcludeCategories  []string `yaml:"exclude_categories" envconfig:"EXCLUDE_CATEGORIES"`
	CoverageThreshold  float64  `yaml:"coverage_threshold" envconfig:"COVERAGE_THRESHOLD" validate:"gt=0,lte=1"`
}

// ChartsConfig tunes the visualizers
type ChartsConfig struct {
	Format   string  `yaml:"format" envconfig:"FORMAT" validate:"oneof=png svg pdf"`
	WidthIn  float64 `yaml:"width_in" envconfig:"WIDTH_IN" validate:"gt=0"`
	HeightIn float64 `yaml:"height_in" envconfig:"HEIGHT_IN" validate:"gt=0"`
	TopN     int     `yaml:"top_n" envconfig:"TOP_N" validate:"min=1"`
}

// TermsAPIConfig configures the optional campus term-calendar client
type TermsAPIConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	AppID             string        `yaml:"app_id" envconfig:"APP_ID"`
	AppKey            string        `yaml:"app_key" envconfig:"APP_KEY"`
	TermIDs           []string      `yaml:"term_ids" envconfig:"TERM_IDS"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// Enabled reports whether credentials and term IDs are configured.
func (t TermsAPIConfig) Enabled() bool {
	return t.AppID != "" && t.AppKey != "" && len(t.TermIDs) > 0
}

// TelemetryConfig toggles run tracing and metrics
type TelemetryConfig struct {
	Tracing bool `yaml:"tracing" envconfig:"TRACING"`
	Metrics bool `yaml:"metrics" envconfig:"METRICS"`
}

// ClosureConfig is a closure period as written in config.yaml
type ClosureConfig struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start" validate:"required,datetime=2006-01-02"`
	End   string `yaml:"end" validate:"required,datetime=2006-01-02"`
}

// TermConfig is an academic term as written in config.yaml
type TermConfig struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name" validate:"required"`
	Start string `yaml:"start" validate:"required,datetime=2006-01-02"`
	End   string `yaml:"end" validate:"required,datetime=2006-01-02"`
}

// Load loads configuration from defaults, then baseDir/config.yaml (or the
// file named by MAKER_CONFIG), then MAKER_* environment variables.
func Load(baseDir string) (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(baseDir); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyFallbacks()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// applyFallbacks fills values that must never be empty after loading
func (c *Config) applyFallbacks() {
	if c.Equipment.Aliases == nil {
		c.Equipment.Aliases = DefaultAliases()
	}
	if c.Equipment.Categories == nil {
		c.Equipment.Categories = DefaultCategories()
	}
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "both"
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	start, end, err := c.StudyWindow()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("study window ends (%s) before it starts (%s)", c.Study.End, c.Study.Start)
	}

	if _, err := c.ClosurePeriods(); err != nil {
		return err
	}
	if _, err := c.TermList(); err != nil {
		return err
	}

	for alias, canonical := range c.Equipment.Aliases {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(canonical) == "" {
			return fmt.Errorf("equipment alias entries must be non-empty")
		}
	}
	for name, category := range c.Equipment.Categories {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(category) == "" {
			return fmt.Errorf("equipment category entries must be non-empty")
		}
	}

	return nil
}

// Location returns the time zone raw timestamps are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	if c.Study.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Study.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid study location %q: %w", c.Study.Location, err)
	}
	return loc, nil
}

// StudyWindow returns the inclusive study bounds. End is the last instant of the end date.
func (c *Config) StudyWindow() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, c.Study.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid study start: %w", err)
	}
	end, err := time.Parse(DateLayout, c.Study.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid study end: %w", err)
	}
	return start, end, nil
}

// ClosurePeriods converts the configured closures to domain values, ordered by start.
func (c *Config) ClosurePeriods() ([]domain.ClosurePeriod, error) {
	periods := make([]domain.ClosurePeriod, 0, len(c.Closures))
	for i, cc := range c.Closures {
		start, err := time.Parse(DateLayout, cc.Start)
		if err != nil {
			return nil, fmt.Errorf("closure %d: invalid start: %w", i, err)
		}
		end, err := time.Parse(DateLayout, cc.End)
		if err != nil {
			return nil, fmt.Errorf("closure %d: invalid end: %w", i, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("closure %q ends before it starts", cc.Name)
		}
		periods = append(periods, domain.ClosurePeriod{Name: cc.Name, Start: start, End: end})
	}
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })
	return periods, nil
}

// TermList converts the configured terms to domain values, ordered by start.
func (c *Config) TermList() ([]domain.Term, error) {
	terms := make([]domain.Term, 0, len(c.Terms))
	for i, tc := range c.Terms {
		start, err := time.Parse(DateLayout, tc.Start)
		if err != nil {
			return nil, fmt.Errorf("term %d: invalid start: %w", i, err)
		}
		end, err := time.Parse(DateLayout, tc.End)
		if err != nil {
			return nil, fmt.Errorf("term %d: invalid end: %w", i, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("term %q ends before it starts", tc.Name)
		}
		terms = append(terms, domain.Term{ID: tc.ID, Name: tc.Name, Start: start, End: end})
	}
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].Start.Before(terms[j].Start) })
	return terms, nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath(baseDir string) string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		filepath.Join(baseDir, ConfigFileName),
		filepath.Join(baseDir, "configs", ConfigFileName),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "both",
		},
		Paths: PathsConfig{
			RawDir:      filepath.Join("data", "raw"),
			CleanDir:    filepath.Join("data", "clean"),
			AnalysisDir: "analysis",
			ImageDir:    "img",
			LogsDir:     "logs",
		},
		Study: StudyConfig{
			Start: DefaultStudyStart,
			End:   DefaultStudyEnd,
		},
		Analysis: AnalysisConfig{
			MovingAverageWeeks: 4,
			ExcludeCategories:  []string{CategoryEntry},
			CoverageThreshold:  0.75,
		},
		Charts: ChartsConfig{
			Format:   "png",
			WidthIn:  12,
			HeightIn: 6,
			TopN:     10,
		},
		TermsAPI: TermsAPIConfig{
			BaseURL:           DefaultTermsAPIBaseURL,
			TermIDs:           DefaultTermIDs(),
			RequestsPerSecond: 2,
			Timeout:           15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Tracing: false,
			Metrics: true,
		},
		Closures: DefaultClosures(),
	}
}
