package config

// Environment and file conventions
const (
	EnvPrefix      = "MAKER"
	ConfigFileName = "config.yaml"
	DateLayout     = "2006-01-02"
)

// Spring 2015 through Spring 2024
const (
	DefaultStudyStart = "2015-01-01"
	DefaultStudyEnd   = "2024-05-31"
)

// DefaultTermsAPIBaseURL is the campus Terms API endpoint.
const DefaultTermsAPIBaseURL = "https://gateway.api.berkeley.edu/uat/sis/v2/terms"

// Well-known categories
const (
	CategoryEntry = "Entry"
	CategoryOther = "Other"
)

// Artifact file names. Every stage reads and writes these fixed names.
const (
	CleanedRecordsFile  = "cleaned_records.csv"
	EquipmentLookupFile = "equipment_lookup.csv"
	DiscardReportFile   = "discard_report.csv"
	DiscardedRowsFile   = "discarded_rows.csv"
	TermsFile           = "terms.csv"

	WeeklyUsageFile  = "weekly_usage.csv"
	WeeklyCountsFile = "weekly_counts.csv"
	WeeklyStatsFile  = "weekly_stats.csv"
	PivotTableFile   = "pivot_table.csv"
	PeakWeeksFile    = "peak_weeks.csv"
)

// DefaultTermIDs lists Spring 2016 to Spring 2024 without summers and the
// closure semesters.
func DefaultTermIDs() []string {
	return []string{
		"2162", "2168", "2172", "2178", "2182", "2188", "2192",
		"2198", "2218", "2222", "2228", "2232", "2238", "2242",
	}
}

// DefaultClosures returns the pandemic campus closure.
func DefaultClosures() []ClosureConfig {
	return []ClosureConfig{
		{Name: "COVID-19 campus closure", Start: "2020-03-14", End: "2021-08-25"},
	}
}

// DefaultAliases returns raw labels that were renamed over the years.
func DefaultAliases() map[string]string {
	return map[string]string{
		"Jacobs DiWire Room 220C":        "Jacobs DiWire",
		"Jacobs Vinyl Cutter and Inkjet": "Jacobs Vinyl Cutter",
	}
}

// DefaultCategories returns the canonical equipment catalog.
func DefaultCategories() map[string]string {
	return map[string]string{
		"Jacobs Connex":    "Advanced 3D Printing",
		"Jacobs Dimension": "Advanced 3D Printing",
		"Jacobs Form 3":    "Advanced 3D Printing",
		"Jacobs Fortus":    "Advanced 3D Printing",

		"Jacobs FabLight Laser": "Advanced Prototyping",
		"Jacobs OMAX Waterjet":  "Advanced Prototyping",
		"Jacobs Shopbot":        "Advanced Prototyping",

		"Jacobs Type A": "Basic 3D Printing",

		"Jacobs DiWire":       "Basic Prototyping",
		"Jacobs Inkjet":       "Basic Prototyping",
		"Jacobs Vinyl Cutter": "Basic Prototyping",

		"Jacobs Laser Access": "Laser Cutting",
		"Jacobs Metal Shop":   "Metal Shop",
		"Jacobs Wood Shop":    "Wood Shop",

		"Jacobs MakerPass Access": CategoryEntry,
	}
}
