package exporter

import (
	"fmt"
	"sort"

	"makertrends/internal/config"
	apperrors "makertrends/internal/errors"
	"makertrends/pkg/contracts/domain"
)

// Column headers of the usage aggregator artifacts.
var (
	WeeklyUsageHeaders = []string{"Week", "ISOWeek", "Total", "Excluded", "MovingAverage", "Trend", "PercentChange"}
	WeeklyCountHeaders = []string{"Semester", "SemesterWeek", "Count"}
	WeeklyStatsHeaders = []string{"SemesterWeek", "AvgUsage", "StdUsage", "MinUsage", "MaxUsage", "NumSemesters", "PercentChange"}
	PeakWeekHeaders    = []string{"Peak", "SemesterWeek", "AvgUsage", "StdUsage", "MinUsage", "MaxUsage", "NumSemesters"}
)

const (
	pivotFirstColumn = "SemesterWeek"
	peakHighest      = "highest"
	peakLowest       = "lowest"
)

// UsageExporter writes the outputs of the usage aggregator.
type UsageExporter struct {
	writer *CSVWriter
	paths  *config.Paths
}

// NewUsageExporter creates an exporter that writes into the analysis directory.
func NewUsageExporter(writer *CSVWriter, paths *config.Paths) *UsageExporter {
	return &UsageExporter{writer: writer, paths: paths}
}

// WriteWeeklyUsage writes the weekly series.
func (e *UsageExporter) WriteWeeklyUsage(series domain.WeeklyUsageSeries) error {
	rows := make([][]string, 0, series.Len())
	for _, p := range series.Points {
		rows = append(rows, []string{
			p.Week.String(),
			p.Week.ISOLabel(),
			formatInt(p.Total),
			formatInt(p.Excluded),
			formatFloat(p.MovingAverage),
			formatFloat(p.Trend),
			formatOptionalFloat(p.PercentChange),
		})
	}
	return e.writer.WriteCSV(e.paths.WeeklyUsageCSV, WeeklyUsageHeaders, rows)
}

// WriteSemesterAnalysis writes weekly counts, stats, the pivot table and peak
// weeks. It returns the number of files written.
func (e *UsageExporter) WriteSemesterAnalysis(a domain.SemesterAnalysis) (int, error) {
	steps := []func() error{
		func() error { return e.writeCounts(a.Counts) },
		func() error { return e.writeStats(a.Stats) },
		func() error { return e.writePivot(a) },
		func() error { return e.writePeaks(a.Peaks) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			return i, err
		}
	}
	return len(steps), nil
}

func (e *UsageExporter) writeCounts(counts []domain.SemesterWeekCount) error {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Semester, formatInt(c.SemesterWeek), formatInt(c.Count)})
	}
	return e.writer.WriteCSV(e.paths.WeeklyCountsCSV, WeeklyCountHeaders, rows)
}

func (e *UsageExporter) writeStats(stats []domain.SemesterWeekStats) error {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			formatInt(s.SemesterWeek),
			formatFloat(s.AvgUsage),
			formatFloat(s.StdUsage),
			formatInt(s.MinUsage),
			formatInt(s.MaxUsage),
			formatInt(s.NumSemesters),
			formatOptionalFloat(s.PercentChange),
		})
	}
	return e.writer.WriteCSV(e.paths.WeeklyStatsCSV, WeeklyStatsHeaders, rows)
}

// writePivot lays counts out as semester week rows by semester columns. Cells
// for a semester that never reached a week are blank.
func (e *UsageExporter) writePivot(a domain.SemesterAnalysis) error {
	headers := append([]string{pivotFirstColumn}, a.Semesters...)
	column := make(map[string]int, len(a.Semesters))
	for i, s := range a.Semesters {
		column[s] = i + 1
	}

	var weeks []int
	cells := make(map[int][]string)
	for _, c := range a.Counts {
		row, ok := cells[c.SemesterWeek]
		if !ok {
			row = make([]string, len(headers))
			row[0] = formatInt(c.SemesterWeek)
			cells[c.SemesterWeek] = row
			weeks = append(weeks, c.SemesterWeek)
		}
		if col, ok := column[c.Semester]; ok {
			row[col] = formatInt(c.Count)
		}
	}

	sort.Ints(weeks)
	rows := make([][]string, 0, len(weeks))
	for _, w := range weeks {
		rows = append(rows, cells[w])
	}
	return e.writer.WriteCSV(e.paths.PivotTableCSV, headers, rows)
}

func (e *UsageExporter) writePeaks(peaks domain.PeakWeeks) error {
	var rows [][]string
	for _, p := range []struct {
		label string
		stats *domain.SemesterWeekStats
	}{{peakHighest, peaks.Highest}, {peakLowest, peaks.Lowest}} {
		if p.stats == nil {
			continue
		}
		rows = append(rows, []string{
			p.label,
			formatInt(p.stats.SemesterWeek),
			formatFloat(p.stats.AvgUsage),
			formatFloat(p.stats.StdUsage),
			formatInt(p.stats.MinUsage),
			formatInt(p.stats.MaxUsage),
			formatInt(p.stats.NumSemesters),
		})
	}
	return e.writer.WriteCSV(e.paths.PeakWeeksCSV, PeakWeekHeaders, rows)
}

// ReadWeeklyUsage loads weekly_usage.csv.
func ReadWeeklyUsage(path string) (domain.WeeklyUsageSeries, error) {
	table, err := ReadCSV(path, WeeklyUsageHeaders...)
	if err != nil {
		return domain.WeeklyUsageSeries{}, err
	}

	var series domain.WeeklyUsageSeries
	for i, row := range table.Rows {
		p, err := parseUsagePoint(table, row)
		if err != nil {
			return domain.WeeklyUsageSeries{}, apperrors.NewParsingError(fmt.Sprintf("%s line %d", path, i+2), err)
		}
		series.Points = append(series.Points, p)
	}
	return series, nil
}

func parseUsagePoint(table *CSVTable, row []string) (domain.WeeklyUsagePoint, error) {
	var p domain.WeeklyUsagePoint
	var err error
	if p.Week, err = parseWeek(table.Get(row, "Week")); err != nil {
		return p, err
	}
	if p.Total, err = parseInt(table.Get(row, "Total")); err != nil {
		return p, fmt.Errorf("total: %w", err)
	}
	if p.Excluded, err = parseInt(table.Get(row, "Excluded")); err != nil {
		return p, fmt.Errorf("excluded: %w", err)
	}
	if p.MovingAverage, err = parseFloat(table.Get(row, "MovingAverage")); err != nil {
		return p, fmt.Errorf("moving average: %w", err)
	}
	if p.Trend, err = parseFloat(table.Get(row, "Trend")); err != nil {
		return p, fmt.Errorf("trend: %w", err)
	}
	if p.PercentChange, err = parseOptionalFloat(table.Get(row, "PercentChange")); err != nil {
		return p, fmt.Errorf("percent change: %w", err)
	}
	return p, nil
}

// ReadWeeklyCounts loads weekly_counts.csv.
func ReadWeeklyCounts(path string) ([]domain.SemesterWeekCount, error) {
	table, err := ReadCSV(path, WeeklyCountHeaders...)
	if err != nil {
		return nil, err
	}

	counts := make([]domain.SemesterWeekCount, 0, len(table.Rows))
	for i, row := range table.Rows {
		week, err := parseInt(table.Get(row, "SemesterWeek"))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s line %d", path, i+2), err)
		}
		count, err := parseInt(table.Get(row, "Count"))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s line %d", path, i+2), err)
		}
		counts = append(counts, domain.SemesterWeekCount{
			Semester:     table.Get(row, "Semester"),
			SemesterWeek: week,
			Count:        count,
		})
	}
	return counts, nil
}
