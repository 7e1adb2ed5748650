package exporter

import (
	"fmt"
	"sort"

	"makertrends/internal/config"
	apperrors "makertrends/internal/errors"
	"makertrends/pkg/contracts/domain"
)

// Artifact kinds written per dimension, e.g. equipment_weekly.csv.
const (
	KindWeekly      = "weekly"
	KindRankTable   = "rank_table"
	KindConsistency = "consistency"
	KindTop         = "top"
	KindSemester    = "semester_stats"
	KindPeakWeeks   = "peak_weeks"
	KindLowWeeks    = "low_weeks"
)

// EquipmentKinds lists every per-dimension artifact in write order.
var EquipmentKinds = []string{KindWeekly, KindRankTable, KindConsistency, KindTop, KindSemester, KindPeakWeeks, KindLowWeeks}

// idColumn names the identifier column for a dimension.
func idColumn(dim domain.Dimension) string {
	if dim == domain.DimensionCategory {
		return "Category"
	}
	return "Equipment"
}

// EquipmentWeeklyHeaders returns the long-form header row for dim.
func EquipmentWeeklyHeaders(dim domain.Dimension) []string {
	return []string{"Week", "ISOWeek", idColumn(dim), "Count", "Total", "Percentage", "Rank"}
}

// ConsistencyHeaders returns the header row of <dim>_consistency.csv.
func ConsistencyHeaders(dim domain.Dimension) []string {
	return []string{idColumn(dim), "MeanRank", "StdRank", "MinRank", "MaxRank", "WeeksRanked", "TotalUses", "PeakWeek", "PeakCount"}
}

// TopHeaders returns the header row of <dim>_top.csv.
func TopHeaders(dim domain.Dimension) []string {
	return []string{"Week", "ISOWeek", "Top" + idColumn(dim), "Count", "Changed"}
}

// SemesterStatsHeaders returns the header row of <dim>_semester_stats.csv,
// <dim>_peak_weeks.csv and <dim>_low_weeks.csv.
func SemesterStatsHeaders(dim domain.Dimension) []string {
	return []string{idColumn(dim), "SemesterWeek", "AvgUsage", "StdUsage", "MinUsage", "MaxUsage", "NumSemesters"}
}

// EquipmentExporter writes the outputs of the equipment aggregator.
type EquipmentExporter struct {
	writer *CSVWriter
	paths  *config.Paths
}

// NewEquipmentExporter creates an exporter that writes into the analysis directory.
func NewEquipmentExporter(writer *CSVWriter, paths *config.Paths) *EquipmentExporter {
	return &EquipmentExporter{writer: writer, paths: paths}
}

// Export writes every file of one dimension, in EquipmentKinds order, and
// returns how many were written.
func (e *EquipmentExporter) Export(a domain.EquipmentAnalysis) (int, error) {
	steps := []func(domain.EquipmentAnalysis) error{
		e.writeWeekly,
		e.writeRankTable,
		e.writeConsistency,
		e.writeTop,
		e.writeSemesterStats,
		e.writePeaks(KindPeakWeeks, func(p domain.PeakWeeks) *domain.SemesterWeekStats { return p.Highest }),
		e.writePeaks(KindLowWeeks, func(p domain.PeakWeeks) *domain.SemesterWeekStats { return p.Lowest }),
	}
	for i, step := range steps {
		if err := step(a); err != nil {
			return i, err
		}
	}
	return len(steps), nil
}

// writeWeekly writes one row per (week, id), weeks ascending and ranks ascending within a week.
func (e *EquipmentExporter) writeWeekly(a domain.EquipmentAnalysis) error {
	path := e.paths.GetEquipmentCSVPath(string(a.Dimension), KindWeekly)
	return e.writer.WriteStream(path, EquipmentWeeklyHeaders(a.Dimension), func(emit func([]string) error) error {
		for _, ranking := range a.Rankings {
			for _, entry := range ranking.Entries {
				if err := emit([]string{
					ranking.Week.String(),
					ranking.Week.ISOLabel(),
					entry.ID,
					formatInt(entry.Count),
					formatInt(ranking.Total),
					formatFloat(entry.Percentage),
					formatRank(entry.Rank),
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// writeRankTable pivots ranks to one row per id and one column per week.
func (e *EquipmentExporter) writeRankTable(a domain.EquipmentAnalysis) error {
	weeks := make([]domain.Week, 0, len(a.Rankings))
	for _, r := range a.Rankings {
		weeks = append(weeks, r.Week)
	}
	headers := make([]string, 0, len(weeks)+1)
	headers = append(headers, idColumn(a.Dimension))
	for _, w := range weeks {
		headers = append(headers, w.String())
	}

	ids := a.Series.IDs()
	ranks := make(map[string]map[domain.Week]int, len(ids))
	for _, r := range a.Rankings {
		for _, entry := range r.Entries {
			if ranks[entry.ID] == nil {
				ranks[entry.ID] = make(map[domain.Week]int)
			}
			ranks[entry.ID][r.Week] = entry.Rank
		}
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		row := make([]string, 0, len(headers))
		row = append(row, id)
		for _, w := range weeks {
			row = append(row, formatRank(ranks[id][w]))
		}
		rows = append(rows, row)
	}
	return e.writer.WriteCSV(e.paths.GetEquipmentCSVPath(string(a.Dimension), KindRankTable), headers, rows)
}

func (e *EquipmentExporter) writeConsistency(a domain.EquipmentAnalysis) error {
	rows := make([][]string, 0, len(a.Consistency))
	for _, c := range a.Consistency {
		rows = append(rows, []string{
			c.ID,
			formatFloat(c.MeanRank),
			formatFloat(c.StdRank),
			formatInt(c.MinRank),
			formatInt(c.MaxRank),
			formatInt(c.WeeksRanked),
			formatInt(c.TotalUses),
			c.PeakWeek.String(),
			formatInt(c.PeakCount),
		})
	}
	path := e.paths.GetEquipmentCSVPath(string(a.Dimension), KindConsistency)
	return e.writer.WriteCSV(path, ConsistencyHeaders(a.Dimension), rows)
}

func (e *EquipmentExporter) writeTop(a domain.EquipmentAnalysis) error {
	rows := make([][]string, 0, len(a.Top))
	for _, t := range a.Top {
		rows = append(rows, []string{
			t.Week.String(),
			t.Week.ISOLabel(),
			t.Top,
			formatInt(t.Count),
			formatBool(t.Changed),
		})
	}
	path := e.paths.GetEquipmentCSVPath(string(a.Dimension), KindTop)
	return e.writer.WriteCSV(path, TopHeaders(a.Dimension), rows)
}

func semesterStatsRow(id string, s domain.SemesterWeekStats) []string {
	return []string{
		id,
		formatInt(s.SemesterWeek),
		formatFloat(s.AvgUsage),
		formatFloat(s.StdUsage),
		formatInt(s.MinUsage),
		formatInt(s.MaxUsage),
		formatInt(s.NumSemesters),
	}
}

func (e *EquipmentExporter) writeSemesterStats(a domain.EquipmentAnalysis) error {
	rows := make([][]string, 0, len(a.SemesterStats))
	for _, s := range a.SemesterStats {
		rows = append(rows, semesterStatsRow(s.ID, s.SemesterWeekStats))
	}
	path := e.paths.GetEquipmentCSVPath(string(a.Dimension), KindSemester)
	return e.writer.WriteCSV(path, SemesterStatsHeaders(a.Dimension), rows)
}

// writePeaks writes one row per identifier that has the week pick selects.
func (e *EquipmentExporter) writePeaks(kind string, pick func(domain.PeakWeeks) *domain.SemesterWeekStats) func(domain.EquipmentAnalysis) error {
	return func(a domain.EquipmentAnalysis) error {
		rows := make([][]string, 0, len(a.Peaks))
		for _, p := range a.Peaks {
			if week := pick(p.Peaks); week != nil {
				rows = append(rows, semesterStatsRow(p.ID, *week))
			}
		}
		path := e.paths.GetEquipmentCSVPath(string(a.Dimension), kind)
		return e.writer.WriteCSV(path, SemesterStatsHeaders(a.Dimension), rows)
	}
}

// ReadEquipmentWeekly loads <dim>_weekly.csv back into a series. Cells within
// each identifier are ordered by week.
func ReadEquipmentWeekly(path string, dim domain.Dimension) (domain.EquipmentWeeklySeries, error) {
	series := domain.EquipmentWeeklySeries{Dimension: dim, Series: make(map[string][]domain.EquipmentWeek)}

	table, err := ReadCSV(path, EquipmentWeeklyHeaders(dim)...)
	if err != nil {
		return series, err
	}

	col := idColumn(dim)
	for i, row := range table.Rows {
		cell, err := parseEquipmentWeek(table, row)
		if err != nil {
			return series, apperrors.NewParsingError(fmt.Sprintf("%s line %d", path, i+2), err)
		}
		id := table.Get(row, col)
		series.Series[id] = append(series.Series[id], cell)
	}

	for _, cells := range series.Series {
		sort.Slice(cells, func(i, j int) bool { return cells[i].Week.Before(cells[j].Week) })
	}
	return series, nil
}

func parseEquipmentWeek(table *CSVTable, row []string) (domain.EquipmentWeek, error) {
	var cell domain.EquipmentWeek
	var err error
	if cell.Week, err = parseWeek(table.Get(row, "Week")); err != nil {
		return cell, err
	}
	if cell.Count, err = parseInt(table.Get(row, "Count")); err != nil {
		return cell, fmt.Errorf("count: %w", err)
	}
	if cell.Total, err = parseInt(table.Get(row, "Total")); err != nil {
		return cell, fmt.Errorf("total: %w", err)
	}
	if cell.Percentage, err = parseFloat(table.Get(row, "Percentage")); err != nil {
		return cell, fmt.Errorf("percentage: %w", err)
	}
	if cell.Rank, err = parseInt(table.Get(row, "Rank")); err != nil {
		return cell, fmt.Errorf("rank: %w", err)
	}
	return cell, nil
}
