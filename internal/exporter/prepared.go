package exporter

import (
	"fmt"
	"strings"
	"time"

	"makertrends/internal/config"
	apperrors "makertrends/internal/errors"
	"makertrends/pkg/contracts/domain"
)

// Column headers of the preparation artifacts.
var (
	CleanedRecordHeaders = []string{
		"Timestamp", "Week", "ISOWeek", "Equipment", "EquipmentType", "Count",
		"Closure", "Semester", "SemesterWeek", "UserID", "Source",
	}
	EquipmentLookupHeaders = []string{"RawLabel", "Equipment", "EquipmentType", "Match", "Occurrences"}
	DiscardReportHeaders   = []string{"Reason", "Count"}
	DiscardedRowHeaders    = []string{"Source", "Reason", "Detail", "RawValues"}
	TermHeaders            = []string{"ID", "Name", "Start", "End"}
)

// rawValueSeparator joins the raw cells of a discarded row into one column.
const rawValueSeparator = " | "

// PreparedExporter writes the outputs of the data preparer.
type PreparedExporter struct {
	writer *CSVWriter
	paths  *config.Paths
}

// NewPreparedExporter creates an exporter that writes into the clean directory.
func NewPreparedExporter(writer *CSVWriter, paths *config.Paths) *PreparedExporter {
	return &PreparedExporter{writer: writer, paths: paths}
}

// Export writes cleaned records, the equipment lookup and both discard files.
// It returns the number of files written.
func (e *PreparedExporter) Export(ds *domain.PreparedDataset) (int, error) {
	steps := []func(*domain.PreparedDataset) error{
		func(d *domain.PreparedDataset) error {
			return e.WriteCleanedRecords(e.paths.CleanedRecordsCSV, d.Records)
		},
		func(d *domain.PreparedDataset) error { return e.WriteLookup(d.Lookup) },
		func(d *domain.PreparedDataset) error { return e.WriteDiscardReport(d.Discards) },
		func(d *domain.PreparedDataset) error { return e.WriteDiscardedRows(d.Discards) },
	}
	for i, step := range steps {
		if err := step(ds); err != nil {
			return i, err
		}
	}
	return len(steps), nil
}

// WriteCleanedRecords writes records in the order given.
func (e *PreparedExporter) WriteCleanedRecords(path string, records []domain.UsageRecord) error {
	return e.writer.WriteStream(path, CleanedRecordHeaders, func(emit func([]string) error) error {
		for _, r := range records {
			semesterWeek := ""
			if r.SemesterWeek > 0 {
				semesterWeek = formatInt(r.SemesterWeek)
			}
			if err := emit([]string{
				r.Timestamp.Format(TimestampLayout),
				r.Week.String(),
				r.Week.ISOLabel(),
				r.Equipment,
				r.EquipmentType,
				formatInt(r.Count),
				formatBool(r.Closure),
				r.Semester,
				semesterWeek,
				r.UserID,
				r.Source,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteLookup writes the raw label resolution table.
func (e *PreparedExporter) WriteLookup(entries []domain.EquipmentLookupEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.RawLabel,
			entry.Equipment,
			entry.EquipmentType,
			entry.Match,
			formatInt(entry.Occurrences),
		})
	}
	return e.writer.WriteCSV(e.paths.EquipmentLookupCSV, EquipmentLookupHeaders, rows)
}

// WriteDiscardReport writes one row per discard reason, zero counts included,
// followed by a total row.
func (e *PreparedExporter) WriteDiscardReport(report *domain.DiscardReport) error {
	if report == nil {
		report = domain.NewDiscardReport()
	}
	reasons := domain.AllDiscardReasons()
	rows := make([][]string, 0, len(reasons)+1)
	for _, reason := range reasons {
		rows = append(rows, []string{string(reason), formatInt(report.Counts[reason])})
	}
	rows = append(rows, []string{"total", formatInt(report.Total())})
	return e.writer.WriteCSV(e.paths.DiscardReportCSV, DiscardReportHeaders, rows)
}

// WriteDiscardedRows writes every rejected raw row in input order.
func (e *PreparedExporter) WriteDiscardedRows(report *domain.DiscardReport) error {
	var discarded []domain.DiscardedRow
	if report != nil {
		discarded = report.Rows
	}
	return e.writer.WriteStream(e.paths.DiscardedRowsCSV, DiscardedRowHeaders, func(emit func([]string) error) error {
		for _, row := range discarded {
			if err := emit([]string{
				row.Source,
				string(row.Reason),
				row.Detail,
				strings.Join(row.Raw, rawValueSeparator),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTerms caches the term calendar.
func (e *PreparedExporter) WriteTerms(terms []domain.Term) error {
	rows := make([][]string, 0, len(terms))
	for _, t := range terms {
		rows = append(rows, []string{
			t.ID,
			t.Name,
			t.Start.Format(config.DateLayout),
			t.End.Format(config.DateLayout),
		})
	}
	return e.writer.WriteCSV(e.paths.TermsCSV, TermHeaders, rows)
}

// ReadCleanedRecords loads cleaned_records.csv. Timestamps keep the offset
// they were written with so weeks match what the preparer assigned.
func ReadCleanedRecords(path string) ([]domain.UsageRecord, error) {
	table, err := ReadCSV(path, "Timestamp", "Week", "Equipment", "EquipmentType", "Count", "Closure")
	if err != nil {
		return nil, err
	}

	records := make([]domain.UsageRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		rec, err := parseCleanedRecord(table, row)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s line %d", path, i+2), err).
				WithContext("path", path)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseCleanedRecord(table *CSVTable, row []string) (domain.UsageRecord, error) {
	ts, err := time.Parse(TimestampLayout, table.Get(row, "Timestamp"))
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("timestamp: %w", err)
	}
	week, err := parseWeek(table.Get(row, "Week"))
	if err != nil {
		return domain.UsageRecord{}, err
	}
	count, err := parseInt(table.Get(row, "Count"))
	if err != nil || count < 0 {
		return domain.UsageRecord{}, fmt.Errorf("count %q is not a non-negative integer", table.Get(row, "Count"))
	}
	semesterWeek, err := parseInt(table.Get(row, "SemesterWeek"))
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("semester week: %w", err)
	}

	rec := domain.UsageRecord{
		Timestamp:     ts,
		Week:          week,
		Equipment:     table.Get(row, "Equipment"),
		EquipmentType: table.Get(row, "EquipmentType"),
		Count:         count,
		Closure:       table.Get(row, "Closure") == "true",
		Semester:      table.Get(row, "Semester"),
		SemesterWeek:  semesterWeek,
		UserID:        table.Get(row, "UserID"),
		Source:        table.Get(row, "Source"),
	}
	if rec.Equipment == "" || rec.EquipmentType == "" {
		return domain.UsageRecord{}, fmt.Errorf("equipment and equipment type are required")
	}
	return rec, nil
}

// ReadTerms loads a cached term calendar.
func ReadTerms(path string) ([]domain.Term, error) {
	table, err := ReadCSV(path, TermHeaders...)
	if err != nil {
		return nil, err
	}

	terms := make([]domain.Term, 0, len(table.Rows))
	for i, row := range table.Rows {
		start, err := time.Parse(config.DateLayout, table.Get(row, "Start"))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s line %d start", path, i+2), err)
		}
		end, err := time.Parse(config.DateLayout, table.Get(row, "End"))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s line %d end", path, i+2), err)
		}
		terms = append(terms, domain.Term{
			ID:    table.Get(row, "ID"),
			Name:  table.Get(row, "Name"),
			Start: start,
			End:   end,
		})
	}
	return terms, nil
}
