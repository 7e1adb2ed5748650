// Package exporter reads and writes every CSV artifact of the makertrends pipeline.
//
// CSVWriter is the core: files are written atomically through files.Manager
// with a header row, even when there are no records, so downstream stages and
// re-runs always see a complete file.
//
// PreparedExporter writes the data preparer outputs (cleaned_records.csv,
// equipment_lookup.csv, discard_report.csv, discarded_rows.csv, terms.csv).
//
// UsageExporter writes weekly_usage.csv and the semester-week files
// (weekly_counts.csv, weekly_stats.csv, pivot_table.csv, peak_weeks.csv).
//
// EquipmentExporter writes <dim>_weekly.csv, <dim>_rank_table.csv,
// <dim>_consistency.csv and <dim>_top.csv for one dimension.
//
// Floats are written with two decimals and optional values as blank cells, so
// identical inputs give byte-identical files.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths, logger)
//	usage := exporter.NewUsageExporter(writer, paths)
//	err := usage.WriteWeeklyUsage(series)
//
//	records, err := exporter.ReadCleanedRecords(paths.CleanedRecordsCSV)
package exporter
