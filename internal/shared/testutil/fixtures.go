package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"makertrends/internal/config"
	"makertrends/internal/exporter"
	"makertrends/pkg/contracts/domain"
)

// Day returns midnight UTC on the given date.
func Day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Paths lays out a fresh base directory with the default layout and creates
// its output directories.
func Paths(t testing.TB) *config.Paths {
	t.Helper()
	paths := config.GetPaths(t.TempDir(), config.Default().Paths)
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("create layout: %v", err)
	}
	return paths
}

// WriteFile writes content to dir/name, creating dir, and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Record builds a cleaned usage record at ts.
func Record(ts time.Time, equipment, category string, count int) domain.UsageRecord {
	return domain.UsageRecord{
		Timestamp:     ts,
		Week:          domain.WeekOf(ts),
		Equipment:     equipment,
		EquipmentType: category,
		Count:         count,
	}
}

// InSemester returns r placed in week of semester.
func InSemester(r domain.UsageRecord, semester string, week int) domain.UsageRecord {
	r.Semester = semester
	r.SemesterWeek = week
	return r
}

// WriteCleaned writes records to the cleaned_records.csv of paths.
func WriteCleaned(t testing.TB, paths *config.Paths, records []domain.UsageRecord) {
	t.Helper()
	exp := exporter.NewPreparedExporter(exporter.NewCSVWriter(paths, nil), paths)
	if err := exp.WriteCleanedRecords(paths.CleanedRecordsCSV, records); err != nil {
		t.Fatalf("write cleaned records: %v", err)
	}
}

// SnapshotCSVs returns the content of every .csv file under dir keyed by its
// slash-separated path relative to dir.
func SnapshotCSVs(t testing.TB, dir string) map[string]string {
	t.Helper()
	snapshot := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		snapshot[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot %s: %v", dir, err)
	}
	return snapshot
}
