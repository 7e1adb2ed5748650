// Package shared holds code used across packages that belongs to no single
// pipeline stage.
//
// The testutil subpackage provides test helpers: a capturing slog handler
// for asserting on log output, and fixtures that lay out a temporary base
// directory, build usage records and write cleaned_records.csv.
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    paths := testutil.Paths(t)
//	    testutil.WriteCleaned(t, paths, []domain.UsageRecord{
//	        testutil.Record(testutil.Day(2019, 2, 4), "Jacobs Type A", "Basic 3D Printing", 2),
//	    })
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelWarn, "Chart skipped")
//	}
package shared
