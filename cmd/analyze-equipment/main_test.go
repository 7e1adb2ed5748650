package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makertrends/internal/app"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/exporter"
	"makertrends/internal/shared/testutil"
	"makertrends/pkg/contracts/domain"
)

func TestAnalyzeEquipment(t *testing.T) {
	paths := testutil.Paths(t)
	base := paths.BaseDir

	mon := time.Date(2019, 2, 4, 10, 0, 0, 0, time.UTC)
	records := []domain.UsageRecord{
		testutil.Record(mon, "Jacobs Type A", "Basic 3D Printing", 5),
		testutil.Record(mon, "Jacobs Laser Access", "Laser Cutting", 3),
		testutil.Record(mon, "Jacobs MakerPass Access", "Entry", 40),
		testutil.Record(mon.AddDate(0, 0, 7), "Jacobs Type A", "Basic 3D Printing", 1),
		testutil.Record(mon.AddDate(0, 0, 7), "Jacobs Laser Access", "Laser Cutting", 4),
	}
	testutil.WriteCleaned(t, paths, records)

	var out, errOut bytes.Buffer
	code := app.Main(app.Options{Command: command, BaseDir: base, Stdout: &out, Stderr: &errOut}, run)
	require.Equal(t, apperrors.ExitOK, code, errOut.String())

	equipment, err := exporter.ReadEquipmentWeekly(filepath.Join(base, "analysis", "equipment_weekly.csv"), domain.DimensionEquipment)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jacobs Laser Access", "Jacobs Type A"}, equipment.IDs(), "Entry is excluded")

	laser := equipment.Series["Jacobs Laser Access"]
	require.Len(t, laser, 2)
	assert.Equal(t, 2, laser[0].Rank)
	assert.Equal(t, 1, laser[1].Rank)

	category, err := exporter.ReadEquipmentWeekly(filepath.Join(base, "analysis", "category_weekly.csv"), domain.DimensionCategory)
	require.NoError(t, err)
	assert.Equal(t, []string{"Basic 3D Printing", "Laser Cutting"}, category.IDs())

	for _, dim := range []string{"equipment", "category"} {
		for _, kind := range exporter.EquipmentKinds {
			assert.FileExists(t, paths.GetEquipmentCSVPath(dim, kind))
		}
	}
}

func TestAnalyzeEquipmentMissingInput(t *testing.T) {
	var out, errOut bytes.Buffer
	code := app.Main(app.Options{Command: command, BaseDir: t.TempDir(), Stdout: &out, Stderr: &errOut}, run)
	assert.Equal(t, apperrors.ExitInput, code)
}

func TestAnalyzeEquipmentRerunIsByteIdentical(t *testing.T) {
	paths := testutil.Paths(t)
	mon := time.Date(2019, 2, 4, 10, 0, 0, 0, time.UTC)
	testutil.WriteCleaned(t, paths, []domain.UsageRecord{
		testutil.InSemester(testutil.Record(mon, "Jacobs Type A", "Basic 3D Printing", 5), "Spring 2019", 3),
		testutil.InSemester(testutil.Record(mon, "Jacobs Laser Access", "Laser Cutting", 5), "Spring 2019", 3),
		testutil.InSemester(testutil.Record(mon.AddDate(0, 0, 7), "Jacobs Wood Shop", "Wood Shop", 2), "Spring 2019", 4),
	})

	var snapshots []map[string]string
	for i := 0; i < 2; i++ {
		var out, errOut bytes.Buffer
		code := app.Main(app.Options{Command: command, BaseDir: paths.BaseDir, Stdout: &out, Stderr: &errOut}, run)
		require.Equal(t, apperrors.ExitOK, code, errOut.String())
		snapshots = append(snapshots, testutil.SnapshotCSVs(t, paths.AnalysisDir))
	}
	require.Contains(t, snapshots[0], "equipment_semester_stats.csv")
	assert.Equal(t, snapshots[0], snapshots[1])
}
