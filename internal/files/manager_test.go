package files

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"makertrends/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *config.Paths) {
	t.Helper()
	paths := config.GetPaths(t.TempDir(), config.Default().Paths)
	return NewManager(paths), paths
}

func TestWriteAtomic(t *testing.T) {
	manager, paths := newTestManager(t)

	err := manager.WriteAtomic(paths.WeeklyUsageCSV, func(w io.Writer) error {
		_, err := io.WriteString(w, "Week,Total\n")
		return err
	})
	require.NoError(t, err)

	content, err := os.ReadFile(paths.WeeklyUsageCSV)
	require.NoError(t, err)
	assert.Equal(t, "Week,Total\n", string(content))

	entries, err := os.ReadDir(paths.AnalysisDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestWriteAtomicFailureKeepsPreviousContent(t *testing.T) {
	manager, paths := newTestManager(t)
	require.NoError(t, os.MkdirAll(paths.AnalysisDir, 0755))
	require.NoError(t, os.WriteFile(paths.WeeklyUsageCSV, []byte("old\n"), 0644))

	boom := errors.New("boom")
	err := manager.WriteAtomic(paths.WeeklyUsageCSV, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	content, err := os.ReadFile(paths.WeeklyUsageCSV)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(content))

	entries, err := os.ReadDir(paths.AnalysisDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRelativePath(t *testing.T) {
	manager, paths := newTestManager(t)

	assert.Equal(t, "data/raw/2019.csv", manager.RelativePath(filepath.Join(paths.RawDir, "2019.csv")))
	outside := filepath.Join(string(filepath.Separator), "elsewhere", "x.csv")
	assert.Equal(t, outside, manager.RelativePath(outside))
}
