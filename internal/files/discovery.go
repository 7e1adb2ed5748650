package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Kind reports the input format by extension: "csv", "xlsx" or "".
func (f FileInfo) Kind() string {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".csv":
		return "csv"
	case ".xlsx":
		return "xlsx"
	default:
		return ""
	}
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindInputFiles finds every CSV and XLSX file in dir, sorted by name.
// Hidden files and Excel lock files (~$name.xlsx) are skipped. A relative dir
// is resolved against the base path.
func (d *Discovery) FindInputFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		file := FileInfo{Name: name}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") || file.Kind() == "" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		file.Path = filepath.Join(fullPath, name)
		file.Size = info.Size()
		file.ModTime = info.ModTime()
		files = append(files, file)
	}

	// Name order, not modification time, so re-runs read rows in the same order
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}
