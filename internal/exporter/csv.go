package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"makertrends/internal/config"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/files"
)

// CSVWriter provides CSV export functionality. Every file is written
// atomically with a header row, even when there are no records.
type CSVWriter struct {
	paths   *config.Paths
	manager *files.Manager
	logger  *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		paths:   paths,
		manager: files.NewManager(paths),
		logger:  logger,
	}
}

// WriteCSV writes headers and records to filePath, replacing any previous content.
func (w *CSVWriter) WriteCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteStream(filePath, headers, func(emit func([]string) error) error {
		for i, record := range records {
			if err := emit(record); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
		}
		return nil
	})
}

// WriteStream writes headers, then every row produced by fill.
func (w *CSVWriter) WriteStream(filePath string, headers []string, fill func(emit func([]string) error) error) error {
	rows := 0
	err := w.manager.WriteAtomic(filePath, func(out io.Writer) error {
		writer := csv.NewWriter(out)
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
		emit := func(record []string) error {
			rows++
			return writer.Write(record)
		}
		if err := fill(emit); err != nil {
			return err
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return apperrors.NewStorageError("failed to write "+w.manager.RelativePath(filePath), err).
			WithContext("path", filePath)
	}

	w.logger.Info("Wrote CSV file",
		slog.String("path", w.manager.RelativePath(filePath)),
		slog.Int("record_count", rows))
	return nil
}

// CSVTable is a CSV file read fully into memory with header lookup.
type CSVTable struct {
	Path    string
	Headers []string
	Rows    [][]string
	index   map[string]int
}

// ReadCSV reads an artifact written by CSVWriter. A missing file is a NOT_FOUND
// error and a file without a header row is an INPUT error.
func ReadCSV(filePath string, required ...string) (*CSVTable, error) {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, apperrors.NewNotFoundError(filePath).WithContext("path", filePath)
	}
	if err != nil {
		return nil, apperrors.NewInputError("failed to read "+filePath, err)
	}

	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("malformed CSV "+filePath, err)
	}
	if len(all) == 0 {
		return nil, apperrors.NewInputError(filePath+" has no header row", nil)
	}

	t := &CSVTable{
		Path:    filePath,
		Headers: all[0],
		Rows:    all[1:],
		index:   make(map[string]int, len(all[0])),
	}
	for i, h := range t.Headers {
		t.index[h] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, apperrors.NewInputError(fmt.Sprintf("%s is missing column %q", filePath, col), nil)
		}
	}
	return t, nil
}

// Get returns the value of column col in row, or "" if the row is short.
func (t *CSVTable) Get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Has reports whether the table has column col.
func (t *CSVTable) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}
