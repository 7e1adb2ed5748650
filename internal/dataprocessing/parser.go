package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "makertrends/internal/errors"
	"makertrends/internal/files"
)

// headerScanRows is how many leading rows of a sheet are searched for the header.
const headerScanRows = 10

// excelTimestampLayout is used to render Excel serial dates as text.
const excelTimestampLayout = "2006-01-02 15:04:05"

// Column identifies a logical input column.
type Column string

const (
	ColTimestamp     Column = "timestamp"
	ColEquipment     Column = "equipment"
	ColEquipmentType Column = "equipment_type"
	ColCount         Column = "count"
	ColFirstName     Column = "first_name"
	ColLastName      Column = "last_name"
	ColUserID        Column = "user_id"
)

// ColumnMap maps logical columns to cell positions.
type ColumnMap map[Column]int

// MapColumns maps a header row to logical columns. Matching is case-insensitive
// and accepts the header variants seen in makerspace access exports. The
// timestamp and equipment columns are required.
func MapColumns(headers []string) (ColumnMap, error) {
	cm := make(ColumnMap)
	for i, header := range headers {
		h := strings.ToLower(strings.Join(strings.Fields(strings.TrimPrefix(header, "\ufeff")), " "))
		h = strings.NewReplacer("_", " ", "-", " ").Replace(h)

		var col Column
		switch {
		case h == "timestamp" || h == "date" || h == "datetime" || h == "date time" || h == "time stamp" || h == "access time":
			col = ColTimestamp
		case h == "access type" || h == "equipment" || h == "equipment name" || h == "resource":
			col = ColEquipment
		case h == "equipment type" || h == "equipment category" || h == "category" || h == "type":
			col = ColEquipmentType
		case h == "count" || h == "uses" || h == "quantity":
			col = ColCount
		case h == "first name" || h == "firstname" || h == "first":
			col = ColFirstName
		case h == "last name" || h == "lastname" || h == "last":
			col = ColLastName
		case h == "user id" || h == "unique id" || h == "userid" || h == "member id":
			col = ColUserID
		default:
			continue
		}
		if _, dup := cm[col]; !dup {
			cm[col] = i
		}
	}

	for _, required := range []Column{ColTimestamp, ColEquipment} {
		if _, ok := cm[required]; !ok {
			return cm, fmt.Errorf("could not find required column: %s", required)
		}
	}
	return cm, nil
}

// Get returns the trimmed cell for col, or "" when the column is absent or
// the row is short.
func (cm ColumnMap) Get(row []string, col Column) string {
	i, ok := cm[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Has reports whether col was found in the header.
func (cm ColumnMap) Has(col Column) bool {
	_, ok := cm[col]
	return ok
}

// RawRow is one data row of an input file.
type RawRow struct {
	Source    string // file:line
	Cells     []string
	Malformed string // non-empty when the row could not be split into cells
}

// RawTable is the parsed content of one input file.
type RawTable struct {
	File    string
	Headers []string
	Columns ColumnMap
	Rows    []RawRow
}

// ParseFile reads a CSV or XLSX usage log. Files that cannot be opened or that
// have no recognizable header are INPUT errors; individual bad rows are kept
// and flagged for the preparer.
func ParseFile(info files.FileInfo) (*RawTable, error) {
	switch info.Kind() {
	case "csv":
		return parseCSV(info)
	case "xlsx":
		return parseExcel(info)
	default:
		return nil, apperrors.NewInputError("unsupported input file "+info.Name, nil)
	}
}

func parseCSV(info files.FileInfo) (*RawTable, error) {
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, apperrors.NewInputError("failed to read "+info.Name, err).WithContext("path", info.Path)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewInputError(info.Name+" is empty", nil)
	}
	if err != nil {
		return nil, apperrors.NewInputError("failed to read header of "+info.Name, err)
	}

	columns, err := MapColumns(headers)
	if err != nil {
		return nil, apperrors.NewInputError(info.Name+": "+err.Error(), nil).WithContext("headers", headers)
	}

	table := &RawTable{File: info.Name, Headers: headers, Columns: columns}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			table.Rows = append(table.Rows, RawRow{
				Source:    fmt.Sprintf("%s:%d", info.Name, parseErr.StartLine),
				Cells:     record,
				Malformed: parseErr.Err.Error(),
			})
			continue
		}
		if err != nil {
			return nil, apperrors.NewInputError("failed to read "+info.Name, err)
		}

		line, _ := reader.FieldPos(0)
		row := RawRow{Source: fmt.Sprintf("%s:%d", info.Name, line), Cells: record}
		if len(record) != len(headers) {
			row.Malformed = fmt.Sprintf("expected %d fields, got %d", len(headers), len(record))
		}
		table.Rows = append(table.Rows, row)
	}

	slog.Debug("Parsed CSV file",
		slog.String("file", info.Name),
		slog.Int("rows", len(table.Rows)))
	return table, nil
}

func parseExcel(info files.FileInfo) (*RawTable, error) {
	f, err := excelize.OpenFile(info.Path)
	if err != nil {
		return nil, apperrors.NewInputError("failed to open "+info.Name, err).WithContext("path", info.Path)
	}
	defer f.Close()

	// Use the first sheet with a recognizable header in its leading rows
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			continue
		}
		for h := 0; h < len(rows) && h < headerScanRows; h++ {
			columns, err := MapColumns(rows[h])
			if err != nil {
				continue
			}
			slog.Debug("Found usage data in sheet",
				slog.String("file", info.Name),
				slog.String("sheet_name", sheet),
				slog.Int("header_row", h+1))
			return excelTable(info, rows, h, columns), nil
		}
	}

	return nil, apperrors.NewInputError("could not find a usage sheet in "+info.Name, nil)
}

func excelTable(info files.FileInfo, rows [][]string, headerRow int, columns ColumnMap) *RawTable {
	headers := rows[headerRow]
	table := &RawTable{File: info.Name, Headers: headers, Columns: columns}

	for i := headerRow + 1; i < len(rows); i++ {
		cells := rows[i]
		if isBlank(cells) {
			continue
		}
		// GetRows drops trailing empty cells
		if len(cells) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, cells)
			cells = padded
		}

		row := RawRow{Source: fmt.Sprintf("%s:%d", info.Name, i+1), Cells: cells}
		if len(cells) > len(headers) && !isBlank(cells[len(headers):]) {
			row.Malformed = fmt.Sprintf("expected %d fields, got %d", len(headers), len(cells))
		}
		if idx := columns[ColTimestamp]; idx < len(cells) {
			cells[idx] = excelTimestamp(cells[idx])
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// excelTimestamp renders an Excel serial date as text. Text cells pass through.
func excelTimestamp(cell string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return cell
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return cell
	}
	return t.Round(time.Second).Format(excelTimestampLayout)
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
