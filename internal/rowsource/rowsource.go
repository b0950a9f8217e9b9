// Package rowsource turns uploaded export files into rows for the reconciler.
//
// The first non-blank line of a file is the header. Every following
// non-blank line becomes one row keyed by header name; empty cells are left
// out so the normalizer sees them as absent.
package rowsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/normalize"
)

// Supported file formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	default:
		return "", errors.NewValidationError("file", path, "unsupported file type, expected .xlsx or .csv")
	}
}

// Open reads every row of the file at path. sheet selects the worksheet of
// an XLSX file; empty means the first sheet. It is ignored for CSV.
func Open(path, sheet string) ([]normalize.Row, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSX(path, sheet)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close() //nolint:errcheck

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, errors.WrapParse(FormatCSV, path, err)
	}
	return rows, nil
}

// ReadXLSX reads a worksheet. Cells are read raw, so dates arrive as Excel
// serial numbers and the normalizer converts them.
func ReadXLSX(path, sheet string) ([]normalize.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close() //nolint:errcheck

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.NewParseError(FormatXLSX, path, "workbook has no sheets", nil)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, errors.NewNotFoundError("sheet", sheet)
	}

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.WrapParse(FormatXLSX, path, fmt.Errorf("sheet %q: %w", sheet, err))
	}
	return FromRecords(records), nil
}

// ReadCSV reads comma-separated rows. A UTF-8 byte order mark is dropped.
func ReadCSV(r io.Reader) ([]normalize.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return FromRecords(records), nil
}

// FromRecords converts a header line plus data lines into rows. Headerless
// columns and blank lines are skipped.
func FromRecords(records [][]string) []normalize.Row {
	var header []string
	rows := []normalize.Row{}
	for _, record := range records {
		if isBlank(record) {
			continue
		}
		if header == nil {
			header = make([]string, len(record))
			for i, h := range record {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}

		row := make(normalize.Row, len(header))
		for i, cell := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row[header[i]] = cell
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
