package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"csv-rag-service/internal/logger"
	"csv-rag-service/models"

	"github.com/xuri/excelize/v2"
)

// Table is a parsed upload: a header and its data rows.
type Table struct {
	Header []string
	Rows   []Row
}

// Columns returns the number of columns.
func (t *Table) Columns() int { return len(t.Header) }

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseTable reads data as UTF-8 CSV and, when that fails, as an XLSX
// workbook. The first record (or first sheet row) is the header.
func ParseTable(data []byte) (*Table, error) {
	table, csvErr := parseCSV(data)
	if csvErr == nil {
		return table, nil
	}
	logger.Warn("Failed to read as CSV", "error", csvErr)

	table, xlsxErr := parseXLSX(data)
	if xlsxErr != nil {
		logger.Error("File format not recognized", "error", xlsxErr)
		return nil, models.ErrUnsupportedFormat
	}
	logger.Info("File read as Excel successfully")
	return table, nil
}

func parseCSV(data []byte) (*Table, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("input is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if len(records) == 0 || isBlankRecord(records[0]) {
		return nil, errors.New("csv: no columns to parse")
	}

	width := len(records[0])
	table := &Table{Header: records[0]}
	for i, rec := range records[1:] {
		if len(rec) > width {
			return nil, fmt.Errorf("csv: record %d has %d fields, header has %d", i+2, len(rec), width)
		}
		// short records are padded with empty cells
		table.Rows = append(table.Rows, toRow(rec, width))
	}
	return table, nil
}

func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	table := &Table{Header: rows[0]}
	for _, r := range rows[1:] {
		table.Rows = append(table.Rows, toRow(r, width))
	}
	return table, nil
}

// toRow converts string cells, mapping empty cells to nil and padding with
// nil up to width.
func toRow(cells []string, width int) Row {
	if width < len(cells) {
		width = len(cells)
	}
	row := make(Row, width)
	for i, c := range cells {
		if c != "" {
			row[i] = c
		}
	}
	return row
}
