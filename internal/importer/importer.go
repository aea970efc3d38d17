// Package importer reads cutting lists from CSV and Excel files.
// It detects the delimiter, maps columns by header name in any order and
// falls back to a positional layout when no header is present.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/xuri/excelize/v2"
)

// ImportResult holds the pieces read from a file plus per-row diagnostics.
// Rows with errors are skipped; the rest are still returned.
type ImportResult struct {
	Pieces   []model.Piece
	Errors   []string
	Warnings []string
}

// Err joins the row errors, or returns nil when there are none.
func (r ImportResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.New(strings.Join(r.Errors, "; "))
}

// ColumnMapping holds the column index of each field, or -1 when absent.
type ColumnMapping struct {
	Profile   int
	Length    int
	Quantity  int
	WorkOrder int
	Color     int
	Size      int
	Priority  int
}

type column int

const (
	colProfile column = iota
	colLength
	colQuantity
	colWorkOrder
	colColor
	colSize
	colPriority
)

// headerAliases lists the accepted lowercase header names per column.
var headerAliases = []struct {
	col     column
	aliases []string
}{
	{colProfile, []string{"profile", "profile type", "profile_type", "type", "article", "code", "item"}},
	{colLength, []string{"length", "len", "l", "cut length", "length_mm", "mm"}},
	{colQuantity, []string{"quantity", "qty", "count", "pcs", "pieces", "amount"}},
	{colWorkOrder, []string{"work order", "work_order", "workorder", "wo", "order", "job"}},
	{colColor, []string{"color", "colour", "finish", "ral"}},
	{colSize, []string{"size", "section", "dimensions"}},
	{colPriority, []string{"priority", "prio", "rank"}},
}

func (m *ColumnMapping) slot(c column) *int {
	switch c {
	case colProfile:
		return &m.Profile
	case colLength:
		return &m.Length
	case colQuantity:
		return &m.Quantity
	case colWorkOrder:
		return &m.WorkOrder
	case colColor:
		return &m.Color
	case colSize:
		return &m.Size
	default:
		return &m.Priority
	}
}

// positional is the layout used for files without a header row.
var positional = ColumnMapping{Profile: 0, Length: 1, Quantity: 2, WorkOrder: 3, Color: 4, Size: 5, Priority: 6}

// DetectCSVDelimiter returns the candidate delimiter that splits the data
// into the most consistent multi-column rows. It defaults to comma.
func DetectCSVDelimiter(data []byte) rune {
	best, bestScore := ',', 0
	for _, delim := range []rune{',', ';', '\t', '|'} {
		records, err := readCSV(bytes.NewReader(data), delim)
		if err != nil || len(records) == 0 {
			continue
		}
		cols := len(records[0])
		if cols < 2 {
			continue
		}
		consistent := 0
		for _, row := range records {
			if len(row) == cols {
				consistent++
			}
		}
		if score := consistent*10 + cols; score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}

// DetectColumns maps a header row case-insensitively. It returns the
// positional mapping and false when no cell matches a known header.
func DetectColumns(row []string) (ColumnMapping, bool) {
	m := ColumnMapping{-1, -1, -1, -1, -1, -1, -1}
	found := false
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		for _, h := range headerAliases {
			for _, alias := range h.aliases {
				if name != alias {
					continue
				}
				found = true
				if slot := m.slot(h.col); *slot == -1 {
					*slot = i
				}
			}
		}
	}
	if !found {
		return positional, false
	}
	return m, true
}

func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseLength accepts a decimal comma as written by European spreadsheets.
func parseLength(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// parseRow builds a piece from one row. It returns the piece, an error
// message that rejects the row, and a warning that does not.
func parseRow(row []string, m ColumnMapping, rowLabel string) (model.Piece, string, string) {
	lengthStr := getCell(row, m.Length)
	if lengthStr == "" {
		return model.Piece{}, rowLabel + ": missing length", ""
	}
	length, err := parseLength(lengthStr)
	if err != nil {
		return model.Piece{}, fmt.Sprintf("%s: invalid length '%s'", rowLabel, lengthStr), ""
	}

	qty := 1
	var warning string
	if qtyStr := getCell(row, m.Quantity); qtyStr == "" {
		warning = rowLabel + ": missing quantity, assuming 1"
	} else if qty, err = strconv.Atoi(qtyStr); err != nil {
		return model.Piece{}, fmt.Sprintf("%s: invalid quantity '%s'", rowLabel, qtyStr), ""
	}

	if length <= 0 || qty <= 0 {
		return model.Piece{}, rowLabel + ": length and quantity must be positive", ""
	}

	p := model.NewPiece(getCell(row, m.Profile), length, qty)
	p.WorkOrderID = getCell(row, m.WorkOrder)
	p.Color = getCell(row, m.Color)
	p.Size = getCell(row, m.Size)
	if prio := getCell(row, m.Priority); prio != "" {
		if n, err := strconv.Atoi(prio); err == nil {
			p.Priority = n
		} else {
			warning = fmt.Sprintf("%s: invalid priority '%s', using 0", rowLabel, prio)
		}
	}
	return p, "", warning
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readCSV(r io.Reader, delim rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	return reader.ReadAll()
}

// Import reads path as CSV or Excel depending on its extension.
func Import(path string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path)
	case ".csv", ".txt", ".tsv":
		return ImportCSV(path)
	default:
		return ImportResult{Errors: []string{fmt.Sprintf("unsupported file type '%s'", filepath.Ext(path))}}
	}
}

// ImportCSV reads a cutting list from a delimited text file.
func ImportCSV(path string) ImportResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot open file: %v", err)}}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ImportResult{Errors: []string{"file is empty"}}
	}

	var warnings []string
	delim := DetectCSVDelimiter(data)
	if delim != ',' {
		name := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delim]
		warnings = append(warnings, fmt.Sprintf("detected %s delimiter", name))
	}

	records, err := readCSV(bytes.NewReader(data), delim)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot read CSV: %v", err)}, Warnings: warnings}
	}
	return importFromRows(records, "line", warnings)
}

// ImportCSVFromReader reads a cutting list with a known delimiter.
func ImportCSVFromReader(r io.Reader, delimiter rune) ImportResult {
	records, err := readCSV(r, delimiter)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot read CSV: %v", err)}}
	}
	return importFromRows(records, "line", nil)
}

// ImportExcel reads a cutting list from the first sheet of a workbook.
func ImportExcel(path string) ImportResult {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot open Excel file: %v", err)}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{Errors: []string{"workbook has no sheets"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("cannot read sheet %s: %v", sheets[0], err)}}
	}
	return importFromRows(rows, "row", nil)
}

func importFromRows(rows [][]string, rowPrefix string, warnings []string) ImportResult {
	result := ImportResult{Warnings: warnings}
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "file is empty")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	start := 0
	switch {
	case hasHeader:
		start = 1
		if mapping.Length == -1 {
			result.Errors = append(result.Errors, "required column not found in header: length")
			return result
		}
	case len(rows[0]) >= 2:
		// An unrecognized header still has a non-numeric length cell.
		if _, err := parseLength(getCell(rows[0], positional.Length)); err != nil {
			start = 1
			result.Warnings = append(result.Warnings, "unrecognized header row skipped, using positional columns")
		}
	}

	for i := start; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		p, errMsg, warning := parseRow(rows[i], mapping, fmt.Sprintf("%s %d", rowPrefix, i+1))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Pieces = append(result.Pieces, p)
	}
	if len(result.Pieces) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "no data rows found")
	}
	return result
}
