// =============================================================================
// pretix-ifirma - XLSX Order Export Parser
// =============================================================================
//
// pretix can export orders as an Excel workbook as well as CSV. This module
// reads such a workbook into the same header-keyed table the CSV parser
// produces, so the converter does not care which format was used.
//
// SHEET LAYOUT:
//   The first non-empty row of the sheet is the header row. Every following
//   non-empty row is one order.
//
//   | Kod zamówienia | Data zamówienia | Godzina zamówienia | Suma zamówienia | ...
//   |----------------|-----------------|--------------------|-----------------|
//   | ABC12          | 2025-03-23      | 12:36:11           | 100,00          | ...
//
// Cell values are read as formatted text, exactly as Excel displays them.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
	"github.com/ginjaninja78/pretix-ifirma/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads an XLSX order export.
//
// PARAMETERS:
//   - filePath: The path to the workbook.
//   - settings: Selects the sheet; the first sheet is used when empty.
//
// RETURNS:
//   - The parsed table.
//   - An error if the workbook cannot be opened or has no header row.
func Parse(filePath string, settings config.XLSXSettings) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := settings.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	table, err := buildTable(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheetName, err)
	}

	table.SourceFile = filePath
	return table, nil
}

// buildTable turns raw sheet rows into a table.
func buildTable(rows [][]string) (*types.Table, error) {
	headerIndex := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, fmt.Errorf("no header row found")
	}

	headers := make([]string, len(rows[headerIndex]))
	for i, h := range rows[headerIndex] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}

	table := &types.Table{
		Headers: headers,
		Rows:    []types.Row{},
	}

	for i := headerIndex + 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(row) {
				fields[header] = strings.TrimSpace(row[col])
			} else {
				fields[header] = ""
			}
		}

		table.Rows = append(table.Rows, types.Row{
			Number: i + 1, // sheet rows are 1-indexed
			Fields: fields,
		})
	}

	return table, nil
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
