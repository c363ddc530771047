// =============================================================================
// pretix-ifirma - Shared Types
// =============================================================================
//
// This package contains the tabular types shared by the input readers and the
// record converter. Keeping them here avoids import cycles between:
//   - csvparser
//   - xlsxparser
//   - converter
//
// =============================================================================

package types

import "strings"

// =============================================================================
// TABLE TYPES
// =============================================================================

// Table is an order export read from a CSV or XLSX file.
type Table struct {
	// Headers contains the column headers in file order.
	Headers []string

	// Rows contains the data rows in file order. Empty rows are not included.
	Rows []Row

	// SourceFile is the path the table was read from.
	SourceFile string
}

// Row is a single order record keyed by column header.
type Row struct {
	// Number is the 1-indexed line (CSV) or row (XLSX) in the source file.
	// Used in diagnostics only.
	Number int

	// Fields maps header name to the trimmed cell value.
	Fields map[string]string
}

// Lookup returns the trimmed value of column and whether the column exists.
func (r Row) Lookup(column string) (string, bool) {
	value, ok := r.Fields[column]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// Value returns the trimmed value of column, or def when the column is absent.
// A present but blank column yields "".
func (r Row) Value(column, def string) string {
	if value, ok := r.Lookup(column); ok {
		return value
	}
	return def
}

// ValueOrDefault returns the trimmed value of column, or def when the column is
// absent or blank.
func (r Row) ValueOrDefault(column, def string) string {
	if value, ok := r.Lookup(column); ok && value != "" {
		return value
	}
	return def
}
