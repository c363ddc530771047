// =============================================================================
// pretix-ifirma - CSV Parser Module
// =============================================================================
//
// This module reads the order export produced by pretix. It handles:
//   - Configurable delimiters (pretix uses ";")
//   - UTF-8 files with or without a byte order mark
//   - Legacy Polish code pages (windows-1250, ISO-8859-2)
//   - Quoted fields, including quoted line breaks
//
// Each data row is turned into a map of header -> value so the converter can
// look fields up by column name.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
	"github.com/ginjaninja78/pretix-ifirma/internal/types"
)

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("CSV file is empty")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings from the configuration.
//
// RETURNS:
//   - The parsed table.
//   - An error if the file cannot be opened, decoded or parsed.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := Read(file, settings)
	if err != nil {
		return nil, err
	}

	table.SourceFile = filePath
	return table, nil
}

// Read parses CSV data from r. The first record is the header row.
func Read(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	decoded, err := decodingReader(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(bufio.NewReader(decoded))
	configureReader(csvReader, settings)

	headerRow, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	table := &types.Table{
		Headers: cleanHeaders(headerRow),
		Rows:    []types.Row{},
	}

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		if isRowEmpty(record) {
			continue
		}

		line, _ := csvReader.FieldPos(0)
		table.Rows = append(table.Rows, types.Row{
			Number: line,
			Fields: rowToMap(table.Headers, record),
		})
	}

	return table, nil
}

// decodingReader wraps r so that it yields UTF-8.
//
// A UTF-8 byte order mark is stripped in every case, so exports saved by
// spreadsheet tools parse the same as raw pretix downloads.
func decodingReader(r io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		enc = unicode.UTF8
	case "windows-1250", "cp1250":
		enc = charmap.Windows1250
	case "iso-8859-2", "latin2":
		enc = charmap.ISO8859_2
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}

	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ",", "comma":
		reader.Comma = ','
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = []rune(settings.Delimiter)[0]
		} else {
			reader.Comma = ';' // pretix default
		}
	}

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true
}

// cleanHeaders trims header names and names empty ones after their position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// rowToMap pairs a record with the headers. Missing trailing cells become "".
func rowToMap(headers, record []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(record) {
			fields[header] = strings.TrimSpace(record[i])
		} else {
			fields[header] = ""
		}
	}
	return fields
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
