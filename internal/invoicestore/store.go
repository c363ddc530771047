// =============================================================================
// pretix-ifirma - Invoice Store Module
// =============================================================================
//
// This module persists the converted invoices between the convert and upload
// steps. The file is a single pretty-printed JSON array so an operator can
// review and hand-edit invoices before sending them:
//
//   [
//       {
//           "Status": "DO_POTWIERDZENIA",
//           "Zaplacono": 100,
//           ...
//           "NumerKontaBankowego": null,
//           ...
//       }
//   ]
//
// FORMAT RULES:
//   - Four-space indentation
//   - Non-ASCII characters written literally (Polish names stay readable)
//   - Null fields are kept; they are pruned only on the wire
//   - An empty batch is written as "[]"
//
// =============================================================================

package invoicestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ginjaninja78/pretix-ifirma/internal/invoice"
	"github.com/ginjaninja78/pretix-ifirma/pkg/utils"
)

// indent is the indentation used for the intermediate file.
const indent = "    "

// ErrNotFound is wrapped when the intermediate file does not exist.
var ErrNotFound = errors.New("invoice file not found")

// =============================================================================
// WRITE FUNCTIONS
// =============================================================================

// Save writes invoices to path, replacing any existing file. Parent
// directories are created as needed.
func Save(path string, invoices []invoice.Invoice) error {
	data, err := Marshal(invoices)
	if err != nil {
		return err
	}

	if err := utils.EnsureParentDir(path); err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write invoice file: %w", err)
	}

	return nil
}

// Write encodes invoices to w.
func Write(w io.Writer, invoices []invoice.Invoice) error {
	data, err := Marshal(invoices)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Marshal returns the intermediate file representation of invoices,
// terminated by a newline.
func Marshal(invoices []invoice.Invoice) ([]byte, error) {
	if invoices == nil {
		invoices = []invoice.Invoice{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(invoices); err != nil {
		return nil, fmt.Errorf("failed to encode invoices: %w", err)
	}

	return buf.Bytes(), nil
}

// =============================================================================
// READ FUNCTIONS
// =============================================================================

// Load reads the invoices stored at path. A missing file yields an error
// wrapping ErrNotFound.
func Load(path string) ([]invoice.Invoice, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open invoice file: %w", err)
	}
	defer file.Close()

	invoices, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return invoices, nil
}

// Read decodes a JSON array of invoices from r.
func Read(r io.Reader) ([]invoice.Invoice, error) {
	dec := json.NewDecoder(r)

	var invoices []invoice.Invoice
	if err := dec.Decode(&invoices); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %w", err)
	}
	if dec.More() {
		return nil, errors.New("failed to decode invoices: trailing data after array")
	}
	if invoices == nil {
		invoices = []invoice.Invoice{}
	}

	return invoices, nil
}
