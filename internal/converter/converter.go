// =============================================================================
// pretix-ifirma - Converter Module
// =============================================================================
//
// This module turns order export rows into ifirma invoices.
//
// CONVERSION PIPELINE (per row):
//   1. Apply column transformation rules
//   2. Combine order date and time into the issue date
//   3. Parse the decimal-comma amounts (total, exempt gross, VAT, quantity)
//   4. Derive the payment deadline, description and VAT classification
//   5. Build the counterparty with a default for every blank field
//   6. Run best-effort invariant checks (warnings only)
//
// A row that fails steps 2-3 is logged with its order code and skipped. The
// remaining rows are still converted, in input order.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
	"github.com/ginjaninja78/pretix-ifirma/internal/invoice"
	"github.com/ginjaninja78/pretix-ifirma/internal/types"
	"github.com/ginjaninja78/pretix-ifirma/internal/validation"
)

// eventPlaceholder is replaced by the event name in the description template.
const eventPlaceholder = "{event}"

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of converting one table.
type Result struct {
	// Invoices holds the converted invoices in input order.
	Invoices []invoice.Invoice

	// Failures holds one *MalformedInputError per skipped row.
	Failures []error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the conversion.
type ProcessingStats struct {
	RowsRead           int
	InvoicesCreated    int
	RowsSkipped        int
	ValidationWarnings int
	ProcessingTime     time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is the logging interface the converter depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Converter maps order rows onto invoices.
type Converter struct {
	columns   config.Columns
	defaults  config.Defaults
	settings  config.InvoiceSettings
	rules     *Transformer
	validator *validation.Validator
	logger    Logger
}

// New creates a Converter from the application configuration.
func New(cfg *config.Config, logger Logger) (*Converter, error) {
	rules, err := NewTransformer(cfg.TransformationRules)
	if err != nil {
		return nil, err
	}

	return &Converter{
		columns:   cfg.Columns,
		defaults:  cfg.Defaults,
		settings:  cfg.Invoice,
		rules:     rules,
		validator: validation.New(),
		logger:    logger,
	}, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run converts every row of table. It never fails as a whole: rows that
// cannot be converted are reported in Result.Failures and skipped.
func (c *Converter) Run(table *types.Table) Result {
	startTime := time.Now()
	result := Result{
		Invoices: make([]invoice.Invoice, 0, len(table.Rows)),
	}
	result.Stats.RowsRead = len(table.Rows)

	for _, row := range table.Rows {
		inv, err := c.ConvertRow(row)
		if err != nil {
			result.Failures = append(result.Failures, err)
			result.Stats.RowsSkipped++

			orderCode := row.Value(c.columns.OrderCode, "")
			var inputErr *MalformedInputError
			if errors.As(err, &inputErr) {
				orderCode = inputErr.OrderCode
			}
			c.logger.Error("skipping order", "order_code", orderCode, "row", row.Number, "error", err)
			continue
		}

		for _, issue := range c.validator.Validate(inv) {
			result.Stats.ValidationWarnings++
			c.logger.Warn("invoice check failed", "order_code", inv.Note, "row", row.Number,
				"field", issue.Field, "rule", issue.Rule, "value", issue.Value)
		}

		result.Invoices = append(result.Invoices, inv)
	}

	result.Stats.InvoicesCreated = len(result.Invoices)
	result.Stats.ProcessingTime = time.Since(startTime)

	c.logger.Info("conversion finished",
		"rows", result.Stats.RowsRead,
		"invoices", result.Stats.InvoicesCreated,
		"skipped", result.Stats.RowsSkipped,
		"warnings", result.Stats.ValidationWarnings)

	return result
}

// ConvertRow maps a single order row onto an invoice.
//
// RETURNS:
//   - The invoice.
//   - A *MalformedInputError wrapping a *MalformedDateError or
//     *MalformedNumberError if the row is unusable.
func (c *Converter) ConvertRow(row types.Row) (invoice.Invoice, error) {
	fields, err := c.rules.Apply(row.Fields)
	if err != nil {
		return invoice.Invoice{}, &MalformedInputError{OrderCode: row.Value(c.columns.OrderCode, ""), Row: row.Number, Err: err}
	}
	r := types.Row{Number: row.Number, Fields: fields}

	cols := c.columns
	orderCode := r.Value(cols.OrderCode, "")
	fail := func(err error) (invoice.Invoice, error) {
		return invoice.Invoice{}, &MalformedInputError{OrderCode: orderCode, Row: r.Number, Err: err}
	}

	// =========================================================================
	// DATES
	// =========================================================================

	issuedAt, err := CombineDateTime(r.Value(cols.OrderDate, ""), r.Value(cols.OrderTime, ""))
	if err != nil {
		return fail(err)
	}
	issueDate := issuedAt.Format(invoice.DateLayout)
	deadline := issuedAt.AddDate(0, 0, c.settings.PaymentDays).Format(invoice.DateLayout)

	// =========================================================================
	// AMOUNTS
	// =========================================================================

	total, err := parseColumn(cols.Total, r.Value(cols.Total, "0,00"))
	if err != nil {
		return fail(err)
	}

	unitPrice := total
	if gross := r.Value(cols.ExemptGross, ""); gross != "" {
		if unitPrice, err = parseColumn(cols.ExemptGross, gross); err != nil {
			return fail(err)
		}
	}

	vatValue, err := parseColumn(cols.VATValue, r.Value(cols.VATValue, "0,00"))
	if err != nil {
		return fail(err)
	}

	quantity, err := parseColumn(cols.Quantity, r.Value(cols.Quantity, c.defaults.Quantity))
	if err != nil {
		return fail(err)
	}

	vatType := invoice.VATStandard
	if vatValue == 0 {
		vatType = invoice.VATExempt
	}

	// =========================================================================
	// DOCUMENT
	// =========================================================================

	eventName := r.ValueOrDefault(cols.EventName, c.defaults.EventName)

	inv := invoice.Invoice{
		Paid:                   total,
		CalculateFrom:          c.settings.CalculateFrom,
		BankAccount:            nil,
		IssueDate:              issueDate,
		IssuePlace:             r.ValueOrDefault(cols.Address, c.defaults.IssuePlace),
		SaleDate:               issueDate,
		SaleDateFormat:         c.settings.SaleDateFormat,
		PaymentDeadline:        deadline,
		PaymentMethod:          c.settings.PaymentMethod,
		NumberingSeries:        c.settings.NumberingSeries,
		TemplateName:           c.settings.TemplateName,
		RecipientSignatureType: c.settings.RecipientSignatureType,
		RecipientSignature:     c.settings.RecipientSignature,
		IssuerSignature:        c.settings.IssuerSignature,
		Note:                   orderCode,
		GIOSNumberVisible:      c.settings.GIOSNumberVisible,
		Number:                 nil,
		Items: []invoice.LineItem{{
			VATRate:     invoice.Float64Ptr(vatValue),
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			Description: strings.ReplaceAll(c.settings.DescriptionTemplate, eventPlaceholder, eventName),
			Unit:        c.settings.Unit,
			VATType:     vatType,
		}},
		Counterparty: c.counterparty(r),
	}
	if c.settings.StatusMarker != "" {
		inv.Status = invoice.StringPtr(c.settings.StatusMarker)
	}

	return inv, nil
}

// counterparty builds the buyer from the row. No field is ever left blank
// except email and phone, which have no sensible default.
func (c *Converter) counterparty(r types.Row) invoice.Counterparty {
	cols := c.columns
	email := r.Value(cols.Email, "")

	name := strings.TrimSpace(r.Value(cols.FirstName, "") + " " + r.Value(cols.LastName, ""))
	if name == "" {
		name = email
	}
	if name == "" {
		name = c.defaults.CustomerName
	}

	return invoice.Counterparty{
		Name:       name,
		Email:      email,
		Phone:      r.Value(cols.Phone, ""),
		Street:     r.ValueOrDefault(cols.Address, c.defaults.Street),
		PostalCode: r.ValueOrDefault(cols.PostalCode, c.defaults.PostalCode),
		Country:    r.ValueOrDefault(cols.Country, c.defaults.Country),
		City:       r.ValueOrDefault(cols.City, c.defaults.City),
		Individual: true,
	}
}

// parseColumn parses a decimal column and names the column on failure.
func parseColumn(column, value string) (float64, error) {
	f, err := ParseDecimal(value)
	if err != nil {
		var numErr *MalformedNumberError
		if errors.As(err, &numErr) {
			numErr.Field = column
			return 0, numErr
		}
		return 0, fmt.Errorf("column %q: %w", column, err)
	}
	return f, nil
}
