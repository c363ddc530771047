// =============================================================================
// pretix-ifirma - Validation Engine
// =============================================================================
//
// This module checks converted invoices against the invariants of the ifirma
// schema before they are stored or uploaded:
//   - Field-level: tag rules on the invoice types (dates, amounts, email)
//   - Item-level: the VAT type agrees with the VAT rate
//   - Invoice-level: the payment deadline is not before the issue date
//
// ERROR HANDLING:
//   - Issues are collected, never returned as an error
//   - Each issue names the wire field path, the rule and the offending value
//   - Issues are warnings; callers decide whether to stop on them
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ginjaninja78/pretix-ifirma/internal/invoice"
)

// =============================================================================
// VALIDATION ISSUE TYPES
// =============================================================================

// Rule names reported for the cross-field checks.
const (
	RuleVATAgreement = "vat_agreement"
	RuleDeadline     = "deadline_after_issue"
)

// Issue represents a single failed check on one invoice.
type Issue struct {
	// OrderCode is the order the invoice was built from.
	OrderCode string

	// Field is the wire path of the field, e.g. "Pozycje[0].StawkaVat".
	Field string

	// Value is the offending value.
	Value string

	// Rule is the check that failed.
	Rule string
}

func (i Issue) String() string {
	return fmt.Sprintf("order %q: %s failed %q (value: %q)", i.OrderCode, i.Field, i.Rule, i.Value)
}

// Result contains the outcome of validating a batch.
type Result struct {
	// Issues holds every issue found, in invoice order.
	Issues []Issue

	// InvoicesValidated is the number of invoices checked.
	InvoicesValidated int

	// InvalidInvoices is the number of invoices with at least one issue.
	InvalidInvoices int
}

// IsValid reports whether no issue was found.
func (r *Result) IsValid() bool {
	return len(r.Issues) == 0
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks invoices. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator. Field names are reported by their JSON names.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return "-"
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterStructValidation(lineItemLevel, invoice.LineItem{})
	v.RegisterStructValidation(invoiceLevel, invoice.Invoice{})

	return &Validator{validate: v}
}

// Validate checks a single invoice and returns the issues found.
func (v *Validator) Validate(inv invoice.Invoice) []Issue {
	err := v.validate.Struct(inv)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Issue{{OrderCode: inv.Note, Field: "invoice", Rule: "valid", Value: err.Error()}}
	}

	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{
			OrderCode: inv.Note,
			Field:     fieldPath(fe),
			Value:     fmt.Sprint(fe.Value()),
			Rule:      fe.Tag(),
		})
	}
	return issues
}

// ValidateAll checks every invoice of a batch.
func (v *Validator) ValidateAll(invoices []invoice.Invoice) *Result {
	result := &Result{InvoicesValidated: len(invoices)}

	for _, inv := range invoices {
		issues := v.Validate(inv)
		if len(issues) > 0 {
			result.InvalidInvoices++
			result.Issues = append(result.Issues, issues...)
		}
	}

	return result
}

// =============================================================================
// CROSS-FIELD RULES
// =============================================================================

// lineItemLevel enforces that an exempt item has no rate (or a zero rate
// before normalization) and a standard-rated item has a non-zero rate.
func lineItemLevel(sl validator.StructLevel) {
	item := sl.Current().Interface().(invoice.LineItem)

	var ok bool
	switch item.VATType {
	case invoice.VATExempt:
		ok = item.VATRate == nil || *item.VATRate == 0
	case invoice.VATStandard:
		ok = item.VATRate != nil && *item.VATRate > 0
	default:
		// reported by the oneof tag
		return
	}

	if !ok {
		var value any
		if item.VATRate != nil {
			value = *item.VATRate
		}
		sl.ReportError(value, "StawkaVat", "VATRate", RuleVATAgreement, string(item.VATType))
	}
}

// invoiceLevel enforces that the payment deadline does not precede the issue
// date. Malformed dates are left to the datetime tag.
func invoiceLevel(sl validator.StructLevel) {
	inv := sl.Current().Interface().(invoice.Invoice)

	issued, err := time.Parse(invoice.DateLayout, inv.IssueDate)
	if err != nil {
		return
	}
	deadline, err := time.Parse(invoice.DateLayout, inv.PaymentDeadline)
	if err != nil {
		return
	}
	if deadline.Before(issued) {
		sl.ReportError(inv.PaymentDeadline, "TerminPlatnosci", "PaymentDeadline", RuleDeadline, inv.IssueDate)
	}
}

// fieldPath drops the root struct name: "Invoice.Pozycje[0].StawkaVat"
// becomes "Pozycje[0].StawkaVat".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
