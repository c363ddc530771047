package validation

import (
	"testing"

	"github.com/ginjaninja78/pretix-ifirma/internal/invoice"
)

func validInvoice() invoice.Invoice {
	return invoice.Invoice{
		Paid:            100,
		IssueDate:       "2025-03-23",
		SaleDate:        "2025-03-23",
		PaymentDeadline: "2025-03-30",
		Note:            "ABC12",
		Items: []invoice.LineItem{{
			VATRate:     invoice.Float64Ptr(0),
			Quantity:    1,
			UnitPrice:   100,
			Description: "Entry to event Concert A",
			VATType:     invoice.VATExempt,
		}},
		Counterparty: invoice.Counterparty{
			Name:  "Jan Kowalski",
			Email: "jan@example.com",
		},
	}
}

func TestValidateAcceptsValidInvoice(t *testing.T) {
	v := New()

	if issues := v.Validate(validInvoice()); len(issues) != 0 {
		t.Fatalf("Validate() = %v, want no issues", issues)
	}

	// Normalized exempt items carry no rate at all.
	inv := validInvoice()
	inv.Items[0].VATRate = nil
	if issues := v.Validate(inv); len(issues) != 0 {
		t.Fatalf("Validate(nil rate) = %v, want no issues", issues)
	}

	inv = validInvoice()
	inv.Items[0].VATRate = invoice.Float64Ptr(23)
	inv.Items[0].VATType = invoice.VATStandard
	if issues := v.Validate(inv); len(issues) != 0 {
		t.Fatalf("Validate(standard) = %v, want no issues", issues)
	}
}

func TestValidateReportsIssues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*invoice.Invoice)
		field  string
		rule   string
	}{
		{
			name:   "exempt with rate",
			modify: func(inv *invoice.Invoice) { inv.Items[0].VATRate = invoice.Float64Ptr(8) },
			field:  "Pozycje[0].StawkaVat",
			rule:   RuleVATAgreement,
		},
		{
			name: "standard without rate",
			modify: func(inv *invoice.Invoice) {
				inv.Items[0].VATType = invoice.VATStandard
				inv.Items[0].VATRate = nil
			},
			field: "Pozycje[0].StawkaVat",
			rule:  RuleVATAgreement,
		},
		{
			name:   "unknown vat type",
			modify: func(inv *invoice.Invoice) { inv.Items[0].VATType = "XX" },
			field:  "Pozycje[0].TypStawkiVat",
			rule:   "oneof",
		},
		{
			name:   "deadline before issue",
			modify: func(inv *invoice.Invoice) { inv.PaymentDeadline = "2025-03-01" },
			field:  "TerminPlatnosci",
			rule:   RuleDeadline,
		},
		{
			name:   "bad date",
			modify: func(inv *invoice.Invoice) { inv.IssueDate = "23.03.2025" },
			field:  "DataWystawienia",
			rule:   "datetime",
		},
		{
			name:   "bad email",
			modify: func(inv *invoice.Invoice) { inv.Counterparty.Email = "not-an-email" },
			field:  "Kontrahent.Email",
			rule:   "email",
		},
		{
			name:   "no items",
			modify: func(inv *invoice.Invoice) { inv.Items = []invoice.LineItem{} },
			field:  "Pozycje",
			rule:   "min",
		},
		{
			name:   "negative paid",
			modify: func(inv *invoice.Invoice) { inv.Paid = -1 },
			field:  "Zaplacono",
			rule:   "gte",
		},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			tt.modify(&inv)

			issues := v.Validate(inv)
			if len(issues) != 1 {
				t.Fatalf("Validate() = %v, want exactly one issue", issues)
			}
			if issues[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", issues[0].Field, tt.field)
			}
			if issues[0].Rule != tt.rule {
				t.Errorf("Rule = %q, want %q", issues[0].Rule, tt.rule)
			}
			if issues[0].OrderCode != "ABC12" {
				t.Errorf("OrderCode = %q, want ABC12", issues[0].OrderCode)
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	bad := validInvoice()
	bad.Note = "BAD01"
	bad.Counterparty.Name = ""

	result := New().ValidateAll([]invoice.Invoice{validInvoice(), bad, validInvoice()})

	if result.InvoicesValidated != 3 {
		t.Errorf("InvoicesValidated = %d, want 3", result.InvoicesValidated)
	}
	if result.InvalidInvoices != 1 {
		t.Errorf("InvalidInvoices = %d, want 1", result.InvalidInvoices)
	}
	if result.IsValid() {
		t.Error("IsValid() = true, want false")
	}
	if len(result.Issues) != 1 || result.Issues[0].OrderCode != "BAD01" {
		t.Errorf("Issues = %v", result.Issues)
	}
}
