package uploader

import (
	"strings"
	"time"

	"github.com/ginjaninja78/pretix-ifirma/internal/invoice"
)

// NoBankAccount is sent when an invoice has no bank account.
const NoBankAccount = "BRAK"

// Transform rewrites one aspect of an invoice in place.
type Transform func(inv *invoice.Invoice)

// DropStatus removes the bookkeeping status marker.
func DropStatus(inv *invoice.Invoice) {
	inv.Status = nil
}

// DefaultBankAccount fills a null bank account with NoBankAccount.
func DefaultBankAccount(inv *invoice.Invoice) {
	if inv.BankAccount == nil {
		inv.BankAccount = invoice.StringPtr(NoBankAccount)
	}
}

// SanitizePhone strips apostrophes, which spreadsheet tools prepend to keep
// numbers as text, and surrounding whitespace.
func SanitizePhone(inv *invoice.Invoice) {
	inv.Counterparty.Phone = strings.TrimSpace(strings.ReplaceAll(inv.Counterparty.Phone, "'", ""))
}

// StampDates returns a Transform that sets the issue and sale dates to the
// current day and the payment deadline paymentDays later.
func StampDates(now func() time.Time, paymentDays int) Transform {
	return func(inv *invoice.Invoice) {
		today := now()
		inv.IssueDate = today.Format(invoice.DateLayout)
		inv.SaleDate = inv.IssueDate
		inv.PaymentDeadline = today.AddDate(0, 0, paymentDays).Format(invoice.DateLayout)
	}
}

// NullExemptRates clears the VAT rate of every exempt line item.
func NullExemptRates(inv *invoice.Invoice) {
	for i := range inv.Items {
		if inv.Items[i].VATType == invoice.VATExempt {
			inv.Items[i].VATRate = nil
		}
	}
}

// Normalizer turns a stored invoice into its wire form.
type Normalizer struct {
	transforms []Transform
}

// NewNormalizer returns the standard pipeline: drop the status marker,
// default the bank account, sanitize the phone, restamp the dates and null
// exempt VAT rates. Null pruning happens during encoding.
func NewNormalizer(now func() time.Time, paymentDays int) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return NewPipeline(
		DropStatus,
		DefaultBankAccount,
		SanitizePhone,
		StampDates(now, paymentDays),
		NullExemptRates,
	)
}

// NewPipeline returns a Normalizer applying transforms in order.
func NewPipeline(transforms ...Transform) *Normalizer {
	return &Normalizer{transforms: transforms}
}

// Normalize returns a normalized copy of inv. inv itself is not modified.
func (n *Normalizer) Normalize(inv invoice.Invoice) invoice.Invoice {
	out := inv.Clone()
	for _, t := range n.transforms {
		t(&out)
	}
	return out
}

// Prepare normalizes inv and returns the exact bytes to sign and send.
func (n *Normalizer) Prepare(inv invoice.Invoice) ([]byte, error) {
	return invoice.Encode(n.Normalize(inv))
}
