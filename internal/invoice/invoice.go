// Package invoice defines the accounting invoice document sent to the ifirma
// API together with its canonical wire encoding.
//
// JSON field names follow the ifirma "fakturakraj" schema. Nullable fields are
// pointers and are encoded as null in the intermediate file; the wire encoding
// (see Encode) removes every null-valued key.
package invoice

// DateLayout is the calendar date format used by every date field.
const DateLayout = "2006-01-02"

// VATType is the ifirma VAT classification of a line item.
type VATType string

const (
	// VATExempt marks an item exempt from VAT ("zwolniona"). Exempt items carry
	// no rate on the wire.
	VATExempt VATType = "ZW"

	// VATStandard marks an item taxed at a percentage rate.
	VATStandard VATType = "PRC"
)

// Invoice is a single domestic invoice.
type Invoice struct {
	// Status is a bookkeeping marker set by the converter. It is not part of
	// the wire schema and is dropped before upload.
	Status *string `json:"Status"`

	Paid                   float64      `json:"Zaplacono" validate:"gte=0"`
	CalculateFrom          string       `json:"LiczOd"`
	BankAccount            *string      `json:"NumerKontaBankowego"`
	IssueDate              string       `json:"DataWystawienia" validate:"datetime=2006-01-02"`
	IssuePlace             string       `json:"MiejsceWystawienia"`
	SaleDate               string       `json:"DataSprzedazy" validate:"datetime=2006-01-02"`
	SaleDateFormat         string       `json:"FormatDatySprzedazy"`
	PaymentDeadline        string       `json:"TerminPlatnosci" validate:"datetime=2006-01-02"`
	PaymentMethod          string       `json:"SposobZaplaty"`
	NumberingSeries        string       `json:"NazwaSeriiNumeracji"`
	TemplateName           string       `json:"NazwaSzablonu"`
	RecipientSignatureType string       `json:"RodzajPodpisuOdbiorcy"`
	RecipientSignature     string       `json:"PodpisOdbiorcy"`
	IssuerSignature        string       `json:"PodpisWystawcy"`
	Note                   string       `json:"Uwagi"`
	GIOSNumberVisible      bool         `json:"WidocznyNumerGios"`
	Number                 *string      `json:"Numer"`
	Items                  []LineItem   `json:"Pozycje" validate:"min=1,dive"`
	Counterparty           Counterparty `json:"Kontrahent"`
}

// LineItem is one position on an invoice.
type LineItem struct {
	// VATRate is nil for exempt items once the invoice is normalized.
	VATRate     *float64 `json:"StawkaVat" validate:"omitempty,gte=0"`
	Quantity    float64  `json:"Ilosc" validate:"gte=0"`
	UnitPrice   float64  `json:"CenaJednostkowa" validate:"gte=0"`
	Description string   `json:"NazwaPelna" validate:"required"`
	Unit        string   `json:"Jednostka"`
	VATType     VATType  `json:"TypStawkiVat" validate:"oneof=ZW PRC"`
}

// Counterparty is the buyer. Pretix customers are always private persons.
type Counterparty struct {
	Name       string `json:"Nazwa" validate:"required"`
	Email      string `json:"Email" validate:"omitempty,email"`
	Phone      string `json:"Telefon"`
	Street     string `json:"Ulica"`
	PostalCode string `json:"KodPocztowy"`
	Country    string `json:"Kraj"`
	City       string `json:"Miejscowosc"`
	Individual bool   `json:"OsobaFizyczna"`
}

// Clone returns a deep copy of inv.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Status = clonePtr(inv.Status)
	out.BankAccount = clonePtr(inv.BankAccount)
	out.Number = clonePtr(inv.Number)
	if inv.Items != nil {
		out.Items = make([]LineItem, len(inv.Items))
		for i, item := range inv.Items {
			item.VATRate = clonePtr(item.VATRate)
			out.Items[i] = item
		}
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 { return &f }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
