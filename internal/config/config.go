// =============================================================================
// pretix-ifirma - Configuration Module
// =============================================================================
//
// This module loads and validates all configuration. There are two sources:
//
//   1. Application config (config.yaml): file locations, column mapping,
//      default values, invoice constants and upload settings.
//   2. Environment (optionally seeded from a .env file): the ifirma
//      credentials, which never live in the YAML file.
//
// Both are plain structs built once at process start and passed explicitly to
// the components that need them.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// APPLICATION CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration loaded from config.yaml.
type Config struct {
	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// InputFile is the order export read by the convert command (.csv or .xlsx).
	// Default: "input.csv"
	InputFile string `yaml:"input_file" validate:"required"`

	// OutputFile is the intermediate invoice file written by convert and read
	// by upload.
	// Default: "ifirma_invoices.json"
	OutputFile string `yaml:"output_file" validate:"required"`

	// ArchiveDir receives the input file after a successful conversion when
	// archiving is requested. Empty disables archiving.
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveSubdirs files archived exports under <archive_dir>/YYYY/MM/DD.
	ArchiveSubdirs bool `yaml:"archive_subdirs"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the log encoding: "text" or "json".
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	// LogOutput is "stderr", "stdout" or the path of a file logs are appended to.
	// Default: "stderr"
	LogOutput string `yaml:"log_output" validate:"required"`

	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	CSV      CSVSettings  `yaml:"csv"`
	XLSX     XLSXSettings `yaml:"xlsx"`
	Columns  Columns      `yaml:"columns"`
	Defaults Defaults     `yaml:"defaults"`

	// TransformationRules are applied to raw column values before they are
	// mapped onto an invoice.
	TransformationRules []TransformationRule `yaml:"transformation_rules" validate:"dive"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	Invoice InvoiceSettings `yaml:"invoice"`
	Upload  UploadSettings  `yaml:"upload"`
}

// CSVSettings contains settings for reading the CSV order export.
type CSVSettings struct {
	// Delimiter separates fields. Pretix exports use ";".
	Delimiter string `yaml:"delimiter" validate:"required"`

	// Encoding of the file. A UTF-8 byte order mark is always tolerated.
	// Valid values: "UTF-8", "windows-1250", "ISO-8859-2"
	Encoding string `yaml:"encoding" validate:"oneof=UTF-8 utf-8 windows-1250 ISO-8859-2"`
}

// XLSXSettings contains settings for reading an XLSX order export.
type XLSXSettings struct {
	// Sheet is the worksheet to read. Empty selects the first sheet.
	Sheet string `yaml:"sheet"`
}

// Columns holds the header names used to look up order fields.
type Columns struct {
	OrderCode   string `yaml:"order_code" validate:"required"`
	OrderDate   string `yaml:"order_date" validate:"required"`
	OrderTime   string `yaml:"order_time" validate:"required"`
	Total       string `yaml:"total" validate:"required"`
	EventName   string `yaml:"event_name" validate:"required"`
	ExemptGross string `yaml:"exempt_gross"`
	VATValue    string `yaml:"vat_value" validate:"required"`
	Quantity    string `yaml:"quantity" validate:"required"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	Address     string `yaml:"address"`
	PostalCode  string `yaml:"postal_code"`
	City        string `yaml:"city"`
	Country     string `yaml:"country"`
	Email       string `yaml:"email"`
	Phone       string `yaml:"phone"`
}

// Defaults holds the values used when an order field is absent or blank.
type Defaults struct {
	EventName    string `yaml:"event_name" validate:"required"`
	CustomerName string `yaml:"customer_name" validate:"required"`
	Street       string `yaml:"street" validate:"required"`
	PostalCode   string `yaml:"postal_code" validate:"required"`
	Country      string `yaml:"country" validate:"required"`
	City         string `yaml:"city" validate:"required"`
	IssuePlace   string `yaml:"issue_place" validate:"required"`

	// Quantity applies only when the column is absent. A blank cell is 0,
	// like every other number.
	Quantity string `yaml:"quantity" validate:"required"`
}

// InvoiceSettings holds the invoice constants of the ifirma schema.
type InvoiceSettings struct {
	// DescriptionTemplate builds the line item name. "{event}" is replaced by
	// the event name.
	DescriptionTemplate string `yaml:"description_template" validate:"required"`

	Unit                   string `yaml:"unit" validate:"required"`
	PaymentDays            int    `yaml:"payment_days" validate:"gte=0"`
	PaymentMethod          string `yaml:"payment_method" validate:"required"`
	CalculateFrom          string `yaml:"calculate_from" validate:"oneof=BRT NET"`
	SaleDateFormat         string `yaml:"sale_date_format" validate:"oneof=DZN MSC"`
	NumberingSeries        string `yaml:"numbering_series"`
	TemplateName           string `yaml:"template_name"`
	RecipientSignatureType string `yaml:"recipient_signature_type"`
	RecipientSignature     string `yaml:"recipient_signature"`
	IssuerSignature        string `yaml:"issuer_signature"`
	GIOSNumberVisible      bool   `yaml:"gios_number_visible"`

	// StatusMarker is stored on converted invoices for bookkeeping and
	// dropped before upload. Empty disables it.
	StatusMarker string `yaml:"status_marker"`
}

// UploadSettings holds the ifirma endpoint settings.
type UploadSettings struct {
	// URL is the invoice endpoint. It is also part of the signed message.
	URL string `yaml:"url" validate:"required,url"`

	// KeyName is the ifirma key label, also part of the signed message.
	KeyName string `yaml:"key_name" validate:"required"`

	// Timeout bounds each POST.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// Workers is the number of concurrent uploads. 1 uploads sequentially.
	Workers int `yaml:"workers" validate:"min=1,max=16"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines the transformations applied to one column.
type TransformationRule struct {
	// Field is the column header in the input file.
	Field string `yaml:"field" validate:"required"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions" validate:"min=1,dive"`
}

// TransformationAction defines a single transformation.
type TransformationAction struct {
	// Type is one of: "trim", "uppercase", "lowercase", "prepend_string",
	// "append_string", "replace", "regex_replace", "lookup", "default".
	Type string `yaml:"type" validate:"oneof=trim uppercase lowercase prepend_string append_string replace regex_replace lookup default"`

	// Value is the type-specific parameter (string to add, replacement text,
	// or the default for empty values).
	Value string `yaml:"value"`

	// Find is the substring or pattern for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values for "lookup".
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default ifirma endpoint and key label.
const (
	DefaultURL     = "https://www.ifirma.pl/iapi/fakturakraj.json"
	DefaultKeyName = "faktura"
)

// Default returns the built-in configuration. The column names match the
// Polish pretix order export.
func Default() *Config {
	return &Config{
		InputFile:  "input.csv",
		OutputFile: "ifirma_invoices.json",
		LogLevel:   "info",
		LogFormat:  "text",
		LogOutput:  "stderr",
		CSV: CSVSettings{
			Delimiter: ";",
			Encoding:  "UTF-8",
		},
		Columns: Columns{
			OrderCode:   "Kod zamówienia",
			OrderDate:   "Data zamówienia",
			OrderTime:   "Godzina zamówienia",
			Total:       "Suma zamówienia",
			EventName:   "Nazwa wydarzenia",
			ExemptGross: "Brutto dla podatku 0.00 %",
			VATValue:    "Wartość podatku 0.00 %",
			Quantity:    "Pozycje",
			FirstName:   "Imię",
			LastName:    "Nazwisko",
			Address:     "Adres",
			PostalCode:  "Kod pocztowy",
			City:        "Miasto",
			Country:     "Kraj",
			Email:       "Email",
			Phone:       "Numer telefonu",
		},
		Defaults: Defaults{
			EventName:    "Wydarzenie",
			CustomerName: "Klient",
			Street:       "Nieznana",
			PostalCode:   "00-000",
			Country:      "PL",
			City:         "Nieznane",
			IssuePlace:   "Nieznane",
			Quantity:     "1",
		},
		Invoice: InvoiceSettings{
			DescriptionTemplate:    "Entry to event {event}",
			Unit:                   "sztuk",
			PaymentDays:            7,
			PaymentMethod:          "PRZ",
			CalculateFrom:          "BRT",
			SaleDateFormat:         "DZN",
			NumberingSeries:        "default",
			TemplateName:           "",
			RecipientSignatureType: "OUP",
			RecipientSignature:     "Odbiorca",
			IssuerSignature:        "Wystawca",
			GIOSNumberVisible:      true,
			StatusMarker:           "DO_POTWIERDZENIA",
		},
		Upload: UploadSettings{
			URL:     DefaultURL,
			KeyName: DefaultKeyName,
			Timeout: 300 * time.Second,
			Workers: 1,
		},
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the YAML file at path on top of the built-in defaults and
// validates the result.
//
// PARAMETERS:
//   - path: The configuration file.
//   - mustExist: When false, a missing file yields the defaults.
//
// RETURNS:
//   - The configuration.
//   - A *ConfigurationError if the file is unreadable or invalid.
func Load(path string, mustExist bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigurationError{Field: path, Err: fmt.Errorf("failed to parse config file: %w", err)}
		}
	case errors.Is(err, fs.ErrNotExist) && !mustExist:
		// defaults only
	default:
		return nil, &ConfigurationError{Field: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cfg against its validation tags.
func (c *Config) Validate() error {
	return validateStruct(c)
}
