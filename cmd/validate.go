// =============================================================================
// pretix-ifirma - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, an offline check of everything
// the upload command needs:
//   1. config.yaml and the IFIRMA_* credentials
//   2. the intermediate invoice file
//   3. the invoice invariants (VAT type and rate agree, dates, amounts)
//
// For each invoice it prints the signature the upload would carry. Nothing is
// sent over the network.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
	"github.com/ginjaninja78/pretix-ifirma/internal/invoicestore"
	"github.com/ginjaninja78/pretix-ifirma/internal/uploader"
	"github.com/ginjaninja78/pretix-ifirma/internal/validation"
	"github.com/ginjaninja78/pretix-ifirma/pkg/logger"
)

// validateOptions holds the flags of the validate command.
type validateOptions struct {
	input  string
	strict bool
	now    func() time.Time
}

var validateOpts validateOptions

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration, credentials and the invoice file without uploading",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := validateOpts
		opts.now = time.Now
		return runValidate(cmd.OutOrStdout(), cfg, log, opts)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateOpts.input, "input", "", "Invoice file to check (default: output_file from config)")
	validateCmd.Flags().BoolVar(&validateOpts.strict, "strict", false, "Exit with an error if any invoice check fails")
}

// runValidate checks the setup and every stored invoice.
func runValidate(out io.Writer, cfg *config.Config, log *logger.Logger, opts validateOptions) error {
	input := firstNonEmpty(opts.input, cfg.OutputFile)

	upload := cfg.Upload
	creds, err := config.LoadCredentials(&upload)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "✓ Configuration and credentials are valid")
	fmt.Fprintf(out, "  Endpoint: %s (key %s, user %s)\n", upload.URL, upload.KeyName, creds.Username)

	invoices, err := invoicestore.Load(input)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Loaded %d invoice(s) from %s\n", len(invoices), input)

	log = log.WithComponent("validate")

	result := validation.New().ValidateAll(invoices)
	for _, issue := range result.Issues {
		log.Warn("invoice check failed", "order_code", issue.OrderCode, "field", issue.Field, "rule", issue.Rule, "value", issue.Value)
		fmt.Fprintf(out, "  ✗ %s\n", issue)
	}

	now := opts.now
	if now == nil {
		now = time.Now
	}
	normalizer := uploader.NewNormalizer(now, cfg.Invoice.PaymentDays)
	signer := uploader.NewSigner(upload.URL, creds.Username, upload.KeyName, creds.Key)

	fmt.Fprintln(out, "\nSignatures:")
	for _, inv := range invoices {
		body, err := normalizer.Prepare(inv)
		if err != nil {
			fmt.Fprintf(out, "  ✗ %s: %v\n", inv.Note, err)
			continue
		}
		fmt.Fprintf(out, "  %s  %s (%d bytes)\n", signer.Sign(body), inv.Note, len(body))
	}

	fmt.Fprintln(out, "\n=== Validation Complete ===")
	fmt.Fprintf(out, "Invoices checked: %d\n", result.InvoicesValidated)
	fmt.Fprintf(out, "With issues:      %d\n", result.InvalidInvoices)

	if opts.strict && !result.IsValid() {
		return fmt.Errorf("%d invoice(s) failed validation", result.InvalidInvoices)
	}
	return nil
}
