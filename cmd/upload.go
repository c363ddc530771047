// =============================================================================
// pretix-ifirma - Upload Command
// =============================================================================
//
// This file defines the 'upload' command, which issues the stored invoices
// through the ifirma API.
//
// COMMAND USAGE:
//   pretix-ifirma upload [flags]
//
// FLAGS:
//   --input    : Intermediate invoice file to read
//   --dry-run  : Normalize and sign every invoice without sending it
//   --workers  : Number of concurrent uploads (default: upload.workers)
//
// A rejected invoice is logged with its order code and buyer and the batch
// continues. Rejections do not change the exit code; a missing invoice file
// or missing credentials do.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
	"github.com/ginjaninja78/pretix-ifirma/internal/invoicestore"
	"github.com/ginjaninja78/pretix-ifirma/internal/uploader"
	"github.com/ginjaninja78/pretix-ifirma/pkg/logger"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// uploadOptions holds the flags of the upload command.
type uploadOptions struct {
	input   string
	dryRun  bool
	workers int

	// now is the clock used to restamp invoice dates.
	now func() time.Time
}

var uploadOpts uploadOptions

// =============================================================================
// UPLOAD COMMAND DEFINITION
// =============================================================================

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Send the stored invoices to ifirma",
	Long: `The upload command reads the intermediate invoice file and posts every invoice
to the ifirma API, signed with the account's API key.

Before sending, each invoice is dated today with a payment deadline
payment_days later, gets "BRAK" as its bank account if none is set, and
loses every empty (null) field.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := uploadOpts
		opts.now = time.Now
		return runUpload(ctx, cmd.OutOrStdout(), cfg, log, opts)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadOpts.input, "input", "", "Invoice file to upload (default: output_file from config)")
	uploadCmd.Flags().BoolVar(&uploadOpts.dryRun, "dry-run", false, "Normalize and sign every invoice without sending it")
	uploadCmd.Flags().IntVar(&uploadOpts.workers, "workers", 0, "Number of concurrent uploads; 0 uses upload.workers from config")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runUpload orchestrates the upload. Only setup failures are returned.
func runUpload(ctx context.Context, out io.Writer, cfg *config.Config, log *logger.Logger, opts uploadOptions) error {
	input := firstNonEmpty(opts.input, cfg.OutputFile)

	// =========================================================================
	// STEP 1: CREDENTIALS AND SETTINGS
	// =========================================================================

	upload := cfg.Upload
	creds, err := config.LoadCredentials(&upload)
	if err != nil {
		return err
	}

	workers := upload.Workers
	if opts.workers != 0 {
		workers = opts.workers
	}
	if workers < 1 || workers > 16 {
		return &config.ConfigurationError{Field: "workers", Err: fmt.Errorf("must be between 1 and 16, got %d", workers)}
	}

	// =========================================================================
	// STEP 2: LOAD INVOICES
	// =========================================================================

	invoices, err := invoicestore.Load(input)
	if err != nil {
		return err
	}

	log = log.WithComponent("upload")
	log.Info("invoices loaded", "file", input, "count", len(invoices), "url", upload.URL)

	// =========================================================================
	// STEP 3: UPLOAD
	// =========================================================================

	now := opts.now
	if now == nil {
		now = time.Now
	}

	signer := uploader.NewSigner(upload.URL, creds.Username, upload.KeyName, creds.Key)
	up := uploader.New(
		uploader.NewNormalizer(now, cfg.Invoice.PaymentDays),
		signer,
		uploader.NewClient(upload.URL, signer, upload.Timeout, nil),
		log,
		uploader.Options{Workers: workers, DryRun: opts.dryRun},
	)

	report := up.Run(ctx, invoices)

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	title := "=== Upload Complete ==="
	if opts.dryRun {
		title = "=== Upload Dry Run Complete ==="
	}
	fmt.Fprintln(out, title)
	fmt.Fprintf(out, "Total invoices:  %d\n", len(invoices))
	fmt.Fprintf(out, "Accepted:        %d\n", report.Sent)
	fmt.Fprintf(out, "Failed:          %d\n", report.Failed)
	fmt.Fprintf(out, "Time elapsed:    %s\n", report.Duration)

	for _, r := range report.Results {
		if r.Err != nil {
			fmt.Fprintf(out, "  ✗ %s (%s): %v\n", r.OrderCode, r.Counterparty, r.Err)
		}
	}

	return nil
}
