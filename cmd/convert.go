// =============================================================================
// pretix-ifirma - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which turns a pretix order export
// into the intermediate invoice file.
//
// COMMAND USAGE:
//   pretix-ifirma convert [flags]
//
// FLAGS:
//   --input    : Order export to read (.csv or .xlsx)
//   --output   : Intermediate invoice file to write
//   --sheet    : Worksheet to read from an .xlsx export
//   --dry-run  : Print the invoices instead of writing the output file
//   --archive  : Move the export to archive_dir after a successful run
//
// PROCESSING PIPELINE:
//   1. Parse the export into a header-keyed table
//   2. Convert every row (malformed rows are logged and skipped)
//   3. Write all invoices to the output file
//   4. Archive the export (optional)
//   5. Print a summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
	"github.com/ginjaninja78/pretix-ifirma/internal/converter"
	"github.com/ginjaninja78/pretix-ifirma/internal/csvparser"
	"github.com/ginjaninja78/pretix-ifirma/internal/invoicestore"
	"github.com/ginjaninja78/pretix-ifirma/internal/types"
	"github.com/ginjaninja78/pretix-ifirma/internal/xlsxparser"
	"github.com/ginjaninja78/pretix-ifirma/pkg/logger"
	"github.com/ginjaninja78/pretix-ifirma/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// convertOptions holds the flags of the convert command.
type convertOptions struct {
	input   string
	output  string
	sheet   string
	dryRun  bool
	archive bool
}

var convertOpts convertOptions

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a pretix order export into ifirma invoices",
	Long: `The convert command reads the pretix order export and writes one invoice per
order to the intermediate JSON file, ready for review and upload.

Rows with a missing or malformed date or amount are logged with their order
code and skipped; all other orders are still converted. Input order is kept.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd.OutOrStdout(), cfg, log, convertOpts)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertOpts.input, "input", "", "Order export to read (default: input_file from config)")
	convertCmd.Flags().StringVar(&convertOpts.output, "output", "", "Invoice file to write (default: output_file from config)")
	convertCmd.Flags().StringVar(&convertOpts.sheet, "sheet", "", "Worksheet of an .xlsx export (default: first sheet)")
	convertCmd.Flags().BoolVar(&convertOpts.dryRun, "dry-run", false, "Print the invoices instead of writing the output file")
	convertCmd.Flags().BoolVar(&convertOpts.archive, "archive", false, "Move the export to archive_dir after a successful run")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runConvert orchestrates the conversion pipeline.
func runConvert(out io.Writer, cfg *config.Config, log *logger.Logger, opts convertOptions) error {
	input := firstNonEmpty(opts.input, cfg.InputFile)
	output := firstNonEmpty(opts.output, cfg.OutputFile)

	if opts.archive && cfg.ArchiveDir == "" {
		return &config.ConfigurationError{Field: "archive_dir", Err: fmt.Errorf("required by --archive")}
	}
	if !utils.FileExists(input) {
		return fmt.Errorf("input file not found: %s", input)
	}

	log = log.WithComponent("convert")

	// =========================================================================
	// STEP 1: PARSE THE EXPORT
	// =========================================================================

	table, err := readTable(input, cfg, opts.sheet)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}
	log.Info("export loaded", "file", input, "rows", len(table.Rows), "columns", len(table.Headers))

	// =========================================================================
	// STEP 2: CONVERT
	// =========================================================================

	conv, err := converter.New(cfg, log)
	if err != nil {
		return err
	}
	result := conv.Run(table)

	// =========================================================================
	// STEP 3: WRITE
	// =========================================================================

	if opts.dryRun {
		if err := invoicestore.Write(out, result.Invoices); err != nil {
			return err
		}
	} else {
		if err := invoicestore.Save(output, result.Invoices); err != nil {
			return err
		}
		log.Info("invoices written", "file", output, "count", len(result.Invoices))
	}

	// =========================================================================
	// STEP 4: ARCHIVE
	// =========================================================================

	archived := ""
	if opts.archive && !opts.dryRun {
		fm := utils.NewFileManager(cfg.ArchiveDir)
		fm.UseTimestampSubdirs = cfg.ArchiveSubdirs
		archived, err = fm.ArchiveInputFile(input)
		if err != nil {
			log.Error("failed to archive export", "file", input, "error", err)
		} else {
			log.Info("export archived", "file", input, "archive", archived)
		}
	}

	// =========================================================================
	// STEP 5: PRINT SUMMARY
	// =========================================================================

	if opts.dryRun {
		return nil
	}

	fmt.Fprintln(out, "=== Conversion Complete ===")
	fmt.Fprintf(out, "Rows read:       %d\n", result.Stats.RowsRead)
	fmt.Fprintf(out, "Invoices:        %d\n", result.Stats.InvoicesCreated)
	fmt.Fprintf(out, "Skipped rows:    %d\n", result.Stats.RowsSkipped)
	fmt.Fprintf(out, "Warnings:        %d\n", result.Stats.ValidationWarnings)
	fmt.Fprintf(out, "Output file:     %s\n", output)
	if archived != "" {
		fmt.Fprintf(out, "Archived to:     %s\n", archived)
	}
	fmt.Fprintf(out, "Time elapsed:    %s\n", result.Stats.ProcessingTime)

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// readTable parses the export, choosing the reader by file extension.
func readTable(path string, cfg *config.Config, sheet string) (*types.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		settings := cfg.XLSX
		if sheet != "" {
			settings.Sheet = sheet
		}
		return xlsxparser.Parse(path, settings)
	default:
		return csvparser.Parse(path, cfg.CSV)
	}
}

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
