// =============================================================================
// pretix-ifirma - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (pretix-ifirma)
//   ├── convertCmd  (pretix-ifirma convert)
//   ├── uploadCmd   (pretix-ifirma upload)
//   ├── validateCmd (pretix-ifirma validate)
//   └── versionCmd  (pretix-ifirma version)
//
// CONFIGURATION:
//   Before any command runs, the root command:
//   1. Loads the .env file into the environment (if present)
//   2. Loads config.yaml on top of the built-in defaults
//   3. Sets up logging, tagged with a run ID
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
	"github.com/ginjaninja78/pretix-ifirma/pkg/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// envFile holds the path to the .env file with the ifirma credentials.
var envFile string

// verbose enables debug logging when set to true.
var verbose bool

// cfg and log are set up by the root command before any subcommand runs.
var (
	cfg *config.Config
	log *logger.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pretix-ifirma",
	Short: "Turn pretix order exports into ifirma invoices",
	Long: `pretix-ifirma converts the order export of a pretix event into invoices and
issues them through the ifirma accounting API.

The work is done in two steps with a reviewable file in between:

  pretix-ifirma convert   # orders.csv -> ifirma_invoices.json
  pretix-ifirma upload    # ifirma_invoices.json -> ifirma

Credentials are read from IFIRMA_API_KEY and IFIRMA_USERNAME, which may be
kept in a .env file next to config.yaml.`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Close()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (built-in defaults are used if the default file is missing)",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to a .env file with IFIRMA_* credentials (optional)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// setup loads the environment and configuration and creates the logger.
// An explicitly passed --config file must exist.
func setup(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	loaded, err := config.Load(cfgFile, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	cfg = loaded

	level := logger.LogLevel(cfg.LogLevel)
	if verbose {
		level = logger.LevelDebug
	}

	l, err := logger.Open(logger.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	if err != nil {
		return &config.ConfigurationError{Field: "log_output", Err: err}
	}
	log = l.With("run_id", uuid.NewString(), "command", cmd.Name())

	log.Debug("configuration loaded", "config", cfgFile, "env_file", envFile)
	return nil
}
