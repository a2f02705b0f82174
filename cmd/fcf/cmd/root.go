// Package cmd holds the fcf CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fcf_valuation/pkg/app"
	"fcf_valuation/pkg/config"
	"fcf_valuation/pkg/logging"
)

var (
	cfgFile    string
	verbose    bool
	outputFile string
	compact    bool

	services *app.Services
)

var rootCmd = &cobra.Command{
	Use:   "fcf",
	Short: "Free cash flow valuation from financial statement exports",
	Long: `Free cash flow valuation from financial statement exports.

A company directory holds fiscal-year statements (CSV, XLSX or HTML) and,
optionally, a trailing-twelve-months folder (LTM/ or TTM/).

Commands:
    valuate <dir>        value one company and print the report as JSON
    batch   <dir>...     value several companies concurrently
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initServices(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if services != nil {
			services.Close()
		}
	},
}

// Execute runs the root command; Ctrl+C cancels running valuations.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config/fcf.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write JSON to this file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "compact JSON output")

	rootCmd.AddCommand(valuateCmd)
	rootCmd.AddCommand(batchCmd)
}

// initServices loads .env, the config file and the environment, then
// builds the valuation services.
func initServices(cmd *cobra.Command) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	if err := logging.Init(logging.Config{
		Level:         level,
		Format:        cfg.Logging.Format,
		FileEnabled:   cfg.Logging.FileEnabled,
		FilePath:      cfg.Logging.FilePath,
		RotationSize:  cfg.Logging.RotationSize,
		RetentionDays: cfg.Logging.RetentionDays,
		ServiceName:   "fcf-cli",
	}); err != nil {
		return err
	}

	services, err = app.New(cmd.Context(), cfg)
	return err
}

// writeJSON prints v to the --output file or stdout.
func writeJSON(stdout io.Writer, v interface{}) error {
	w := stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
		log.Info().Str("file", outputFile).Msg("writing report")
	}
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
