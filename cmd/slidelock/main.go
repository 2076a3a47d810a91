// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the slidelock CLI.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/slidelock/internal/config"
	"github.com/pdiddy/slidelock/internal/logger"
	"github.com/pdiddy/slidelock/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// log is the diagnostics logger, configured from the persistent flags.
var log = zerolog.Nop()

// rootCmd converts and protects a presentation tree when run without a
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "slidelock",
	Short: "Convert presentations to PDF and lock them with an owner password",
	Long: `slidelock walks source_dir, converts every presentation to PDF with
LibreOffice into the mirrored location under dist_dir, and then encrypts each
PDF with owner_password. Protected PDFs open without a password, but
permission-respecting viewers refuse printing, copying, annotating, form
filling, and page assembly.

Settings are read from config.yaml in the working directory (see --config).
Any key may be overridden with a SLIDELOCK_<KEY> environment variable; the
owner password may also be stored in .secrets/owner-password.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		log = logger.New(logger.Options{Level: level, Format: format, Writer: cmd.ErrOrStderr()})

		s, err := secrets.Load(secrets.DefaultDir, log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			log.Debug().Int("count", len(s)).Str("dir", secrets.DefaultDir).Msg("loaded secrets")
		}
		return nil
	},
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultFile, "config file")
	rootCmd.PersistentFlags().String("log-level", "info", "diagnostic log level: trace, debug, info, warn, error, off")
	rootCmd.PersistentFlags().String("log-format", "console", "diagnostic log format: console or json")

	rootCmd.Flags().Bool("progress", false, "show a progress bar while protecting PDFs")
	rootCmd.Flags().Bool("strict", false, "exit non-zero if any file failed (also settable via strict: true)")
}

func main() {
	// cobra prints the error to stderr.
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
