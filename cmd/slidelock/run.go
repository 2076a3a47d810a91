// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slidelock/internal/config"
	"github.com/pdiddy/slidelock/internal/convert"
	"github.com/pdiddy/slidelock/internal/pipeline"
	"github.com/pdiddy/slidelock/internal/protect"
	"github.com/pdiddy/slidelock/internal/scan"
)

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, loadedSecrets)
	if err != nil {
		return err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	log.Info().
		Str("config", cfg.File()).
		Str("source", settings.SourceDir).
		Str("dest", settings.DistDir).
		Msg("starting run")

	var scanner scan.Scanner
	if settings.ClamdAddress != "" {
		c, err := scan.NewClamd(settings.ClamdAddress)
		if err != nil {
			return err
		}
		log.Info().Str("clamd", c.Address()).Msg("scanning inputs with ClamAV")
		scanner = c
	}

	out := cmd.OutOrStdout()
	conv, err := convert.New(convert.Options{
		SourceDir:  settings.SourceDir,
		DistDir:    settings.DistDir,
		Binary:     settings.ConverterPath,
		Extensions: settings.Extensions,
		Timeout:    settings.ConverterTimeout,
		Scanner:    scanner,
		Logger:     &log,
	}, out)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	log.Debug().Str("converter", conv.Binary()).Msg("resolved converter")

	prot, err := protect.New(settings.OwnerPassword)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfig, err)
	}

	opts := []pipeline.Option{pipeline.WithLogger(log)}
	if progress, _ := cmd.Flags().GetBool("progress"); progress {
		opts = append(opts, pipeline.WithProgress(cmd.ErrOrStderr()))
	}

	report, err := pipeline.New(conv, prot, settings.DistDir, out, opts...).Run(ctx)
	if err != nil {
		return err
	}

	strict, _ := cmd.Flags().GetBool("strict")
	if (strict || settings.Strict) && report.HasFailures() {
		return fmt.Errorf("%d file(s) failed", report.Failed())
	}
	return nil
}
