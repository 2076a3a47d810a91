// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slidelock/internal/config"
	"github.com/pdiddy/slidelock/pkg/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Init writes a config file with every supported key. Edit source_dir,
dist_dir, and owner_password before the first run. An existing file is left
untouched unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")
		if err := writeConfigTemplate(path, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

// starterSettings is the content written by init.
func starterSettings() types.Settings {
	return types.Settings{
		SourceDir:     "slides",
		DistDir:       "pdf",
		OwnerPassword: "change-me",
		ConverterPath: config.DefaultConverter,
		Extensions:    config.DefaultExtensions,
	}
}

func writeConfigTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	data, err := yaml.Marshal(starterSettings())
	if err != nil {
		return fmt.Errorf("encoding config template: %w", err)
	}
	// The file holds a password.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
