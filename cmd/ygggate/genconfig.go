package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ygggate/ygggate/internal/config"
)

func RunGenerateConfigCommand() *cobra.Command {
	var force bool

	command := &cobra.Command{
		Use:   "generate-config [path]",
		Short: "Write a configuration file with the default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				cmd.Printf("Configuration file already exists at: %s\n", path)
				cmd.Println("Use --force to overwrite it.")
				return nil
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			data, err := config.Default().YAML()
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created at: %s\n", path)
			return nil
		},
	}

	command.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return command
}
