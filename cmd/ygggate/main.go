package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ygggate/ygggate/internal/config"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ygggate",
		Short: "Torznab-style search and download gateway for YggTorrent",
		Long: `ygggate keeps a logged-in session on the origin site and exposes
search, download, category and account endpoints over HTTP.`,
		SilenceUsage: true,
	}
	rootCmd.Version = config.Version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")

	rootCmd.AddCommand(RunServeCommand(&configPath))
	rootCmd.AddCommand(RunLoginCommand(&configPath))
	rootCmd.AddCommand(RunFetchCommand(&configPath))
	rootCmd.AddCommand(RunGenerateConfigCommand())
	rootCmd.AddCommand(RunVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ygggate",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(config.Version)
		},
	}
}

// loadConfig loads and validates configuration for commands that talk to the origin.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
