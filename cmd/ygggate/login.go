package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ygggate/ygggate/internal/config"
	"github.com/ygggate/ygggate/internal/gateway"
	"github.com/ygggate/ygggate/internal/indexer/session"
)

func RunLoginCommand(configPath *string) *cobra.Command {
	var username, password string

	command := &cobra.Command{
		Use:   "login",
		Short: "Log into the origin once and print the session cookies",
		Long: `Run the login protocol with the configured strategy and print the
resulting cookie header. It can be passed to the API as the cookie parameter.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if username != "" {
				cfg.Account.Username = username
			}
			if password != "" {
				cfg.Account.Password = password
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log := newLogger(cfg)
			defer log.Close()

			gw, err := gateway.Build(cfg, nil, log.Level(zerolog.WarnLevel))
			if err != nil {
				return err
			}

			header, err := gw.Authenticate(cmd.Context(), session.Credentials{
				Username: cfg.Account.Username,
				Password: cfg.Account.Password,
			})
			if err != nil {
				return err
			}
			cmd.Println(header)
			return nil
		},
	}

	command.Flags().StringVarP(&username, "user", "u", "", "origin username (defaults to account.username)")
	command.Flags().StringVarP(&password, "pass", "p", "", "origin password (defaults to account.password)")
	return command
}
