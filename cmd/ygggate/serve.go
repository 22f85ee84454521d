package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ygggate/ygggate/internal/api"
	"github.com/ygggate/ygggate/internal/config"
	"github.com/ygggate/ygggate/internal/database"
	"github.com/ygggate/ygggate/internal/gateway"
	"github.com/ygggate/ygggate/internal/logger"
	"github.com/ygggate/ygggate/internal/scheduler"
	"github.com/ygggate/ygggate/internal/scheduler/tasks"
)

const shutdownTimeout = 15 * time.Second

func RunServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
}

func serve(cfg *config.Config) error {
	log := newLogger(cfg)
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("domain", cfg.Site.Domain).
		Bool("flaresolverr", cfg.FlareSolverr.URL != "").
		Msg("Starting ygggate")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	gw, err := gateway.Build(cfg, db, log.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		return err
	}
	if err := tasks.RegisterSessionKeepaliveTask(sched, cfg.Scheduler.KeepaliveCron, gw); err != nil {
		return err
	}
	if err := tasks.RegisterCategoryRefreshTask(sched, gw); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Warn().Err(err).Msg("Scheduler did not stop cleanly")
		}
	}()

	server := api.NewServer(gw, api.Options{Scheduler: sched, Logs: log}, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
