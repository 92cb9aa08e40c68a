package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recsync/internal/daemon"
	"recsync/internal/deps"
	"recsync/internal/logging"
	"recsync/internal/recdb"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the synchronization daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runID := time.Now().UTC().Format("20060102T150405Z")
			logger, err := newLogger(cfg, fmt.Sprintf("recsyncd-%s.log", runID))
			if err != nil {
				return err
			}

			for _, status := range deps.MissingRequired(deps.CheckBinaries(deps.Requirements(cfg))) {
				logger.Warn("external dependency unavailable, extraction will fail",
					logging.String("name", status.Name),
					logging.String("detail", status.Detail))
			}

			store, err := recdb.Open(cfg)
			if err != nil {
				logger.Error("open recordings store", logging.Error(err))
				return err
			}

			engine := newEngine(cfg, store, logger)
			d, err := daemon.New(cfg, store, engine, logger)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}

			<-signalCtx.Done()
			logger.Info("shutdown signal received")
			d.Stop()
			return nil
		},
	}
}
