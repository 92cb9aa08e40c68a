package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"recsync/internal/logging"
	"recsync/internal/recdb"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Reconcile the database with the recording directories once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := newLogger(cfg, "")
			if err != nil {
				return err
			}

			store, err := recdb.Open(cfg)
			if err != nil {
				logger.Error("open recordings store", logging.Error(err))
				return err
			}
			defer store.Close()

			engine := newEngine(cfg, store, logger)
			if err := engine.BatchScan(signalCtx); err != nil {
				return err
			}
			return engine.WaitBackground(signalCtx)
		},
	}
}
