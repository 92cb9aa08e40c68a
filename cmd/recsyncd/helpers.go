package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"recsync/internal/config"
	"recsync/internal/logging"
	"recsync/internal/metadata"
	"recsync/internal/recdb"
	"recsync/internal/scanner"
)

func newLogger(cfg *config.Config, logFile string) (*slog.Logger, error) {
	outputs := []string{"stdout"}
	errOutputs := []string{"stderr"}
	if logFile != "" {
		logPath := filepath.Join(cfg.Paths.LogDir, logFile)
		outputs = append(outputs, logPath)
		errOutputs = append(errOutputs, logPath)
	}

	format := cfg.Logging.Format
	if format == "console" && !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		format = "json"
	}

	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           format,
		OutputPaths:      outputs,
		ErrorOutputPaths: errOutputs,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func newEngine(cfg *config.Config, store *recdb.Store, logger *slog.Logger) *scanner.Engine {
	probe := metadata.NewAnalyzer(cfg.Metadata.FFprobeBinary, time.Duration(cfg.Metadata.ProbeTimeout)*time.Second)
	indexer := metadata.NewIndexer(cfg.Metadata.FFprobeBinary, time.Duration(cfg.Metadata.IndexerTimeout)*time.Second)
	return scanner.New(cfg, store, probe, indexer, logger)
}
