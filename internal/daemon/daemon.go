package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"recsync/internal/config"
	"recsync/internal/logging"
	"recsync/internal/recdb"
	"recsync/internal/scanner"
)

// stopGrace bounds how long Stop waits for loops and background jobs.
const stopGrace = 30 * time.Second

// Daemon runs the synchronization engine and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *recdb.Store
	engine *scanner.Engine

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	TrackedFiles   int
	BackgroundJobs int
	Recordings     map[recdb.Status]int
	DatabasePath   string
	LockFilePath   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *recdb.Store, engine *scanner.Engine, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || engine == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, engine, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "recsyncd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		engine:   engine,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the engine.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another recsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.engine.Start(runCtx)

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the engine down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if err := d.engine.Stop(stopCtx); err != nil {
		d.logger.Warn("engine did not stop cleanly", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("failed to read recording stats", logging.Error(err))
	}
	return Status{
		Running:        d.running.Load() && d.engine.Running(),
		TrackedFiles:   d.engine.Tracker().Len(),
		BackgroundJobs: d.engine.BackgroundJobs(),
		Recordings:     stats,
		DatabasePath:   d.store.Path(),
		LockFilePath:   d.lockPath,
	}
}
