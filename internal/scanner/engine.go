package scanner

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"recsync/internal/config"
	"recsync/internal/logging"
	"recsync/internal/metadata"
	"recsync/internal/recdb"
)

// Probe extracts fingerprints and full metadata from recording files.
type Probe interface {
	Fingerprint(path string) (string, error)
	Analyze(ctx context.Context, path string) (*metadata.ProgramInfo, error)
}

// Indexer builds keyframe seek indexes for completed recordings.
type Indexer interface {
	BuildIndex(ctx context.Context, path string) ([]float64, error)
}

// Engine synchronizes the recordings database with the files on disk. Start
// runs a full reconciliation scan, then keeps watching until Stop.
type Engine struct {
	store   *recdb.Store
	probe   Probe
	indexer Indexer
	logger  *slog.Logger

	roots      []string
	extensions map[string]struct{}

	throttle    time.Duration
	quietPeriod time.Duration
	maxAge      time.Duration
	minDuration time.Duration
	sweepEvery  time.Duration

	tracker *Tracker

	bgMu   sync.Mutex
	bgJobs map[string]string
	bgWG   sync.WaitGroup

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs an engine from configuration. The probe and indexer are
// interfaces so tests can substitute fakes for the ffprobe binary.
func New(cfg *config.Config, store *recdb.Store, probe Probe, indexer Indexer, logger *slog.Logger) *Engine {
	extensions := make(map[string]struct{}, len(cfg.Scanner.ScanExtensions))
	for _, ext := range cfg.Scanner.ScanExtensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}
	return &Engine{
		store:       store,
		probe:       probe,
		indexer:     indexer,
		logger:      logging.NewComponentLogger(logger, "scanner"),
		roots:       cfg.Paths.RecordedDirs,
		extensions:  extensions,
		throttle:    time.Duration(cfg.Scanner.UpdateThrottleSeconds) * time.Second,
		quietPeriod: time.Duration(cfg.Scanner.RecordingCompleteSeconds) * time.Second,
		maxAge:      time.Duration(cfg.Scanner.RecordingMaxAgeSeconds) * time.Second,
		minDuration: time.Duration(cfg.Scanner.MinimumRecordingSeconds) * time.Second,
		sweepEvery:  time.Duration(cfg.Scanner.CompletionCheckIntervalSeconds) * time.Second,
		tracker:     NewTracker(),
		bgJobs:      make(map[string]string),
		done:        make(chan struct{}),
	}
}

// Tracker exposes the shared recording state, mainly for tests and status output.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Running reports whether the scan loops are alive.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Start launches the batch scan followed by the watch and sweep loops. It is
// a no-op when the engine is already running.
func (e *Engine) Start(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer func() {
			e.running.Store(false)
			close(e.done)
		}()
		e.run(runCtx)
	}()
}

func (e *Engine) run(ctx context.Context) {
	if err := e.BatchScan(ctx); err != nil && ctx.Err() == nil {
		e.logger.Error("batch scan failed", logging.Error(err))
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return e.watchLoop(groupCtx) })
	group.Go(func() error { return e.sweepLoop(groupCtx) })
	if err := group.Wait(); err != nil && ctx.Err() == nil {
		e.logger.Error("scanner loop exited", logging.Error(err))
	}
}

// Stop cancels the loops and waits for them and any background analysis jobs
// to finish, or for ctx to expire. It is a no-op before the first Start. The
// running flag is cleared by the supervisory goroutine itself, so an engine
// whose loops died on their own still reports stopped and can be restarted.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return e.WaitBackground(ctx)
}

// WaitBackground blocks until the running background analysis jobs finish or
// ctx expires.
func (e *Engine) WaitBackground(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		e.bgWG.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isTargetFile reports whether a path is eligible for the pipeline: an
// allow-listed extension and not a macOS metadata companion file.
func (e *Engine) isTargetFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "._") {
		return false
	}
	_, ok := e.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}
