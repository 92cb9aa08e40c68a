package testsupport

import (
	"path/filepath"
	"testing"

	"recsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RecordedDirs = []string{filepath.Join(base, "recorded")}
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithRecordedDirs overrides the watched recording directories.
func WithRecordedDirs(dirs ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.RecordedDirs = dirs
	}
}

// WithScannerTimings overrides the scan timing thresholds, in seconds.
func WithScannerTimings(throttle, complete, maxAge, minimum, sweep int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scanner.UpdateThrottleSeconds = throttle
		cfg.Scanner.RecordingCompleteSeconds = complete
		cfg.Scanner.RecordingMaxAgeSeconds = maxAge
		cfg.Scanner.MinimumRecordingSeconds = minimum
		cfg.Scanner.CompletionCheckIntervalSeconds = sweep
	}
}

// RecordedDir returns the first watched recording directory of a test config.
func RecordedDir(cfg *config.Config) string {
	return cfg.Paths.RecordedDirs[0]
}
