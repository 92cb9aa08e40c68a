package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// RecordedDirs are the root directories scanned and watched for
	// recording files, in configuration order.
	RecordedDirs []string `toml:"recorded_dirs"`
	DataDir      string   `toml:"data_dir"`
	LogDir       string   `toml:"log_dir"`
}

// Scanner contains thresholds driving reconciliation decisions.
type Scanner struct {
	// ScanExtensions is the file extension allow-list (lowercase, with dot).
	ScanExtensions []string `toml:"scan_extensions"`
	// UpdateThrottleSeconds bounds how often change events for an
	// actively-recording file re-enter the processing pipeline.
	UpdateThrottleSeconds int `toml:"update_throttle_seconds"`
	// RecordingCompleteSeconds is the quiet period after which a growing
	// file is presumed finished.
	RecordingCompleteSeconds int `toml:"recording_complete_seconds"`
	// RecordingMaxAgeSeconds is the maximum age since last modification for
	// a newly-seen file to be optimistically tracked as recording.
	RecordingMaxAgeSeconds int `toml:"recording_max_age_seconds"`
	// MinimumRecordingSeconds rejects extracted files shorter than this.
	MinimumRecordingSeconds int `toml:"minimum_recording_seconds"`
	// CompletionCheckIntervalSeconds is the completion sweep period.
	CompletionCheckIntervalSeconds int `toml:"completion_check_interval_seconds"`
}

// Metadata contains configuration for the extraction boundary.
type Metadata struct {
	FFprobeBinary  string `toml:"ffprobe_binary"`
	ProbeTimeout   int    `toml:"probe_timeout"`
	IndexerTimeout int    `toml:"indexer_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for recsync.
//
// Configuration sections by subsystem:
//   - Paths: watched recording roots plus data/log directories
//   - Scanner: reconciliation thresholds and the extension allow-list
//   - Metadata: ffprobe binary and per-invocation timeouts
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Scanner  Scanner  `toml:"scanner"`
	Metadata Metadata `toml:"metadata"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// Recording roots are created on a best-effort basis so the daemon can run
// when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range c.Paths.RecordedDirs {
		if strings.TrimSpace(dir) != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
	}
	return nil
}

// DatabasePath returns the location of the recordings database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "recorded.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
