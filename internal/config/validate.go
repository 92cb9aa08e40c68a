package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if len(c.Paths.RecordedDirs) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/recsync/config.toml"
		}
		return fmt.Errorf("paths.recorded_dirs must list at least one directory. Edit %s (create with 'recsyncd config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateScanner() error {
	// A throttle longer than the max-age window would let a tracked file
	// outlive the window between pipeline runs.
	if c.Scanner.UpdateThrottleSeconds > c.Scanner.RecordingMaxAgeSeconds {
		return errors.New("scanner.update_throttle_seconds must not exceed scanner.recording_max_age_seconds")
	}
	if c.Scanner.CompletionCheckIntervalSeconds > c.Scanner.RecordingCompleteSeconds {
		return errors.New("scanner.completion_check_interval_seconds must not exceed scanner.recording_complete_seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
