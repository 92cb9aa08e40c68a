package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScanner()
	c.normalizeMetadata()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	expanded := make([]string, 0, len(c.Paths.RecordedDirs))
	seen := make(map[string]struct{}, len(c.Paths.RecordedDirs))
	for _, dir := range c.Paths.RecordedDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		abs, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("paths.recorded_dirs: %w", err)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		expanded = append(expanded, abs)
	}
	c.Paths.RecordedDirs = expanded
	return nil
}

func (c *Config) normalizeScanner() {
	exts := make([]string, 0, len(c.Scanner.ScanExtensions))
	for _, ext := range c.Scanner.ScanExtensions {
		trimmed := strings.ToLower(strings.TrimSpace(ext))
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		exts = append(exts, trimmed)
	}
	if len(exts) == 0 {
		exts = defaultScanExtensions()
	}
	c.Scanner.ScanExtensions = exts

	if c.Scanner.UpdateThrottleSeconds <= 0 {
		c.Scanner.UpdateThrottleSeconds = defaultUpdateThrottleSeconds
	}
	if c.Scanner.RecordingCompleteSeconds <= 0 {
		c.Scanner.RecordingCompleteSeconds = defaultRecordingCompleteSeconds
	}
	if c.Scanner.RecordingMaxAgeSeconds <= 0 {
		c.Scanner.RecordingMaxAgeSeconds = defaultRecordingMaxAgeSeconds
	}
	if c.Scanner.MinimumRecordingSeconds <= 0 {
		c.Scanner.MinimumRecordingSeconds = defaultMinimumRecordingSeconds
	}
	if c.Scanner.CompletionCheckIntervalSeconds <= 0 {
		c.Scanner.CompletionCheckIntervalSeconds = defaultCompletionCheckIntervalSeconds
	}
}

func (c *Config) normalizeMetadata() {
	if strings.TrimSpace(c.Metadata.FFprobeBinary) == "" {
		c.Metadata.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Metadata.ProbeTimeout <= 0 {
		c.Metadata.ProbeTimeout = defaultProbeTimeout
	}
	if c.Metadata.IndexerTimeout <= 0 {
		c.Metadata.IndexerTimeout = defaultIndexerTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
