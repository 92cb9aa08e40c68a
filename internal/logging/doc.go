// Package logging assembles structured slog loggers and formatting helpers
// used across recsync components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers plus standardized field names so the
// scanner, store, and daemon emit log lines with a consistent shape. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
