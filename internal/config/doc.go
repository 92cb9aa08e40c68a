// Package config loads, validates, and normalizes recsync configuration.
//
// Configuration is TOML with an embedded sample. Load resolves the config
// path (explicit flag, then ~/.config/recsync/config.toml, then a
// recsync.toml in the working directory), applies defaults for any omitted
// field, expands ~ in every path, and validates threshold relationships.
//
// All reconciliation thresholds are configurable here so tests and unusual
// recorder setups can tighten or relax them without code changes.
package config
