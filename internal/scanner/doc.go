// Package scanner keeps the recordings database synchronized with the files
// under the configured recording directories. It runs a reconciliation batch
// scan at startup, then watches the directories for changes and sweeps
// in-progress recordings until they settle.
package scanner
