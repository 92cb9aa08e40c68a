// Package daemon coordinates the long-running recsync process.
//
// It wires configuration, the recordings store, and the scan engine into a
// single lifecycle with flock-based locking to prevent multiple instances.
// Keep orchestration logic here: scanning and persistence live in their own
// packages while the daemon focuses on startup, shutdown, and status.
package daemon
