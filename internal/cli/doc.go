// Package cli implements the command-line interface for cricpulse.
//
// The cli package provides the Cobra-based CLI: run (engine loop, HTTP
// server and store watcher), matches, select, sync, test-alert, state, watch
// and config. It loads configuration, wires the store, source, notifier,
// engine and router packages, and formats their results as text or JSON.
package cli
