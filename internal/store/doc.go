// Package store is the shared key-value State Store.
//
// The synchronization engine and every renderer meet here. The engine reads
// selectedMatchId and writes currentMatchData and lastUpdated; renderers read
// those keys and subscribe to changes. Values are raw JSON.
//
// Four backends are available:
//
//   - memory: a process-local map, for tests and single-process use
//   - file: a JSON snapshot file (default ~/.local/share/cricpulse/store.json)
//   - sqlite: a durable database shareable between local processes
//   - postgres: a shared database reachable from several hosts
//
// Every write carries a store-wide revision that only grows. Store wraps a
// backend and fans changes out to subscribers, both for local writes and,
// through Watch, for writes made by other processes.
package store
