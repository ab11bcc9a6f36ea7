// Package jobs persists translation jobs and speaker profiles in SQLite.
//
// The store is the single source of truth shared by the daemon and the CLI:
// the daemon claims pending jobs and drives them through the pipeline while
// the CLI reads and mutates the same database directly. WAL mode plus a
// busy-retry wrapper keeps the concurrent access safe.
package jobs
