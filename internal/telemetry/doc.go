// Package telemetry owns the daemon's data outputs: the append-only standby
// and climatic CSV logs, per-run sweep files, configuration history
// snapshots, and the SQLite store backing the history and event queries.
package telemetry
