// Package daemon coordinates the long-running coldrig process and system
// integration points.
//
// It wires configuration, the rig controller, telemetry storage, and the
// reconciliation manager into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes the status, journal, and
// sweep-history queries served over IPC and owns the start/stop
// notifications.
//
// Keep orchestration logic here: the reconciliation loops live in the
// reconcile package while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
