// Package reconcile runs the daemon's concurrent loops: device and chamber
// reconciliation against the externally edited tables, standby and climatic
// telemetry, the run/stop control surface, the safety watchdog, and periodic
// IV sweeps.
//
// Each concern is one goroutine ticking at a fixed interval. Loops never
// block each other: per-slot work takes the slot's lock non-blocking and
// skips the slot for the tick on contention. Supervision is fail-fast: any
// loop returning before shutdown cancels the rest, and the failure is
// alerted and propagated after a bounded wait.
package reconcile
