// Package rig implements the safety-interlocked setup controller.
//
// The Controller aggregates the bias channels, the climate chamber, and the
// ambient sensor behind one thread-safe surface. It owns the derived status
// state machine, rejects hazardous transitions before any hardware write,
// and sequences the start/stop choreography with bounded waits.
//
// Status is never stored: it is recomputed from live readings on every
// query, so external drift (a warm chamber with biased detectors) surfaces
// as StatusError even though the controller's own operations cannot reach
// that state.
package rig
