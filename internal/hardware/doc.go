// Package hardware defines the narrow seams through which the rig reaches
// its instruments: bias power-supply channels, the climate chamber, and the
// ambient sensor.
//
// The register-level transports live behind these interfaces and are not part
// of this repository; the sim subpackage provides in-memory implementations
// for tests and for running the daemon without instruments attached.
package hardware
