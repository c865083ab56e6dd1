// Package sim provides in-memory hardware implementations sharing one rig
// state: bias providers whose channels respond instantly, a chamber whose
// temperature relaxes toward its set-point, and a sensor reading the shared
// state. Used by tests and by the daemon's simulation mode.
package sim
