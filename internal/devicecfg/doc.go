// Package devicecfg loads the externally edited configuration tables: the
// per-slot device table (devices.csv) and the chamber table (chamber.csv).
//
// Operators edit these files while the daemon runs. Each Source re-reads its
// file only when the version marker (modification time plus size) advances,
// and a failed parse or validation leaves the previous good table in effect.
// The set of slot names is frozen after the first successful load; renaming
// or removing a slot mid-run is a configuration error.
package devicecfg
