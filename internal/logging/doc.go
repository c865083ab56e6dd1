// Package logging assembles the structured slog loggers used across the
// coldrig daemon and CLI.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes standardized field-name constants so every component
// tags slots, statuses, and alerts the same way. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
