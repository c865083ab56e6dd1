// Package config loads, normalizes, and validates coldrig configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads the TOML service configuration. The Config type
// centralizes every knob the daemon and CLI need: directory layout, interlock
// limits, bias providers, poll cadences, and notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
