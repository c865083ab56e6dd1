// Package notifications delivers operator alerts over ntfy.
//
// The daemon runs unattended for weeks; the alert channel is how an operator
// learns about interlock drift, start/stop outcomes, sweep failures, and
// daemon death without watching logs. The service degrades to a no-op when
// no ntfy topic is configured, so every call site can alert unconditionally.
//
// Extend this package if you need alternative transports; the daemon depends
// only on the Service interface.
package notifications
