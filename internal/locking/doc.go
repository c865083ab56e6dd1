// Package locking provides the per-slot mutual exclusion used by the
// reconciliation loops.
//
// Slot locks are acquired non-blocking by design: a loop that finds a slot
// busy skips it for the current tick and retries on the next one, rather
// than queueing behind whoever holds it. Poll intervals are short relative
// to device settling times, so liveness wins over exclusivity here.
package locking
