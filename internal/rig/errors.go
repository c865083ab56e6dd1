package rig

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSlot marks operations addressing a slot the controller does
	// not manage.
	ErrUnknownSlot = errors.New("unknown slot")
	// ErrInvalidConfiguration marks a configuration that failed validation.
	// Nothing is partially applied when this is returned.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInterlockViolation marks a hazardous request rejected before any
	// hardware write.
	ErrInterlockViolation = errors.New("interlock violation")
	// ErrInvalidTransition marks a start/stop invoked from an impermissible
	// state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrTimeout marks a bounded wait that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrInvariantViolation marks a post-condition failure: the hardware
	// drifted somewhere the choreography cannot explain.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Wrap tags an error chain with one of the sentinel markers above while
// preserving operation context for the log line.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "rig failure"
	}
	return strings.Join(parts, ": ")
}
