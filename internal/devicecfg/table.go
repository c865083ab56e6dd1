package devicecfg

import (
	"fmt"
	"time"

	"coldrig/internal/rig"
)

// Entry is one slot's desired operating parameters.
type Entry struct {
	Slot              string
	Provider          string
	Channel           int
	ComplianceA       float64
	StandbyV          float64
	SweepStartV       float64
	SweepStopV        float64
	SweepPoints       int
	SweepInterval     time.Duration
	TelemetryInterval time.Duration
}

// Table is a validated device table: slot topology plus per-slot parameters.
type Table struct {
	order   []string
	entries map[string]Entry
}

// NewTable validates the entries against the configured providers
// (serial -> channel count). The slot topology must exactly partition the
// physical channels, and every numeric parameter must be in range. Any
// defect returns rig.ErrInvalidConfiguration.
func NewTable(entries []Entry, providers map[string]int) (*Table, error) {
	bindings := make([]rig.SlotBinding, len(entries))
	for i, e := range entries {
		bindings[i] = rig.SlotBinding{Slot: e.Slot, Provider: e.Provider, Channel: e.Channel}
	}
	if _, err := rig.NewSlotTable(bindings, providers); err != nil {
		return nil, err
	}

	byName := make(map[string]Entry, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		byName[e.Slot] = e
		order = append(order, e.Slot)
	}
	return &Table{order: order, entries: byName}, nil
}

func validateEntry(e Entry) error {
	fail := func(field, problem string) error {
		return rig.Wrap(rig.ErrInvalidConfiguration, "device table",
			fmt.Sprintf("slot %q: %s %s", e.Slot, field, problem), nil)
	}
	if e.ComplianceA <= 0 {
		return fail("compliance_a", "must be positive")
	}
	if e.SweepPoints < 2 {
		return fail("sweep_points", "must be at least 2")
	}
	if e.SweepInterval <= 0 {
		return fail("sweep_interval_s", "must be positive")
	}
	if e.TelemetryInterval <= 0 {
		return fail("telemetry_interval_s", "must be positive")
	}
	return nil
}

// Slots returns the slot names in table order.
func (t *Table) Slots() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Lookup returns the entry for a slot name.
func (t *Table) Lookup(slot string) (Entry, bool) {
	e, ok := t.entries[slot]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.order) }

// Bindings returns the slot topology for controller construction.
func (t *Table) Bindings() []rig.SlotBinding {
	out := make([]rig.SlotBinding, 0, len(t.order))
	for _, name := range t.order {
		e := t.entries[name]
		out = append(out, rig.SlotBinding{Slot: e.Slot, Provider: e.Provider, Channel: e.Channel})
	}
	return out
}

// Equal reports whether two tables carry identical entries in identical
// order.
func (t *Table) Equal(other *Table) bool {
	if other == nil || len(t.order) != len(other.order) {
		return false
	}
	for i, name := range t.order {
		if other.order[i] != name {
			return false
		}
		if t.entries[name] != other.entries[name] {
			return false
		}
	}
	return true
}

// SameSlots reports whether two tables name the same slot set, ignoring
// order and parameters. The daemon requires this to hold across reloads.
func (t *Table) SameSlots(other *Table) bool {
	if other == nil || len(t.entries) != len(other.entries) {
		return false
	}
	for name := range t.entries {
		if _, ok := other.entries[name]; !ok {
			return false
		}
	}
	return true
}

// ChamberSettings is the chamber table: the desired standby temperature and
// the cadence of the climatic telemetry log.
type ChamberSettings struct {
	StandbyTemperatureC float64
	TelemetryInterval   time.Duration
}

func validateChamber(s ChamberSettings) error {
	if s.TelemetryInterval <= 0 {
		return rig.Wrap(rig.ErrInvalidConfiguration, "chamber table",
			"telemetry_interval_s must be positive", nil)
	}
	return nil
}
