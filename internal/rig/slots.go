package rig

import (
	"fmt"
	"sync"
	"time"

	"coldrig/internal/hardware"
)

// SlotBinding maps a named detector slot to one power-supply output.
type SlotBinding struct {
	Slot     string
	Provider string
	Channel  int
}

// SlotTable is the validated mapping from slot names to supply outputs.
// A valid table exactly partitions the known physical channels: every
// (provider, channel) pair appears once, and every channel of every
// configured provider is claimed by some slot.
type SlotTable struct {
	order  []string
	bySlot map[string]SlotBinding
}

// NewSlotTable validates the bindings against the configured providers
// (serial -> channel count) and returns the table. Any defect returns
// ErrInvalidConfiguration; nothing is partially built.
func NewSlotTable(bindings []SlotBinding, providers map[string]int) (*SlotTable, error) {
	if len(bindings) == 0 {
		return nil, Wrap(ErrInvalidConfiguration, "slot table", "no slots defined", nil)
	}

	total := 0
	for _, count := range providers {
		total += count
	}
	if len(bindings) != total {
		return nil, Wrap(ErrInvalidConfiguration, "slot table",
			fmt.Sprintf("%d slots defined but providers expose %d channels", len(bindings), total), nil)
	}

	bySlot := make(map[string]SlotBinding, len(bindings))
	order := make([]string, 0, len(bindings))
	seenOutputs := make(map[string]struct{}, len(bindings))
	for _, b := range bindings {
		if b.Slot == "" {
			return nil, Wrap(ErrInvalidConfiguration, "slot table", "empty slot name", nil)
		}
		if _, dup := bySlot[b.Slot]; dup {
			return nil, Wrap(ErrInvalidConfiguration, "slot table",
				fmt.Sprintf("duplicate slot name %q", b.Slot), nil)
		}
		count, ok := providers[b.Provider]
		if !ok {
			return nil, Wrap(ErrInvalidConfiguration, "slot table",
				fmt.Sprintf("slot %q references unknown provider %q", b.Slot, b.Provider), nil)
		}
		if b.Channel < 0 || b.Channel >= count {
			return nil, Wrap(ErrInvalidConfiguration, "slot table",
				fmt.Sprintf("slot %q references channel %d outside provider %q range 0..%d",
					b.Slot, b.Channel, b.Provider, count-1), nil)
		}
		output := fmt.Sprintf("%s/%d", b.Provider, b.Channel)
		if _, dup := seenOutputs[output]; dup {
			return nil, Wrap(ErrInvalidConfiguration, "slot table",
				fmt.Sprintf("output %s claimed twice", output), nil)
		}
		seenOutputs[output] = struct{}{}
		bySlot[b.Slot] = b
		order = append(order, b.Slot)
	}

	// Uniqueness plus the count check above guarantees full coverage of
	// every provider channel.
	return &SlotTable{order: order, bySlot: bySlot}, nil
}

// Slots returns the slot names in table order.
func (t *SlotTable) Slots() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Lookup returns the binding for a slot name.
func (t *SlotTable) Lookup(slot string) (SlotBinding, bool) {
	b, ok := t.bySlot[slot]
	return b, ok
}

// Len returns the number of slots.
func (t *SlotTable) Len() int { return len(t.order) }

// SlotState is a copy of a slot's cached state.
type SlotState struct {
	Name               string
	Provider           string
	Channel            int
	SetVoltageV        float64
	ComplianceA        float64
	LastVoltageV       float64
	LastCurrentA       float64
	LastStatusByte     byte
	LastMeasuredAt     time.Time
	OvercurrentLatched bool
}

// Reading is one telemetry measurement of a slot.
type Reading struct {
	When       time.Time
	VoltageV   float64
	CurrentA   float64
	StatusByte byte
}

// slot holds the per-slot runtime state. Created at construction, mutated
// by set calls and periodic measurement, never destroyed during a run.
type slot struct {
	mu      sync.Mutex
	binding SlotBinding
	channel hardware.BiasChannel
	state   SlotState
}
