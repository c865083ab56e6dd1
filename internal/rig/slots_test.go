package rig

import (
	"errors"
	"testing"
)

func TestNewSlotTable(t *testing.T) {
	providers := map[string]int{"PSU-A": 2, "PSU-B": 1}

	valid := []SlotBinding{
		{Slot: "det-0", Provider: "PSU-A", Channel: 0},
		{Slot: "det-1", Provider: "PSU-A", Channel: 1},
		{Slot: "det-2", Provider: "PSU-B", Channel: 0},
	}

	table, err := NewSlotTable(valid, providers)
	if err != nil {
		t.Fatalf("NewSlotTable returned error for valid table: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}
	slots := table.Slots()
	want := []string{"det-0", "det-1", "det-2"}
	for i, name := range want {
		if slots[i] != name {
			t.Fatalf("Slots()[%d] = %q, want %q", i, slots[i], name)
		}
	}
	binding, ok := table.Lookup("det-2")
	if !ok || binding.Provider != "PSU-B" || binding.Channel != 0 {
		t.Fatalf("Lookup(det-2) = %+v, %v", binding, ok)
	}

	invalid := []struct {
		name     string
		bindings []SlotBinding
	}{
		{
			name:     "empty table",
			bindings: nil,
		},
		{
			name: "too few slots",
			bindings: []SlotBinding{
				{Slot: "det-0", Provider: "PSU-A", Channel: 0},
			},
		},
		{
			name: "duplicate slot name",
			bindings: []SlotBinding{
				{Slot: "det-0", Provider: "PSU-A", Channel: 0},
				{Slot: "det-0", Provider: "PSU-A", Channel: 1},
				{Slot: "det-2", Provider: "PSU-B", Channel: 0},
			},
		},
		{
			name: "unknown provider",
			bindings: []SlotBinding{
				{Slot: "det-0", Provider: "PSU-A", Channel: 0},
				{Slot: "det-1", Provider: "PSU-A", Channel: 1},
				{Slot: "det-2", Provider: "PSU-X", Channel: 0},
			},
		},
		{
			name: "channel out of range",
			bindings: []SlotBinding{
				{Slot: "det-0", Provider: "PSU-A", Channel: 0},
				{Slot: "det-1", Provider: "PSU-A", Channel: 1},
				{Slot: "det-2", Provider: "PSU-B", Channel: 1},
			},
		},
		{
			name: "output claimed twice",
			bindings: []SlotBinding{
				{Slot: "det-0", Provider: "PSU-A", Channel: 0},
				{Slot: "det-1", Provider: "PSU-A", Channel: 0},
				{Slot: "det-2", Provider: "PSU-B", Channel: 0},
			},
		},
		{
			name: "empty slot name",
			bindings: []SlotBinding{
				{Slot: "", Provider: "PSU-A", Channel: 0},
				{Slot: "det-1", Provider: "PSU-A", Channel: 1},
				{Slot: "det-2", Provider: "PSU-B", Channel: 0},
			},
		},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSlotTable(tc.bindings, providers)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("NewSlotTable error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}
