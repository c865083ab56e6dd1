package locking

import (
	"fmt"
	"sync"
)

// SlotLocks holds one mutex per detector slot. The slot set is fixed at
// construction; lookups of unknown slots panic, since they indicate a wiring
// bug rather than a runtime condition.
type SlotLocks struct {
	locks map[string]*sync.Mutex
}

// NewSlotLocks builds a registry for the given slot names.
func NewSlotLocks(slots []string) *SlotLocks {
	locks := make(map[string]*sync.Mutex, len(slots))
	for _, slot := range slots {
		locks[slot] = &sync.Mutex{}
	}
	return &SlotLocks{locks: locks}
}

// TryAcquire attempts to take the slot's lock without blocking. It reports
// whether the lock was acquired; callers that receive false must skip the
// slot this tick.
func (s *SlotLocks) TryAcquire(slot string) bool {
	return s.lock(slot).TryLock()
}

// Release unlocks a previously acquired slot lock.
func (s *SlotLocks) Release(slot string) {
	s.lock(slot).Unlock()
}

// With runs fn while holding the slot's lock, if it can be acquired without
// blocking. It reports whether fn ran.
func (s *SlotLocks) With(slot string, fn func()) bool {
	mu := s.lock(slot)
	if !mu.TryLock() {
		return false
	}
	defer mu.Unlock()
	fn()
	return true
}

func (s *SlotLocks) lock(slot string) *sync.Mutex {
	mu, ok := s.locks[slot]
	if !ok {
		panic(fmt.Sprintf("locking: unknown slot %q", slot))
	}
	return mu
}
