package devicecfg

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"coldrig/internal/rig"
)

// Version is a cheap change marker for an on-disk table: the file's
// modification time and size. Editors rewrite the whole file, so either
// field moving means the content may have changed.
type Version struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether two versions mark the same file state.
func (v Version) Equal(other Version) bool {
	return v.ModTime.Equal(other.ModTime) && v.Size == other.Size
}

func statVersion(path string) (Version, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Version{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Version{ModTime: info.ModTime(), Size: info.Size()}, nil
}

// DeviceSource re-reads a devices.csv only when its version advances.
type DeviceSource struct {
	path      string
	providers map[string]int
}

// NewDeviceSource builds a source for the given file, validated against the
// configured providers.
func NewDeviceSource(path string, providers map[string]int) *DeviceSource {
	return &DeviceSource{path: path, providers: providers}
}

// Path returns the file the source watches.
func (s *DeviceSource) Path() string { return s.path }

// LoadIfChanged reloads the table when the file's version differs from prev.
// It returns changed=false without touching the file content when the
// version matches. Raw is the exact file content, for history snapshots.
func (s *DeviceSource) LoadIfChanged(prev Version) (table *Table, raw []byte, version Version, changed bool, err error) {
	version, err = statVersion(s.path)
	if err != nil {
		return nil, nil, Version{}, false, err
	}
	if version.Equal(prev) {
		return nil, nil, prev, false, nil
	}

	raw, err = os.ReadFile(s.path)
	if err != nil {
		return nil, nil, Version{}, false, fmt.Errorf("read %s: %w", s.path, err)
	}
	table, err = ParseDevices(bytes.NewReader(raw), s.providers)
	if err != nil {
		return nil, nil, Version{}, false, err
	}
	return table, raw, version, true, nil
}

// ChamberSource re-reads a chamber.csv only when its version advances.
type ChamberSource struct {
	path string
}

// NewChamberSource builds a source for the given file.
func NewChamberSource(path string) *ChamberSource {
	return &ChamberSource{path: path}
}

// Path returns the file the source watches.
func (s *ChamberSource) Path() string { return s.path }

// LoadIfChanged reloads the settings when the file's version differs from
// prev.
func (s *ChamberSource) LoadIfChanged(prev Version) (settings ChamberSettings, version Version, changed bool, err error) {
	version, err = statVersion(s.path)
	if err != nil {
		return ChamberSettings{}, Version{}, false, err
	}
	if version.Equal(prev) {
		return ChamberSettings{}, prev, false, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return ChamberSettings{}, Version{}, false, fmt.Errorf("read %s: %w", s.path, err)
	}
	settings, err = ParseChamber(bytes.NewReader(raw))
	if err != nil {
		return ChamberSettings{}, Version{}, false, err
	}
	return settings, version, true, nil
}

// Live is the configuration snapshot shared between the daemon loops:
// single writer (the reconciliation loops), many readers (telemetry and
// sweep loops). Values are replaced wholesale, never mutated in place.
type Live struct {
	mu          sync.RWMutex
	devices     *Table
	chamber     ChamberSettings
	haveChamber bool
}

// SetDevices publishes a new device table. The slot-name set is frozen
// after the first publish; a table naming different slots is rejected.
func (l *Live) SetDevices(t *Table) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.devices != nil && !l.devices.SameSlots(t) {
		return rig.Wrap(rig.ErrInvalidConfiguration, "device table",
			"slot names changed since first load; renaming or removing slots requires a restart", nil)
	}
	l.devices = t
	return nil
}

// Devices returns the current device table, or nil before the first load.
func (l *Live) Devices() *Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.devices
}

// SetChamber publishes new chamber settings.
func (l *Live) SetChamber(s ChamberSettings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chamber = s
	l.haveChamber = true
}

// Chamber returns the current chamber settings and whether any were loaded.
func (l *Live) Chamber() (ChamberSettings, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chamber, l.haveChamber
}
