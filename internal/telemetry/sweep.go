package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SweepPoint is one measured point of an IV sweep.
type SweepPoint struct {
	When       time.Time
	VoltageV   float64
	CurrentA   float64
	StatusByte byte
}

// SweepRecorder writes one CSV file per sweep run under
// <dir>/<slot>/<timestamp>_<run-id>.csv.
type SweepRecorder struct {
	dir string
}

// NewSweepRecorder builds a recorder rooted at the given directory.
func NewSweepRecorder(dir string) *SweepRecorder {
	return &SweepRecorder{dir: dir}
}

// SweepFile is an open per-run sweep CSV.
type SweepFile struct {
	runID string
	path  string
	file  *os.File
	w     *csv.Writer
}

// Begin creates the per-run file for a slot and writes the header. The run
// ID doubles as the store key for the run's metadata.
func (r *SweepRecorder) Begin(slot string, startedAt time.Time) (*SweepFile, error) {
	slotDir := filepath.Join(r.dir, slot)
	if err := os.MkdirAll(slotDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sweep directory %s: %w", slotDir, err)
	}

	runID := uuid.New().String()
	name := fmt.Sprintf("%s_%s.csv", startedAt.Format("20060102T150405"), runID)
	path := filepath.Join(slotDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create sweep file %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"when", "voltage_v", "current_a", "status_byte"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write sweep header: %w", err)
	}
	return &SweepFile{runID: runID, path: path, file: f, w: w}, nil
}

// RunID returns the unique identifier of this run.
func (f *SweepFile) RunID() string { return f.runID }

// Path returns the file's location.
func (f *SweepFile) Path() string { return f.path }

// Add appends one measured point.
func (f *SweepFile) Add(p SweepPoint) error {
	return f.w.Write([]string{
		p.When.Format(timeFormat),
		formatFloat(p.VoltageV),
		formatFloat(p.CurrentA),
		strconv.Itoa(int(p.StatusByte)),
	})
}

// Close flushes and closes the file. Safe to call after a partial sweep; the
// points written so far are preserved.
func (f *SweepFile) Close() error {
	f.w.Flush()
	flushErr := f.w.Error()
	closeErr := f.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush sweep file %s: %w", f.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close sweep file %s: %w", f.path, closeErr)
	}
	return nil
}
