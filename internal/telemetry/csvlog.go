package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// timeFormat is the timestamp layout of every CSV output.
const timeFormat = time.RFC3339

// StandbyRecord is one row of the standby log.
type StandbyRecord struct {
	When       time.Time
	Slot       string
	VoltageV   float64
	CurrentA   float64
	StatusByte byte
}

// ClimaticRecord is one row of the climatic log.
type ClimaticRecord struct {
	When         time.Time
	TemperatureC float64
	HumidityPct  float64
	SetPointC    float64
}

// appendLog is a header-aware append-only CSV file. Several loops append to
// the standby log, so writes are serialized here.
type appendLog struct {
	mu     sync.Mutex
	path   string
	header []string
}

func (l *appendLog) append(record []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}

	writeErr := func() error {
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat %s: %w", l.path, err)
		}
		w := csv.NewWriter(f)
		if info.Size() == 0 {
			if err := w.Write(l.header); err != nil {
				return fmt.Errorf("write header to %s: %w", l.path, err)
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("append to %s: %w", l.path, err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush %s: %w", l.path, err)
		}
		return nil
	}()
	if closeErr := f.Close(); writeErr == nil && closeErr != nil {
		return fmt.Errorf("close %s: %w", l.path, closeErr)
	}
	return writeErr
}

// Logs bundles the two append-only CSV logs of a data directory.
type Logs struct {
	standby  appendLog
	climatic appendLog
}

// NewLogs builds the log writers for the given file paths. Files are created
// on first append.
func NewLogs(standbyPath, climaticPath string) *Logs {
	return &Logs{
		standby: appendLog{
			path:   standbyPath,
			header: []string{"when", "slot", "voltage_v", "current_a", "status_byte"},
		},
		climatic: appendLog{
			path:   climaticPath,
			header: []string{"when", "temperature_c", "humidity_pct", "set_point_c"},
		},
	}
}

// AppendStandby appends one slot telemetry row.
func (l *Logs) AppendStandby(r StandbyRecord) error {
	return l.standby.append([]string{
		r.When.Format(timeFormat),
		r.Slot,
		formatFloat(r.VoltageV),
		formatFloat(r.CurrentA),
		strconv.Itoa(int(r.StatusByte)),
	})
}

// AppendClimatic appends one chamber telemetry row.
func (l *Logs) AppendClimatic(r ClimaticRecord) error {
	return l.climatic.append([]string{
		r.When.Format(timeFormat),
		formatFloat(r.TemperatureC),
		formatFloat(r.HumidityPct),
		formatFloat(r.SetPointC),
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
