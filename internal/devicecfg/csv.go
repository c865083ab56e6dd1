package devicecfg

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"coldrig/internal/rig"
)

var deviceHeader = []string{
	"slot", "provider", "channel", "compliance_a", "standby_v",
	"sweep_start_v", "sweep_stop_v", "sweep_points",
	"sweep_interval_s", "telemetry_interval_s",
}

var chamberHeader = []string{"standby_temperature_c", "telemetry_interval_s"}

// ParseDevices reads a device table in CSV form and validates it against the
// configured providers.
func ParseDevices(r io.Reader, providers map[string]int) (*Table, error) {
	records, err := readCSV(r, "device table", deviceHeader)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for i, record := range records {
		entry, err := parseDeviceRow(record, i+2)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return NewTable(entries, providers)
}

func parseDeviceRow(record []string, line int) (Entry, error) {
	fail := func(field string, err error) (Entry, error) {
		return Entry{}, rig.Wrap(rig.ErrInvalidConfiguration, "device table",
			fmt.Sprintf("line %d: %s", line, field), err)
	}

	entry := Entry{
		Slot:     strings.TrimSpace(record[0]),
		Provider: strings.TrimSpace(record[1]),
	}

	channel, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return fail("channel", err)
	}
	entry.Channel = channel

	if entry.ComplianceA, err = parseFloat(record[3]); err != nil {
		return fail("compliance_a", err)
	}
	if entry.StandbyV, err = parseFloat(record[4]); err != nil {
		return fail("standby_v", err)
	}
	if entry.SweepStartV, err = parseFloat(record[5]); err != nil {
		return fail("sweep_start_v", err)
	}
	if entry.SweepStopV, err = parseFloat(record[6]); err != nil {
		return fail("sweep_stop_v", err)
	}
	if entry.SweepPoints, err = strconv.Atoi(strings.TrimSpace(record[7])); err != nil {
		return fail("sweep_points", err)
	}
	if entry.SweepInterval, err = parseSeconds(record[8]); err != nil {
		return fail("sweep_interval_s", err)
	}
	if entry.TelemetryInterval, err = parseSeconds(record[9]); err != nil {
		return fail("telemetry_interval_s", err)
	}
	return entry, nil
}

// ParseChamber reads the chamber table: a header and exactly one data row.
func ParseChamber(r io.Reader) (ChamberSettings, error) {
	records, err := readCSV(r, "chamber table", chamberHeader)
	if err != nil {
		return ChamberSettings{}, err
	}
	if len(records) != 1 {
		return ChamberSettings{}, rig.Wrap(rig.ErrInvalidConfiguration, "chamber table",
			fmt.Sprintf("expected exactly 1 data row, found %d", len(records)), nil)
	}

	var settings ChamberSettings
	if settings.StandbyTemperatureC, err = parseFloat(records[0][0]); err != nil {
		return ChamberSettings{}, rig.Wrap(rig.ErrInvalidConfiguration, "chamber table",
			"standby_temperature_c", err)
	}
	if settings.TelemetryInterval, err = parseSeconds(records[0][1]); err != nil {
		return ChamberSettings{}, rig.Wrap(rig.ErrInvalidConfiguration, "chamber table",
			"telemetry_interval_s", err)
	}
	if err := validateChamber(settings); err != nil {
		return ChamberSettings{}, err
	}
	return settings, nil
}

// readCSV enforces the exact header and uniform field counts, returning the
// data rows.
func readCSV(r io.Reader, what string, header []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, rig.Wrap(rig.ErrInvalidConfiguration, what, "malformed CSV", err)
	}
	if len(rows) == 0 {
		return nil, rig.Wrap(rig.ErrInvalidConfiguration, what, "empty file", nil)
	}
	for i, want := range header {
		if strings.TrimSpace(rows[0][i]) != want {
			return nil, rig.Wrap(rig.ErrInvalidConfiguration, what,
				fmt.Sprintf("header column %d is %q, want %q", i+1, rows[0][i], want), nil)
		}
	}
	return rows[1:], nil
}

func parseFloat(field string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(field), 64)
}

func parseSeconds(field string) (time.Duration, error) {
	seconds, err := parseFloat(field)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
