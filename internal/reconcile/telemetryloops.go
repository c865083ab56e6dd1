package reconcile

import (
	"context"
	"time"

	"coldrig/internal/logging"
	"coldrig/internal/telemetry"
)

// slotTelemetryLoop appends one standby record per slot at the slot's
// configured cadence. A contended slot is skipped and retried next tick, so
// a sweep in progress naturally pauses that slot's standby telemetry.
func (m *Manager) slotTelemetryLoop(ctx context.Context) error {
	logger := logging.NewComponentLogger(m.logger, "slot-telemetry")

	due := map[string]time.Time{}
	return m.tick(ctx, m.pollInterval, func(ctx context.Context) {
		table := m.live.Devices()
		if table == nil {
			return
		}
		now := time.Now()
		for _, slot := range table.Slots() {
			entry, _ := table.Lookup(slot)
			next, known := due[slot]
			if !known {
				due[slot] = now
				next = now
			}
			if now.Before(next) {
				continue
			}
			m.locks.With(slot, func() {
				reading, err := m.controller.MeasureSlot(ctx, slot)
				if err != nil {
					// Isolated to this slot and tick.
					logger.Warn("slot measurement failed",
						logging.String(logging.FieldSlot, slot), logging.Error(err))
					return
				}
				record := telemetry.StandbyRecord{
					When:       reading.When,
					Slot:       slot,
					VoltageV:   reading.VoltageV,
					CurrentA:   reading.CurrentA,
					StatusByte: reading.StatusByte,
				}
				if err := m.logs.AppendStandby(record); err != nil {
					logger.Warn("standby log append failed",
						logging.String(logging.FieldSlot, slot), logging.Error(err))
					return
				}
				due[slot] = now.Add(entry.TelemetryInterval)
			})
		}
	})
}

// climaticTelemetryLoop appends one chamber record at the cadence from
// chamber.csv. Only this loop writes the climatic log.
func (m *Manager) climaticTelemetryLoop(ctx context.Context) error {
	logger := logging.NewComponentLogger(m.logger, "climatic-telemetry")

	var due time.Time
	return m.tick(ctx, m.pollInterval, func(ctx context.Context) {
		settings, ok := m.live.Chamber()
		if !ok {
			return
		}
		now := time.Now()
		if now.Before(due) {
			return
		}

		conditions, err := m.controller.Conditions(ctx)
		if err != nil {
			logger.Warn("chamber measurement failed", logging.Error(err))
			return
		}
		humidity, err := m.controller.Humidity(ctx)
		if err != nil {
			logger.Warn("humidity read failed", logging.Error(err))
			return
		}
		record := telemetry.ClimaticRecord{
			When:         now,
			TemperatureC: conditions.TemperatureC,
			HumidityPct:  humidity,
			SetPointC:    conditions.SetPointC,
		}
		if err := m.logs.AppendClimatic(record); err != nil {
			logger.Warn("climatic log append failed", logging.Error(err))
			return
		}
		due = now.Add(settings.TelemetryInterval)
	})
}
