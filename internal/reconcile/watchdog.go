package reconcile

import (
	"context"
	"fmt"
	"math"
	"strings"

	"coldrig/internal/logging"
	"coldrig/internal/telemetry"
)

// watchdogLoop independently re-derives the unsafe condition the interlock
// exists to prevent: detectors biased while the chamber is above the maximum
// operating temperature. The controller rejects every call that would cause
// this, so a trip means external drift (chamber fault, manual intervention).
// The alert repeats every period while the condition holds.
//
// Slots are measured without taking the per-slot daemon locks: a sweep holds
// its slot's lock for the whole run, and the slot at sweep voltages is
// exactly the one the watchdog must not skip. Concurrent measurement is safe;
// the controller serializes hardware access per slot.
func (m *Manager) watchdogLoop(ctx context.Context) error {
	logger := logging.NewComponentLogger(m.logger, "watchdog")

	return m.tick(ctx, m.watchdogInterval, func(ctx context.Context) {
		table := m.live.Devices()
		if table == nil {
			return
		}

		temperature, err := m.controller.Temperature(ctx)
		if err != nil {
			logger.Warn("temperature read failed", logging.Error(err))
			return
		}
		if temperature <= m.cfg.Interlock.MaxOperatingTemperatureC {
			return
		}

		var biased []string
		for _, slot := range table.Slots() {
			volts, err := m.controller.MeasureBiasVoltage(ctx, slot)
			if err != nil {
				logger.Warn("voltage read failed",
					logging.String(logging.FieldSlot, slot), logging.Error(err))
				continue
			}
			if math.Abs(volts) > m.cfg.Interlock.UnbiasedVoltageThresholdV {
				biased = append(biased, slot)
			}
		}
		if len(biased) == 0 {
			return
		}

		logger.Error("detectors biased while chamber is warm",
			logging.Float64("temperature_c", temperature),
			logging.String(logging.FieldAlert, strings.Join(biased, ",")))
		m.recordEvent(telemetry.Event{
			Type: telemetry.EventWatchdogAlert,
			Message: fmt.Sprintf("%.1f C with %s under bias",
				temperature, strings.Join(biased, ", ")),
		})
		if err := m.notifier.NotifyWatchdog(ctx, temperature, biased); err != nil {
			logger.Warn("watchdog alert failed", logging.Error(err))
		}
	})
}
