package reconcile

import (
	"context"
	"log/slog"
	"time"

	"coldrig/internal/devicecfg"
	"coldrig/internal/logging"
	"coldrig/internal/rig"
	"coldrig/internal/telemetry"
)

// deviceLoop keeps the per-slot hardware configuration converged with
// devices.csv. The file is re-read only when its version marker advances;
// a change is snapshotted to history and then pushed slot by slot whenever
// the rig is ready to operate. A slot whose push fails or whose lock is
// contended stays pending and is retried next tick.
func (m *Manager) deviceLoop(ctx context.Context) error {
	logger := logging.NewComponentLogger(m.logger, "device-reconcile")

	var (
		version devicecfg.Version
		pending = map[string]bool{}
	)
	return m.tick(ctx, m.pollInterval, func(ctx context.Context) {
		table, raw, next, changed, err := m.devices.LoadIfChanged(version)
		if err != nil {
			// This cycle only; the previous good table stays in effect.
			logger.Error("device table reload failed", logging.Error(err))
			return
		}
		if changed {
			if err := m.live.SetDevices(table); err != nil {
				logger.Error("device table rejected", logging.Error(err))
				version = next
				return
			}
			version = next
			if path, err := telemetry.SnapshotDeviceTable(m.historyDir, time.Now(), raw); err != nil {
				logger.Warn("history snapshot failed", logging.Error(err))
			} else {
				logger.Info("device table changed", logging.String("snapshot", path))
			}
			m.recordEvent(telemetry.Event{
				Type:    telemetry.EventConfigChange,
				Message: "device table reloaded",
			})
			for _, slot := range table.Slots() {
				pending[slot] = true
			}
		}

		if len(pending) == 0 {
			return
		}
		m.pushPending(ctx, logger, pending)
	})
}

func (m *Manager) pushPending(ctx context.Context, logger *slog.Logger, pending map[string]bool) {
	status, err := m.controller.Status(ctx)
	if err != nil {
		logger.Warn("status read failed", logging.Error(err))
		return
	}
	if status != rig.StatusReadyToOperate {
		return
	}

	table := m.live.Devices()
	if table == nil {
		return
	}
	for slot := range pending {
		entry, ok := table.Lookup(slot)
		if !ok {
			delete(pending, slot)
			continue
		}
		applied := m.locks.With(slot, func() {
			if err := m.configureSlot(ctx, entry); err != nil {
				logger.Warn("slot configuration failed",
					logging.String(logging.FieldSlot, slot), logging.Error(err))
				return
			}
			delete(pending, slot)
		})
		if !applied {
			// Lock contention: another loop owns the slot this tick.
			continue
		}
	}
}

// configureSlot pushes one slot's standby configuration: ramp rate,
// compliance, a zero-ramp to clear any latched overcurrent, then the standby
// voltage with the output enabled.
func (m *Manager) configureSlot(ctx context.Context, entry devicecfg.Entry) error {
	slot := entry.Slot
	if err := m.controller.SetRampRate(ctx, slot, m.cfg.Hardware.RampRateVPerSec); err != nil {
		return err
	}
	if err := m.controller.SetCurrentCompliance(ctx, slot, entry.ComplianceA); err != nil {
		return err
	}
	tripped, err := m.controller.OvercurrentTripped(ctx, slot)
	if err != nil {
		return err
	}
	if tripped {
		if err := m.controller.SetBiasVoltage(ctx, slot, 0); err != nil {
			return err
		}
	}
	if err := m.controller.SetBiasVoltage(ctx, slot, entry.StandbyV); err != nil {
		return err
	}
	return m.controller.EnableOutput(ctx, slot, true)
}

// chamberLoop keeps the chamber set-point converged with chamber.csv, gated
// the same way as device reconciliation.
func (m *Manager) chamberLoop(ctx context.Context) error {
	logger := logging.NewComponentLogger(m.logger, "chamber-reconcile")

	var (
		version devicecfg.Version
		pending bool
	)
	return m.tick(ctx, m.pollInterval, func(ctx context.Context) {
		settings, next, changed, err := m.chamber.LoadIfChanged(version)
		if err != nil {
			logger.Error("chamber table reload failed", logging.Error(err))
			return
		}
		if changed {
			m.live.SetChamber(settings)
			version = next
			pending = true
			logger.Info("chamber table changed",
				logging.Float64("standby_temperature_c", settings.StandbyTemperatureC))
			m.recordEvent(telemetry.Event{
				Type:    telemetry.EventConfigChange,
				Message: "chamber table reloaded",
			})
		}

		if !pending {
			return
		}
		status, err := m.controller.Status(ctx)
		if err != nil {
			logger.Warn("status read failed", logging.Error(err))
			return
		}
		if status != rig.StatusReadyToOperate {
			return
		}
		current, ok := m.live.Chamber()
		if !ok {
			return
		}
		if err := m.controller.SetTemperatureSetPoint(ctx, current.StandbyTemperatureC); err != nil {
			logger.Warn("set-point push failed", logging.Error(err))
			return
		}
		pending = false
	})
}
