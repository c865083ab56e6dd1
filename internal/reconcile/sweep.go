package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coldrig/internal/devicecfg"
	"coldrig/internal/logging"
	"coldrig/internal/rig"
	"coldrig/internal/telemetry"
)

// sweepLoop runs each slot's IV sweep when its configured interval elapses
// and the rig is ready to operate. The slot's lock is held for the whole
// sweep, so standby telemetry and reconciliation skip the slot until the
// sweep finishes. A failed sweep is recorded, alerted, and does not stop
// the loop.
func (m *Manager) sweepLoop(ctx context.Context) error {
	logger := logging.NewComponentLogger(m.logger, "sweep")

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
				// First sight of a slot starts a full interval; the daemon
				// never sweeps at startup.
				due[slot] = now.Add(entry.SweepInterval)
				continue
			}
			if now.Before(next) {
				continue
			}

			status, err := m.controller.Status(ctx)
			if err != nil {
				logger.Warn("status read failed", logging.Error(err))
				return
			}
			if status != rig.StatusReadyToOperate {
				continue
			}

			m.locks.With(slot, func() {
				m.runSweep(ctx, logger, entry)
				due[slot] = time.Now().Add(entry.SweepInterval)
			})
		}
	})
}

// runSweep executes one sweep with the slot lock held. Standby telemetry is
// logged immediately before and after the sweep regardless of outcome, and
// the channel is always ramped back to its standby voltage.
func (m *Manager) runSweep(ctx context.Context, logger *slog.Logger, entry devicecfg.Entry) {
	slot := entry.Slot
	startedAt := time.Now()

	m.logStandby(logger, slot, func() (rig.Reading, error) { return m.controller.MeasureSlot(ctx, slot) })

	file, err := m.sweeps.Begin(slot, startedAt)
	if err != nil {
		logger.Error("sweep file creation failed",
			logging.String(logging.FieldSlot, slot), logging.Error(err))
		return
	}
	logger.Info("sweep started",
		logging.String(logging.FieldSlot, slot),
		logging.String(logging.FieldSweepID, file.RunID()),
		logging.Int("points", entry.SweepPoints))

	points, sweepErr := m.sweepPoints(ctx, file, entry)

	// Back to standby before anything else; a failed sweep must not leave
	// the detector at an arbitrary set-point.
	if err := m.controller.SetBiasVoltage(ctx, slot, entry.StandbyV); err != nil && sweepErr == nil {
		sweepErr = fmt.Errorf("ramp back to standby: %w", err)
	}

	m.logStandby(logger, slot, func() (rig.Reading, error) { return m.controller.MeasureSlot(ctx, slot) })

	if err := file.Close(); err != nil {
		logger.Warn("sweep file close failed",
			logging.String(logging.FieldSlot, slot), logging.Error(err))
	}

	run := telemetry.SweepRun{
		ID:         file.RunID(),
		Slot:       slot,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Points:     points,
		Outcome:    telemetry.SweepCompleted,
		Path:       file.Path(),
	}
	if sweepErr != nil {
		run.Outcome = telemetry.SweepFailed
		run.Error = sweepErr.Error()
	}
	storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.RecordSweep(storeCtx, run); err != nil {
		logger.Warn("sweep run not recorded",
			logging.String(logging.FieldSweepID, run.ID), logging.Error(err))
	}

	if sweepErr != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("sweep failed",
			logging.String(logging.FieldSlot, slot),
			logging.String(logging.FieldSweepID, run.ID), logging.Error(sweepErr))
		m.recordEvent(telemetry.Event{
			Type:    telemetry.EventSweepFailed,
			Slot:    slot,
			Message: sweepErr.Error(),
		})
		if err := m.notifier.NotifySweepFailed(ctx, slot, sweepErr); err != nil {
			logger.Warn("sweep alert failed", logging.Error(err))
		}
		return
	}
	logger.Info("sweep finished",
		logging.String(logging.FieldSlot, slot),
		logging.String(logging.FieldSweepID, run.ID))
}

// sweepPoints steps the channel through the configured linearly spaced
// set-points, recording each measurement. It returns how many points were
// captured before the first failure.
func (m *Manager) sweepPoints(ctx context.Context, file *telemetry.SweepFile, entry devicecfg.Entry) (int, error) {
	for i := 0; i < entry.SweepPoints; i++ {
		target := linspacePoint(entry.SweepStartV, entry.SweepStopV, entry.SweepPoints, i)
		if err := m.controller.SetBiasVoltage(ctx, entry.Slot, target); err != nil {
			return i, fmt.Errorf("set %.2f V: %w", target, err)
		}
		if err := rig.SleepCtx(ctx, m.sweepSettle); err != nil {
			return i, err
		}
		reading, err := m.controller.MeasureSlot(ctx, entry.Slot)
		if err != nil {
			return i, fmt.Errorf("measure at %.2f V: %w", target, err)
		}
		point := telemetry.SweepPoint{
			When:       reading.When,
			VoltageV:   reading.VoltageV,
			CurrentA:   reading.CurrentA,
			StatusByte: reading.StatusByte,
		}
		if err := file.Add(point); err != nil {
			return i, fmt.Errorf("record point at %.2f V: %w", target, err)
		}
	}
	return entry.SweepPoints, nil
}

func (m *Manager) logStandby(logger *slog.Logger, slot string, measure func() (rig.Reading, error)) {
	reading, err := measure()
	if err != nil {
		logger.Warn("standby measurement failed",
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
	}
}

// linspacePoint returns the i-th of n evenly spaced values from start to
// stop inclusive. n is at least 2 by table validation.
func linspacePoint(start, stop float64, n, i int) float64 {
	return start + (stop-start)*float64(i)/float64(n-1)
}
