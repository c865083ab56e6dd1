package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"coldrig/internal/logging"
	"coldrig/internal/rig"
	"coldrig/internal/telemetry"
)

// controlIntent is what the sentinel marker files currently ask for.
type controlIntent int

const (
	intentAmbiguousNone controlIntent = iota
	intentAmbiguousBoth
	intentRun
	intentStop
)

// controlLoop watches the run/stop marker files and drives the start/stop
// choreography. Exactly one marker must be present; anything else is
// ambiguous and alerted once per transition into the ambiguous state. The
// choreography itself can block for hours, which is acceptable here: this
// loop owns no slot locks and every internal wait is deadline-bounded and
// cancellable.
func (m *Manager) controlLoop(ctx context.Context) error {
	logger := logging.NewComponentLogger(m.logger, "control")

	lastAmbiguous := controlIntent(-1)
	return m.tick(ctx, m.pollInterval, func(ctx context.Context) {
		intent, err := m.readIntent()
		if err != nil {
			logger.Warn("control directory unreadable", logging.Error(err))
			return
		}

		switch intent {
		case intentAmbiguousBoth, intentAmbiguousNone:
			if intent == lastAmbiguous {
				return
			}
			lastAmbiguous = intent
			detail := "neither run nor stop marker present"
			if intent == intentAmbiguousBoth {
				detail = "both run and stop markers present"
			}
			logger.Warn("ambiguous control intent; holding current state",
				logging.String(logging.FieldErrorHint, detail))
			m.recordEvent(telemetry.Event{Type: telemetry.EventControlError, Message: detail})
			if err := m.notifier.NotifyAmbiguousControl(ctx, detail); err != nil {
				logger.Warn("ambiguous-control alert failed", logging.Error(err))
			}
			return
		}
		lastAmbiguous = -1

		status, err := m.controller.Status(ctx)
		if err != nil {
			logger.Warn("status read failed", logging.Error(err))
			return
		}

		switch {
		case intent == intentRun && status == rig.StatusNotRunning:
			m.runStart(ctx, logger)
		case intent == intentStop && status != rig.StatusNotRunning:
			m.runStop(ctx, logger)
		}
	})
}

func (m *Manager) readIntent() (controlIntent, error) {
	run, err := markerPresent(m.runMarker)
	if err != nil {
		return intentAmbiguousNone, err
	}
	stop, err := markerPresent(m.stopMarker)
	if err != nil {
		return intentAmbiguousNone, err
	}
	switch {
	case run && stop:
		return intentAmbiguousBoth, nil
	case run:
		return intentRun, nil
	case stop:
		return intentStop, nil
	default:
		return intentAmbiguousNone, nil
	}
}

func markerPresent(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (m *Manager) runStart(ctx context.Context, logger *slog.Logger) {
	logger.Info("run marker present, starting rig")
	opts := rig.StartOptions{
		HumidityThresholdPct: m.cfg.Startup.HumidityThresholdPct,
		HumidityTimeout:      time.Duration(m.cfg.Startup.HumidityTimeoutSec) * time.Second,
		CoolingTimeout:       time.Duration(m.cfg.Startup.CoolingTimeoutSec) * time.Second,
	}
	if err := m.controller.Start(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("start sequence failed", logging.Error(err))
		m.recordEvent(telemetry.Event{Type: telemetry.EventControlError, Message: "start failed: " + err.Error()})
		if alertErr := m.notifier.NotifyError(ctx, err, "start sequence"); alertErr != nil {
			logger.Warn("start-failure alert failed", logging.Error(alertErr))
		}
		return
	}
	logger.Info("rig ready to operate")
	m.recordEvent(telemetry.Event{Type: telemetry.EventRigStarted, Message: "start sequence complete"})
	if err := m.notifier.NotifyRigStarted(ctx); err != nil {
		logger.Warn("start alert failed", logging.Error(err))
	}
}

func (m *Manager) runStop(ctx context.Context, logger *slog.Logger) {
	logger.Info("stop marker present, stopping rig")
	opts := rig.StopOptions{
		UnbiasTimeout: time.Duration(m.cfg.Shutdown.UnbiasTimeoutSec) * time.Second,
		WarmupTimeout: time.Duration(m.cfg.Shutdown.WarmupTimeoutSec) * time.Second,
	}
	if err := m.controller.Stop(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("stop sequence failed", logging.Error(err))
		m.recordEvent(telemetry.Event{Type: telemetry.EventControlError, Message: "stop failed: " + err.Error()})
		if alertErr := m.notifier.NotifyError(ctx, err, "stop sequence"); alertErr != nil {
			logger.Warn("stop-failure alert failed", logging.Error(alertErr))
		}
		return
	}
	logger.Info("rig stopped")
	m.recordEvent(telemetry.Event{Type: telemetry.EventRigStopped, Message: "stop sequence complete"})
	if err := m.notifier.NotifyRigStopped(ctx); err != nil {
		logger.Warn("stop alert failed", logging.Error(err))
	}
}
