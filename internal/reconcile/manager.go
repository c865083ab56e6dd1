package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"coldrig/internal/config"
	"coldrig/internal/devicecfg"
	"coldrig/internal/locking"
	"coldrig/internal/logging"
	"coldrig/internal/notifications"
	"coldrig/internal/rig"
	"coldrig/internal/telemetry"
)

// Options wires a Manager.
type Options struct {
	Config     *config.Config
	Controller *rig.Controller
	Locks      *locking.SlotLocks
	Live       *devicecfg.Live
	Devices    *devicecfg.DeviceSource
	Chamber    *devicecfg.ChamberSource
	Logs       *telemetry.Logs
	Sweeps     *telemetry.SweepRecorder
	Store      *telemetry.Store
	Notifier   notifications.Service
	Logger     *slog.Logger
}

// Manager owns the reconciliation loops and their supervision.
type Manager struct {
	cfg        *config.Config
	controller *rig.Controller
	locks      *locking.SlotLocks
	live       *devicecfg.Live
	devices    *devicecfg.DeviceSource
	chamber    *devicecfg.ChamberSource
	logs       *telemetry.Logs
	sweeps     *telemetry.SweepRecorder
	store      *telemetry.Store
	notifier   notifications.Service
	logger     *slog.Logger

	pollInterval     time.Duration
	watchdogInterval time.Duration
	sweepSettle      time.Duration
	historyDir       string
	runMarker        string
	stopMarker       string
}

// New validates the wiring and builds a Manager.
func New(opts Options) (*Manager, error) {
	switch {
	case opts.Config == nil:
		return nil, fmt.Errorf("reconcile: config is required")
	case opts.Controller == nil:
		return nil, fmt.Errorf("reconcile: controller is required")
	case opts.Locks == nil:
		return nil, fmt.Errorf("reconcile: slot locks are required")
	case opts.Live == nil:
		return nil, fmt.Errorf("reconcile: live snapshot is required")
	case opts.Devices == nil || opts.Chamber == nil:
		return nil, fmt.Errorf("reconcile: configuration sources are required")
	case opts.Logs == nil || opts.Sweeps == nil || opts.Store == nil:
		return nil, fmt.Errorf("reconcile: telemetry sinks are required")
	case opts.Notifier == nil:
		return nil, fmt.Errorf("reconcile: notifier is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	cfg := opts.Config
	return &Manager{
		cfg:        cfg,
		controller: opts.Controller,
		locks:      opts.Locks,
		live:       opts.Live,
		devices:    opts.Devices,
		chamber:    opts.Chamber,
		logs:       opts.Logs,
		sweeps:     opts.Sweeps,
		store:      opts.Store,
		notifier:   opts.Notifier,
		logger:     logger,

		pollInterval:     time.Duration(cfg.Daemon.PollIntervalSec) * time.Second,
		watchdogInterval: time.Duration(cfg.Daemon.WatchdogIntervalSec) * time.Second,
		sweepSettle:      time.Duration(cfg.Daemon.SweepSettleSec) * time.Second,
		historyDir:       filepath.Join(cfg.Paths.DataDir, "configuration_history"),
		runMarker:        filepath.Join(cfg.Paths.ControlDir, "run"),
		stopMarker:       filepath.Join(cfg.Paths.ControlDir, "stop"),
	}, nil
}

type loopResult struct {
	name string
	err  error
}

// Run starts every loop and blocks until shutdown or a loop failure. Any
// loop returning while the context is still live is fatal: the remaining
// loops are cancelled, awaited, the failure alerted, and the first error
// propagated. A clean context cancellation returns nil.
func (m *Manager) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loops := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"device-reconcile", m.deviceLoop},
		{"chamber-reconcile", m.chamberLoop},
		{"slot-telemetry", m.slotTelemetryLoop},
		{"climatic-telemetry", m.climaticTelemetryLoop},
		{"control", m.controlLoop},
		{"watchdog", m.watchdogLoop},
		{"sweep", m.sweepLoop},
	}

	results := make(chan loopResult, len(loops))
	var wg sync.WaitGroup
	for _, loop := range loops {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
					}
				}()
				return fn(runCtx)
			}()
			results <- loopResult{name: name, err: err}
		}(loop.name, loop.fn)
	}

	var failure loopResult
	select {
	case <-ctx.Done():
	case r := <-results:
		if ctx.Err() == nil {
			failure = r
			if failure.err == nil {
				failure.err = fmt.Errorf("loop %s exited unexpectedly", failure.name)
			}
		}
	}

	cancel()
	wg.Wait()

	if failure.name == "" {
		return nil
	}

	m.logger.Error("daemon loop died, shutting down",
		logging.String("loop", failure.name), logging.Error(failure.err))
	m.recordEvent(telemetry.Event{
		Type:    telemetry.EventLoopFailure,
		Message: fmt.Sprintf("loop %s: %v", failure.name, failure.err),
	})
	// Best-effort death notice before propagating; the process is about to
	// exit and nobody is watching the logs.
	alertCtx, alertCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer alertCancel()
	if err := m.notifier.NotifyError(alertCtx, failure.err, fmt.Sprintf("daemon loop %s", failure.name)); err != nil {
		m.logger.Warn("failed to send death notice", logging.Error(err))
	}
	return fmt.Errorf("daemon loop %s: %w", failure.name, failure.err)
}

// tick runs body at the manager's poll interval until the context ends.
// Cancellation is observed at the top of each iteration, bounding shutdown
// latency to one interval.
func (m *Manager) tick(ctx context.Context, interval time.Duration, body func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		body(ctx)
	}
}

// recordEvent journals an event, tolerating store failures.
func (m *Manager) recordEvent(event telemetry.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.store.RecordEvent(ctx, event); err != nil {
		m.logger.Warn("failed to record event",
			logging.String(logging.FieldEventType, event.Type), logging.Error(err))
	}
}
