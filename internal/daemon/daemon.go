package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"coldrig/internal/config"
	"coldrig/internal/logging"
	"coldrig/internal/notifications"
	"coldrig/internal/reconcile"
	"coldrig/internal/rig"
	"coldrig/internal/telemetry"
)

// Daemon coordinates the reconciliation manager and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *telemetry.Store
	controller *rig.Controller
	manager    *reconcile.Manager
	notifier   notifications.Service
	logPath    string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan error
}

// SlotStatus is one slot's state as reported over IPC.
type SlotStatus struct {
	Name               string    `json:"name"`
	SetVoltageV        float64   `json:"set_voltage_v"`
	LastVoltageV       float64   `json:"last_voltage_v"`
	LastCurrentA       float64   `json:"last_current_a"`
	LastStatusByte     byte      `json:"last_status_byte"`
	LastMeasuredAt     time.Time `json:"last_measured_at"`
	OvercurrentLatched bool      `json:"overcurrent_latched"`
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool         `json:"running"`
	RigStatus     string       `json:"rig_status"`
	TemperatureC  float64      `json:"temperature_c"`
	HumidityPct   float64      `json:"humidity_pct"`
	SetPointC     float64      `json:"set_point_c"`
	Slots         []SlotStatus `json:"slots"`
	StoreDBPath   string       `json:"store_db_path"`
	LockFilePath  string       `json:"lock_file_path"`
	LogFilePath   string       `json:"log_file_path"`
	StatusProblem string       `json:"status_problem,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, controller *rig.Controller, manager *reconcile.Manager, store *telemetry.Store, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || controller == nil || manager == nil || store == nil || notifier == nil || logger == nil {
		return nil, errors.New("daemon requires config, controller, manager, store, notifier, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "coldrigd.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		controller: controller,
		manager:    manager,
		notifier:   notifier,
		logPath:    filepath.Join(cfg.Paths.LogDir, "coldrig.log"),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the reconciliation loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another coldrig daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan error, 1)
	go func() {
		d.done <- d.manager.Run(runCtx)
		// Closing lets both Wait and Stop observe completion.
		close(d.done)
	}()

	d.running.Store(true)
	d.logger.Info("coldrig daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("slots", len(d.controller.Slots())))
	d.record(telemetry.Event{Type: telemetry.EventDaemonStarted, Message: "daemon started"})
	if err := d.notifier.NotifyDaemonStarted(ctx, len(d.controller.Slots())); err != nil {
		d.logger.Warn("daemon-started alert failed", logging.Error(err))
	}
	return nil
}

// Wait returns the channel carrying the reconciliation manager's result.
// The channel receives once: nil after a clean shutdown, or the failure
// that killed a loop.
func (d *Daemon) Wait() <-chan error {
	return d.done
}

// Stop cancels the loops, waits for them to drain, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		select {
		case <-d.done:
		case <-time.After(30 * time.Second):
			d.logger.Warn("reconciliation loops did not drain in time")
		}
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("coldrig daemon stopped")
	d.record(telemetry.Event{Type: telemetry.EventDaemonStopped, Message: "daemon stopped"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.notifier.NotifyDaemonStopped(ctx); err != nil {
		d.logger.Warn("daemon-stopped alert failed", logging.Error(err))
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status gathers the live rig state for the CLI. Hardware read failures are
// reported in StatusProblem rather than failing the whole query.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		StoreDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LogFilePath:  d.logPath,
	}

	conditions, err := d.controller.Conditions(ctx)
	if err != nil {
		status.StatusProblem = err.Error()
		return status
	}
	status.RigStatus = string(rig.DeriveStatus(conditions, d.controller.Limits().MaxOperatingTempC))
	status.TemperatureC = conditions.TemperatureC
	status.SetPointC = conditions.SetPointC

	if humidity, err := d.controller.Humidity(ctx); err == nil {
		status.HumidityPct = humidity
	} else {
		status.StatusProblem = err.Error()
	}

	for _, slot := range d.controller.Slots() {
		state, err := d.controller.SlotState(slot)
		if err != nil {
			continue
		}
		status.Slots = append(status.Slots, SlotStatus{
			Name:               state.Name,
			SetVoltageV:        state.SetVoltageV,
			LastVoltageV:       state.LastVoltageV,
			LastCurrentA:       state.LastCurrentA,
			LastStatusByte:     state.LastStatusByte,
			LastMeasuredAt:     state.LastMeasuredAt,
			OvercurrentLatched: state.OvercurrentLatched,
		})
	}
	return status
}

// RecentEvents returns the newest journal entries.
func (d *Daemon) RecentEvents(ctx context.Context, limit int) ([]telemetry.Event, error) {
	return d.store.RecentEvents(ctx, limit)
}

// RecentSweeps returns the newest sweep runs, optionally for one slot.
func (d *Daemon) RecentSweeps(ctx context.Context, slot string, limit int) ([]telemetry.SweepRun, error) {
	return d.store.RecentSweeps(ctx, slot, limit)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

func (d *Daemon) record(event telemetry.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := d.store.RecordEvent(ctx, event); err != nil {
		d.logger.Warn("failed to record event",
			logging.String(logging.FieldEventType, event.Type), logging.Error(err))
	}
}
