package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coldrig/internal/config"
	"coldrig/internal/daemon"
	"coldrig/internal/devicecfg"
	"coldrig/internal/hardware/sim"
	"coldrig/internal/locking"
	"coldrig/internal/logging"
	"coldrig/internal/notifications"
	"coldrig/internal/reconcile"
	"coldrig/internal/rig"
	"coldrig/internal/telemetry"
)

const testDevicesCSV = `slot,provider,channel,compliance_a,standby_v,sweep_start_v,sweep_stop_v,sweep_points,sweep_interval_s,telemetry_interval_s
det-0,PSU-A,0,0.000001,60,0,100,3,3600,3600
det-1,PSU-A,1,0.000001,60,0,100,3,3600,3600
`

const testChamberCSV = "standby_temperature_c,telemetry_interval_s\n-20,3600\n"

func newTestDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()

	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.ControlDir = filepath.Join(base, "control")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "log")
	cfg.Hardware.Providers = map[string]int{"PSU-A": 2}
	cfg.Hardware.RampRateVPerSec = 10
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for name, content := range map[string]string{
		"devices.csv": testDevicesCSV,
		"chamber.csv": testChamberCSV,
	} {
		if err := os.WriteFile(filepath.Join(cfg.Paths.ControlDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	simRig := sim.NewRig(cfg.Hardware.Providers, sim.WithInstantResponse())
	table, err := rig.NewSlotTable([]rig.SlotBinding{
		{Slot: "det-0", Provider: "PSU-A", Channel: 0},
		{Slot: "det-1", Provider: "PSU-A", Channel: 1},
	}, cfg.Hardware.Providers)
	if err != nil {
		t.Fatalf("slot table: %v", err)
	}
	limits := rig.Limits{
		MaxOperatingTempC:  cfg.Interlock.MaxOperatingTemperatureC,
		UnbiasedThresholdV: cfg.Interlock.UnbiasedVoltageThresholdV,
		RoomTempC:          cfg.Interlock.RoomTemperatureC,
		WarmThresholdC:     cfg.Interlock.WarmThresholdC,
		StandbyTempC:       cfg.Chamber.StandbyTemperatureC,
	}
	controller, err := rig.New(simRig.Chamber(), simRig.Sensor(), simRig.Providers(), table, limits)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	store, err := telemetry.OpenStore(filepath.Join(cfg.Paths.DataDir, "telemetry.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	logger := logging.NewNop()
	notifier := notifications.NewService(&cfg)
	manager, err := reconcile.New(reconcile.Options{
		Config:     &cfg,
		Controller: controller,
		Locks:      locking.NewSlotLocks(table.Slots()),
		Live:       &devicecfg.Live{},
		Devices:    devicecfg.NewDeviceSource(filepath.Join(cfg.Paths.ControlDir, "devices.csv"), cfg.Hardware.Providers),
		Chamber:    devicecfg.NewChamberSource(filepath.Join(cfg.Paths.ControlDir, "chamber.csv")),
		Logs:       telemetry.NewLogs(filepath.Join(cfg.Paths.DataDir, "standby_log.csv"), filepath.Join(cfg.Paths.DataDir, "climatic_log.csv")),
		Sweeps:     telemetry.NewSweepRecorder(filepath.Join(cfg.Paths.DataDir, "sweeps")),
		Store:      store,
		Notifier:   notifier,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}

	d, err := daemon.New(&cfg, controller, manager, store, notifier, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.RigStatus != string(rig.StatusNotRunning) {
		t.Fatalf("rig status = %q, want %q", status.RigStatus, rig.StatusNotRunning)
	}
	if len(status.Slots) != 2 {
		t.Fatalf("status lists %d slots, want 2", len(status.Slots))
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}

	events, err := d.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	var started, stopped bool
	for _, event := range events {
		switch event.Type {
		case telemetry.EventDaemonStarted:
			started = true
		case telemetry.EventDaemonStopped:
			stopped = true
		}
	}
	if !started || !stopped {
		t.Fatalf("journal missing lifecycle events (started=%v stopped=%v)", started, stopped)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d := newTestDaemon(t)

	ok, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if ok {
		t.Fatal("expected test notification to be skipped without a topic")
	}
	if message == "" {
		t.Fatal("expected an explanatory message")
	}
}
