package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"coldrig/internal/config"
	"coldrig/internal/devicecfg"
	"coldrig/internal/hardware/sim"
	"coldrig/internal/locking"
	"coldrig/internal/logging"
	"coldrig/internal/notifications"
	"coldrig/internal/reconcile"
	"coldrig/internal/rig"
	"coldrig/internal/telemetry"
)

// MustController builds a simulated rig and a controller bound to the
// det-0/det-1 slots of DefaultDevicesCSV.
func MustController(t testing.TB, cfg *config.Config, simOpts ...sim.Option) (*sim.Rig, *rig.Controller) {
	t.Helper()

	if len(simOpts) == 0 {
		simOpts = []sim.Option{sim.WithInstantResponse()}
	}
	simRig := sim.NewRig(cfg.Hardware.Providers, simOpts...)

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
	controller, err := rig.New(simRig.Chamber(), simRig.Sensor(), simRig.Providers(), table, limits,
		rig.WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("rig.New: %v", err)
	}
	return simRig, controller
}

// MustManager wires a reconciliation manager over the given controller and
// store using the config's control and data directories.
func MustManager(t testing.TB, cfg *config.Config, controller *rig.Controller, store *telemetry.Store, notifier notifications.Service) *reconcile.Manager {
	t.Helper()

	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	manager, err := reconcile.New(reconcile.Options{
		Config:     cfg,
		Controller: controller,
		Locks:      locking.NewSlotLocks(controller.Slots()),
		Live:       &devicecfg.Live{},
		Devices:    devicecfg.NewDeviceSource(filepath.Join(cfg.Paths.ControlDir, "devices.csv"), cfg.Hardware.Providers),
		Chamber:    devicecfg.NewChamberSource(filepath.Join(cfg.Paths.ControlDir, "chamber.csv")),
		Logs:       telemetry.NewLogs(filepath.Join(cfg.Paths.DataDir, "standby_log.csv"), filepath.Join(cfg.Paths.DataDir, "climatic_log.csv")),
		Sweeps:     telemetry.NewSweepRecorder(filepath.Join(cfg.Paths.DataDir, "sweeps")),
		Store:      store,
		Notifier:   notifier,
		Logger:     logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}
	return manager
}
