package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"coldrig/internal/config"
	"coldrig/internal/daemon"
	"coldrig/internal/devicecfg"
	"coldrig/internal/hardware"
	"coldrig/internal/hardware/sim"
	"coldrig/internal/locking"
	"coldrig/internal/notifications"
	"coldrig/internal/reconcile"
	"coldrig/internal/rig"
	"coldrig/internal/telemetry"
)

// bootstrap assembles the hardware, controller, reconciliation manager, and
// daemon from the loaded configuration.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	chamber, sensor, providers, err := buildHardware(cfg)
	if err != nil {
		return nil, err
	}

	devices := devicecfg.NewDeviceSource(filepath.Join(cfg.Paths.ControlDir, "devices.csv"), cfg.Hardware.Providers)
	table, _, _, _, err := devices.LoadIfChanged(devicecfg.Version{})
	if err != nil {
		return nil, fmt.Errorf("load device table: %w", err)
	}

	controller, err := buildController(cfg, chamber, sensor, providers, table)
	if err != nil {
		return nil, err
	}

	store, err := telemetry.OpenStore(filepath.Join(cfg.Paths.DataDir, "telemetry.db"))
	if err != nil {
		return nil, fmt.Errorf("open telemetry store: %w", err)
	}

	notifier := notifications.NewService(cfg)
	manager, err := reconcile.New(reconcile.Options{
		Config:     cfg,
		Controller: controller,
		Locks:      locking.NewSlotLocks(table.Slots()),
		Live:       &devicecfg.Live{},
		Devices:    devices,
		Chamber:    devicecfg.NewChamberSource(filepath.Join(cfg.Paths.ControlDir, "chamber.csv")),
		Logs:       telemetry.NewLogs(filepath.Join(cfg.Paths.DataDir, "standby_log.csv"), filepath.Join(cfg.Paths.DataDir, "climatic_log.csv")),
		Sweeps:     telemetry.NewSweepRecorder(filepath.Join(cfg.Paths.DataDir, "sweeps")),
		Store:      store,
		Notifier:   notifier,
		Logger:     logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	d, err := daemon.New(cfg, controller, manager, store, notifier, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}

// buildHardware returns the instrument stack for the configured mode. Only
// the simulated transports ship in this build.
func buildHardware(cfg *config.Config) (hardware.ClimateController, hardware.AmbientSensor, []hardware.BiasProvider, error) {
	if !cfg.Hardware.Simulated {
		return nil, nil, nil, errors.New("no instrument transports are built in; set [hardware] simulated = true")
	}
	simRig := sim.NewRig(cfg.Hardware.Providers)
	return simRig.Chamber(), simRig.Sensor(), simRig.Providers(), nil
}

func buildController(cfg *config.Config, chamber hardware.ClimateController, sensor hardware.AmbientSensor, providers []hardware.BiasProvider, table *devicecfg.Table) (*rig.Controller, error) {
	slotTable, err := rig.NewSlotTable(table.Bindings(), cfg.Hardware.Providers)
	if err != nil {
		return nil, err
	}
	limits := rig.Limits{
		MaxOperatingTempC:  cfg.Interlock.MaxOperatingTemperatureC,
		UnbiasedThresholdV: cfg.Interlock.UnbiasedVoltageThresholdV,
		RoomTempC:          cfg.Interlock.RoomTemperatureC,
		WarmThresholdC:     cfg.Interlock.WarmThresholdC,
		StandbyTempC:       cfg.Chamber.StandbyTemperatureC,
	}
	return rig.New(chamber, sensor, providers, slotTable, limits)
}
