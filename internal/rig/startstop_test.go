package rig_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"coldrig/internal/hardware/sim"
	"coldrig/internal/rig"
)

var (
	quickStart = rig.StartOptions{
		HumidityThresholdPct: 10,
		HumidityTimeout:      time.Second,
		CoolingTimeout:       time.Second,
	}
	quickStop = rig.StopOptions{
		UnbiasTimeout: time.Second,
		WarmupTimeout: time.Second,
	}
)

func TestStartReachesReadyToOperate(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t, sim.WithInstantResponse())

	if err := controller.Start(ctx, quickStart); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status, err := controller.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != rig.StatusReadyToOperate {
		t.Fatalf("Status = %s, want %s", status, rig.StatusReadyToOperate)
	}

	setPoint, err := controller.TemperatureSetPoint(ctx)
	if err != nil {
		t.Fatalf("TemperatureSetPoint: %v", err)
	}
	if setPoint != testLimits.StandbyTempC {
		t.Fatalf("set-point = %v, want %v", setPoint, testLimits.StandbyTempC)
	}

	humidity, err := controller.Humidity(ctx)
	if err != nil {
		t.Fatalf("Humidity: %v", err)
	}
	if humidity >= quickStart.HumidityThresholdPct {
		t.Fatalf("humidity = %v, want below %v", humidity, quickStart.HumidityThresholdPct)
	}
	_ = simRig
}

func TestStartRequiresNotRunning(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t, sim.WithInstantResponse())
	if err := simRig.Chamber().Start(ctx); err != nil {
		t.Fatalf("start chamber: %v", err)
	}

	err := controller.Start(ctx, quickStart)
	if !errors.Is(err, rig.ErrInvalidTransition) {
		t.Fatalf("Start error = %v, want ErrInvalidTransition", err)
	}
}

func TestStartHumidityTimeoutNeverCools(t *testing.T) {
	ctx := context.Background()
	// The dryer makes no progress; humidity stays at ambient 45%.
	controller, simRig := newTestController(t, sim.WithThermalRate(0), sim.WithDehumidifyRate(0))

	opts := quickStart
	opts.HumidityTimeout = 10 * time.Millisecond

	err := controller.Start(ctx, opts)
	if !errors.Is(err, rig.ErrTimeout) {
		t.Fatalf("Start error = %v, want ErrTimeout", err)
	}

	// A humid chamber must never be cooled: the set-point stays at room
	// temperature and the chamber keeps drying.
	setPoint, err := controller.TemperatureSetPoint(ctx)
	if err != nil {
		t.Fatalf("TemperatureSetPoint: %v", err)
	}
	if setPoint != testLimits.RoomTempC {
		t.Fatalf("set-point = %v after humidity timeout, want %v", setPoint, testLimits.RoomTempC)
	}
	running, err := simRig.Chamber().Running(ctx)
	if err != nil {
		t.Fatalf("Running: %v", err)
	}
	if !running {
		t.Fatal("chamber stopped after humidity timeout")
	}
}

func TestStartCoolingTimeout(t *testing.T) {
	ctx := context.Background()
	// Drying succeeds instantly but the temperature never moves.
	controller, _ := newTestController(t, sim.WithThermalRate(0), sim.WithDehumidifyRate(1e9))

	opts := quickStart
	opts.CoolingTimeout = 10 * time.Millisecond

	err := controller.Start(ctx, opts)
	if !errors.Is(err, rig.ErrTimeout) {
		t.Fatalf("Start error = %v, want ErrTimeout", err)
	}
}

func TestStartHonorsContextCancel(t *testing.T) {
	controller, _ := newTestController(t, sim.WithThermalRate(0), sim.WithDehumidifyRate(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := quickStart
	opts.HumidityTimeout = time.Minute

	err := controller.Start(ctx, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Start error = %v, want context.Canceled", err)
	}
}

func TestStopUnbiasesAndWarms(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t, sim.WithInstantResponse())

	if err := controller.Start(ctx, quickStart); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := controller.EnableOutput(ctx, "det-0", true); err != nil {
		t.Fatalf("EnableOutput: %v", err)
	}
	if err := controller.SetBiasVoltage(ctx, "det-0", 60); err != nil {
		t.Fatalf("SetBiasVoltage: %v", err)
	}

	if err := controller.Stop(ctx, quickStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	status, err := controller.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != rig.StatusNotRunning {
		t.Fatalf("Status = %s, want %s", status, rig.StatusNotRunning)
	}

	state, err := controller.SlotState("det-0")
	if err != nil {
		t.Fatalf("SlotState: %v", err)
	}
	if state.SetVoltageV != 0 {
		t.Fatalf("slot still programmed to %v V after stop", state.SetVoltageV)
	}

	temperature, err := controller.Temperature(ctx)
	if err != nil {
		t.Fatalf("Temperature: %v", err)
	}
	if temperature < testLimits.WarmThresholdC {
		t.Fatalf("temperature = %v after stop, want at least %v", temperature, testLimits.WarmThresholdC)
	}
	_ = simRig
}

func TestStopOnStoppedRig(t *testing.T) {
	ctx := context.Background()
	controller, _ := newTestController(t)

	err := controller.Stop(ctx, quickStop)
	if !errors.Is(err, rig.ErrInvalidTransition) {
		t.Fatalf("Stop error = %v, want ErrInvalidTransition", err)
	}
}

func TestStopWarmupTimeoutKeepsChamberRunning(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t, sim.WithThermalRate(0))
	bringCold(t, controller, simRig)

	opts := quickStop
	opts.WarmupTimeout = 10 * time.Millisecond

	err := controller.Stop(ctx, opts)
	if !errors.Is(err, rig.ErrTimeout) {
		t.Fatalf("Stop error = %v, want ErrTimeout", err)
	}

	// Still below the safe-to-open threshold: the chamber must keep
	// running so the warm-up continues.
	running, err := simRig.Chamber().Running(ctx)
	if err != nil {
		t.Fatalf("Running: %v", err)
	}
	if !running {
		t.Fatal("chamber stopped while still cold")
	}
}

func TestSleepCtxReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rig.SleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("SleepCtx error = %v, want context.Canceled", err)
	}

	if err := rig.SleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("SleepCtx: %v", err)
	}
}
