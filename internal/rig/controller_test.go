package rig_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"coldrig/internal/hardware/sim"
	"coldrig/internal/rig"
)

var testLimits = rig.Limits{
	MaxOperatingTempC:  -18,
	UnbiasedThresholdV: 5,
	RoomTempC:          20,
	WarmThresholdC:     15,
	StandbyTempC:       -20,
}

func newTestController(t *testing.T, opts ...sim.Option) (*rig.Controller, *sim.Rig) {
	t.Helper()

	simRig := sim.NewRig(map[string]int{"PSU-A": 2}, opts...)
	table, err := rig.NewSlotTable([]rig.SlotBinding{
		{Slot: "det-0", Provider: "PSU-A", Channel: 0},
		{Slot: "det-1", Provider: "PSU-A", Channel: 1},
	}, map[string]int{"PSU-A": 2})
	if err != nil {
		t.Fatalf("build slot table: %v", err)
	}
	controller, err := rig.New(simRig.Chamber(), simRig.Sensor(), simRig.Providers(), table, testLimits,
		rig.WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("build controller: %v", err)
	}
	return controller, simRig
}

// bringCold starts the chamber and forces it cold and holding.
func bringCold(t *testing.T, controller *rig.Controller, simRig *sim.Rig) {
	t.Helper()
	ctx := context.Background()
	if err := simRig.Chamber().Start(ctx); err != nil {
		t.Fatalf("start chamber: %v", err)
	}
	if err := controller.SetTemperatureSetPoint(ctx, testLimits.StandbyTempC); err != nil {
		t.Fatalf("set standby set-point: %v", err)
	}
	simRig.SetTemperature(testLimits.StandbyTempC)
}

func TestControllerRejectsUnknownProvider(t *testing.T) {
	simRig := sim.NewRig(map[string]int{"PSU-A": 1})
	table, err := rig.NewSlotTable([]rig.SlotBinding{
		{Slot: "det-0", Provider: "PSU-B", Channel: 0},
	}, map[string]int{"PSU-B": 1})
	if err != nil {
		t.Fatalf("build slot table: %v", err)
	}
	_, err = rig.New(simRig.Chamber(), simRig.Sensor(), simRig.Providers(), table, testLimits)
	if !errors.Is(err, rig.ErrInvalidConfiguration) {
		t.Fatalf("New error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestBiasInterlock(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected while not running", func(t *testing.T) {
		controller, _ := newTestController(t)
		err := controller.SetBiasVoltage(ctx, "det-0", 60)
		if !errors.Is(err, rig.ErrInterlockViolation) {
			t.Fatalf("SetBiasVoltage error = %v, want ErrInterlockViolation", err)
		}
		state, err := controller.SlotState("det-0")
		if err != nil {
			t.Fatalf("SlotState: %v", err)
		}
		if state.SetVoltageV != 0 {
			t.Fatalf("set-point written despite rejection: %v V", state.SetVoltageV)
		}
	})

	t.Run("rejected while cooling", func(t *testing.T) {
		controller, simRig := newTestController(t, sim.WithThermalRate(0))
		if err := simRig.Chamber().Start(ctx); err != nil {
			t.Fatalf("start chamber: %v", err)
		}
		if err := controller.SetTemperatureSetPoint(ctx, testLimits.StandbyTempC); err != nil {
			t.Fatalf("set set-point: %v", err)
		}
		// Temperature is still at ambient; the rig is cooling-down.
		err := controller.SetBiasVoltage(ctx, "det-0", 60)
		if !errors.Is(err, rig.ErrInterlockViolation) {
			t.Fatalf("SetBiasVoltage error = %v, want ErrInterlockViolation", err)
		}
	})

	t.Run("allowed when cold and holding", func(t *testing.T) {
		controller, simRig := newTestController(t)
		bringCold(t, controller, simRig)
		if err := controller.SetBiasVoltage(ctx, "det-0", 60); err != nil {
			t.Fatalf("SetBiasVoltage: %v", err)
		}
		state, err := controller.SlotState("det-0")
		if err != nil {
			t.Fatalf("SlotState: %v", err)
		}
		if state.SetVoltageV != 60 {
			t.Fatalf("SetVoltageV = %v, want 60", state.SetVoltageV)
		}
	})

	t.Run("magnitude counts, not sign", func(t *testing.T) {
		controller, _ := newTestController(t)
		err := controller.SetBiasVoltage(ctx, "det-0", -60)
		if !errors.Is(err, rig.ErrInterlockViolation) {
			t.Fatalf("SetBiasVoltage(-60) error = %v, want ErrInterlockViolation", err)
		}
	})

	t.Run("below threshold allowed anywhere", func(t *testing.T) {
		controller, _ := newTestController(t)
		if err := controller.SetBiasVoltage(ctx, "det-0", 3); err != nil {
			t.Fatalf("SetBiasVoltage(3) while not running: %v", err)
		}
		if err := controller.SetBiasVoltage(ctx, "det-0", 0); err != nil {
			t.Fatalf("SetBiasVoltage(0): %v", err)
		}
	})

	t.Run("unknown slot", func(t *testing.T) {
		controller, _ := newTestController(t)
		err := controller.SetBiasVoltage(ctx, "det-9", 0)
		if !errors.Is(err, rig.ErrUnknownSlot) {
			t.Fatalf("SetBiasVoltage error = %v, want ErrUnknownSlot", err)
		}
	})
}

func TestSetPointInterlock(t *testing.T) {
	ctx := context.Background()

	t.Run("raise rejected while biased", func(t *testing.T) {
		controller, simRig := newTestController(t)
		bringCold(t, controller, simRig)
		if err := controller.EnableOutput(ctx, "det-0", true); err != nil {
			t.Fatalf("EnableOutput: %v", err)
		}
		if err := controller.SetBiasVoltage(ctx, "det-0", 11); err != nil {
			t.Fatalf("SetBiasVoltage: %v", err)
		}

		err := controller.SetTemperatureSetPoint(ctx, 0)
		if !errors.Is(err, rig.ErrInterlockViolation) {
			t.Fatalf("SetTemperatureSetPoint(0) error = %v, want ErrInterlockViolation", err)
		}

		setPoint, err := controller.TemperatureSetPoint(ctx)
		if err != nil {
			t.Fatalf("TemperatureSetPoint: %v", err)
		}
		if setPoint != testLimits.StandbyTempC {
			t.Fatalf("set-point changed despite rejection: %v C", setPoint)
		}
	})

	t.Run("raise allowed when unbiased", func(t *testing.T) {
		controller, simRig := newTestController(t)
		bringCold(t, controller, simRig)
		if err := controller.SetTemperatureSetPoint(ctx, testLimits.RoomTempC); err != nil {
			t.Fatalf("SetTemperatureSetPoint: %v", err)
		}
	})

	t.Run("lowering always allowed", func(t *testing.T) {
		controller, simRig := newTestController(t)
		bringCold(t, controller, simRig)
		if err := controller.EnableOutput(ctx, "det-0", true); err != nil {
			t.Fatalf("EnableOutput: %v", err)
		}
		if err := controller.SetBiasVoltage(ctx, "det-0", 11); err != nil {
			t.Fatalf("SetBiasVoltage: %v", err)
		}
		if err := controller.SetTemperatureSetPoint(ctx, -25); err != nil {
			t.Fatalf("SetTemperatureSetPoint(-25): %v", err)
		}
	})

	t.Run("dormant output does not count as biased", func(t *testing.T) {
		controller, simRig := newTestController(t)
		bringCold(t, controller, simRig)
		// Voltage programmed but output off: nothing reaches the detector.
		if err := controller.SetBiasVoltage(ctx, "det-0", 11); err != nil {
			t.Fatalf("SetBiasVoltage: %v", err)
		}
		if err := controller.SetTemperatureSetPoint(ctx, testLimits.RoomTempC); err != nil {
			t.Fatalf("SetTemperatureSetPoint: %v", err)
		}
	})
}

func TestMeasureSlot(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t)
	bringCold(t, controller, simRig)

	if err := controller.SetCurrentCompliance(ctx, "det-0", 1e-6); err != nil {
		t.Fatalf("SetCurrentCompliance: %v", err)
	}
	if err := controller.EnableOutput(ctx, "det-0", true); err != nil {
		t.Fatalf("EnableOutput: %v", err)
	}
	if err := controller.SetBiasVoltage(ctx, "det-0", 60); err != nil {
		t.Fatalf("SetBiasVoltage: %v", err)
	}

	reading, err := controller.MeasureSlot(ctx, "det-0")
	if err != nil {
		t.Fatalf("MeasureSlot: %v", err)
	}
	if reading.VoltageV != 60 {
		t.Fatalf("VoltageV = %v, want 60", reading.VoltageV)
	}
	if reading.CurrentA <= 0 {
		t.Fatalf("CurrentA = %v, want leakage > 0", reading.CurrentA)
	}
	if reading.StatusByte&0x01 == 0 {
		t.Fatalf("StatusByte = %#x, want output bit set", reading.StatusByte)
	}
	if reading.When.IsZero() {
		t.Fatal("reading timestamp is zero")
	}

	state, err := controller.SlotState("det-0")
	if err != nil {
		t.Fatalf("SlotState: %v", err)
	}
	if state.LastVoltageV != 60 || state.LastStatusByte != reading.StatusByte {
		t.Fatalf("cache not updated: %+v", state)
	}
}

func TestOvercurrentLatch(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t)
	bringCold(t, controller, simRig)

	if err := controller.SetCurrentCompliance(ctx, "det-0", 1e-6); err != nil {
		t.Fatalf("SetCurrentCompliance: %v", err)
	}
	if err := controller.EnableOutput(ctx, "det-0", true); err != nil {
		t.Fatalf("EnableOutput: %v", err)
	}
	if err := controller.SetBiasVoltage(ctx, "det-0", 60); err != nil {
		t.Fatalf("SetBiasVoltage: %v", err)
	}
	if err := simRig.TripOvercurrent("PSU-A", 0); err != nil {
		t.Fatalf("TripOvercurrent: %v", err)
	}

	tripped, err := controller.OvercurrentTripped(ctx, "det-0")
	if err != nil {
		t.Fatalf("OvercurrentTripped: %v", err)
	}
	if !tripped {
		t.Fatal("overcurrent flag not reported")
	}

	current, err := controller.MeasureBiasCurrent(ctx, "det-0")
	if err != nil {
		t.Fatalf("MeasureBiasCurrent: %v", err)
	}
	if current != 1e-6 {
		t.Fatalf("CurrentA = %v, want compliance 1e-6", current)
	}

	// Returning to zero clears the latch.
	if err := controller.SetBiasVoltage(ctx, "det-0", 0); err != nil {
		t.Fatalf("SetBiasVoltage(0): %v", err)
	}
	tripped, err = controller.OvercurrentTripped(ctx, "det-0")
	if err != nil {
		t.Fatalf("OvercurrentTripped: %v", err)
	}
	if tripped {
		t.Fatal("overcurrent latch survived a return to zero")
	}
}

func TestAnySlotBiased(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t)
	bringCold(t, controller, simRig)

	biased, err := controller.AnySlotBiased(ctx)
	if err != nil {
		t.Fatalf("AnySlotBiased: %v", err)
	}
	if biased {
		t.Fatal("fresh rig reported biased")
	}

	if err := controller.EnableOutput(ctx, "det-1", true); err != nil {
		t.Fatalf("EnableOutput: %v", err)
	}
	if err := controller.SetBiasVoltage(ctx, "det-1", 60); err != nil {
		t.Fatalf("SetBiasVoltage: %v", err)
	}

	biased, err = controller.AnySlotBiased(ctx)
	if err != nil {
		t.Fatalf("AnySlotBiased: %v", err)
	}
	if !biased {
		t.Fatal("biased slot not reported")
	}
}

func TestStatusReflectsExternalDrift(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t, sim.WithThermalRate(0))
	bringCold(t, controller, simRig)

	if err := controller.EnableOutput(ctx, "det-0", true); err != nil {
		t.Fatalf("EnableOutput: %v", err)
	}
	if err := controller.SetBiasVoltage(ctx, "det-0", 60); err != nil {
		t.Fatalf("SetBiasVoltage: %v", err)
	}

	status, err := controller.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != rig.StatusReadyToOperate {
		t.Fatalf("Status = %s, want %s", status, rig.StatusReadyToOperate)
	}

	// A chamber fault warms the rig while detectors stay biased. The
	// controller never caused this, but must report it.
	simRig.SetTemperature(0)
	status, err = controller.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != rig.StatusError {
		t.Fatalf("Status = %s, want %s", status, rig.StatusError)
	}
}

func TestAmbientReads(t *testing.T) {
	ctx := context.Background()
	controller, simRig := newTestController(t, sim.WithThermalRate(0), sim.WithDehumidifyRate(0),
		sim.WithAmbient(-19.5, 7.25))

	temperature, err := controller.Temperature(ctx)
	if err != nil {
		t.Fatalf("Temperature: %v", err)
	}
	if math.Abs(temperature-(-19.5)) > 1e-9 {
		t.Fatalf("Temperature = %v, want -19.5", temperature)
	}
	humidity, err := controller.Humidity(ctx)
	if err != nil {
		t.Fatalf("Humidity: %v", err)
	}
	if math.Abs(humidity-7.25) > 1e-9 {
		t.Fatalf("Humidity = %v, want 7.25", humidity)
	}
	_ = simRig
}
