package sim

import (
	"context"
	"testing"
)

func TestChannelOvercurrentLatchClearsAtZero(t *testing.T) {
	rig := NewRig(map[string]int{"139": 2})
	if err := rig.TripOvercurrent("139", 1); err != nil {
		t.Fatalf("trip overcurrent: %v", err)
	}

	p, err := rig.Provider("139")
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	ch, err := p.Channel(1)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}

	ctx := context.Background()
	tripped, err := ch.OvercurrentTripped(ctx)
	if err != nil || !tripped {
		t.Fatalf("expected latched overcurrent, got tripped=%v err=%v", tripped, err)
	}

	if err := ch.SetVoltage(ctx, 0); err != nil {
		t.Fatalf("set voltage: %v", err)
	}
	tripped, err = ch.OvercurrentTripped(ctx)
	if err != nil || tripped {
		t.Fatalf("expected latch cleared at zero volts, got tripped=%v err=%v", tripped, err)
	}
}

func TestChannelMeasuresZeroWithOutputOff(t *testing.T) {
	rig := NewRig(map[string]int{"139": 1})
	p, _ := rig.Provider("139")
	ch, _ := p.Channel(0)

	ctx := context.Background()
	if err := ch.SetVoltage(ctx, 100); err != nil {
		t.Fatalf("set voltage: %v", err)
	}
	v, err := ch.MeasureVoltage(ctx)
	if err != nil {
		t.Fatalf("measure voltage: %v", err)
	}
	if v != 0 {
		t.Fatalf("output disabled, measured %v V, want 0", v)
	}

	if err := ch.SetOutput(ctx, true); err != nil {
		t.Fatalf("enable output: %v", err)
	}
	v, err = ch.MeasureVoltage(ctx)
	if err != nil {
		t.Fatalf("measure voltage: %v", err)
	}
	if v != 100 {
		t.Fatalf("measured %v V, want 100", v)
	}
}

func TestInstantResponseTracksSetPoint(t *testing.T) {
	rig := NewRig(map[string]int{"139": 1}, WithInstantResponse(), WithAmbient(20, 45))
	chamber := rig.Chamber()
	sensor := rig.Sensor()
	ctx := context.Background()

	if err := chamber.Start(ctx); err != nil {
		t.Fatalf("start chamber: %v", err)
	}
	if err := chamber.SetSetPoint(ctx, -20); err != nil {
		t.Fatalf("set set-point: %v", err)
	}
	temp, err := chamber.Temperature(ctx)
	if err != nil {
		t.Fatalf("temperature: %v", err)
	}
	if temp != -20 {
		t.Fatalf("instant rig temperature = %v, want -20", temp)
	}

	if err := chamber.SetDryer(ctx, true); err != nil {
		t.Fatalf("dryer: %v", err)
	}
	if err := chamber.SetCompressedAir(ctx, true); err != nil {
		t.Fatalf("compressed air: %v", err)
	}
	ambient, err := sensor.Read(ctx)
	if err != nil {
		t.Fatalf("sensor read: %v", err)
	}
	if ambient.HumidityPct != dryHumidityPct {
		t.Fatalf("instant rig humidity = %v, want %v", ambient.HumidityPct, dryHumidityPct)
	}
}

func TestDehumidifyRateZeroHoldsHumidity(t *testing.T) {
	rig := NewRig(map[string]int{"139": 1}, WithDehumidifyRate(0), WithAmbient(20, 45))
	chamber := rig.Chamber()
	ctx := context.Background()
	if err := chamber.SetDryer(ctx, true); err != nil {
		t.Fatalf("dryer: %v", err)
	}
	if err := chamber.SetCompressedAir(ctx, true); err != nil {
		t.Fatalf("compressed air: %v", err)
	}
	ambient, err := rig.Sensor().Read(ctx)
	if err != nil {
		t.Fatalf("sensor read: %v", err)
	}
	if ambient.HumidityPct != 45 {
		t.Fatalf("humidity moved with dehumidify rate 0: %v", ambient.HumidityPct)
	}
}
