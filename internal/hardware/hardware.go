package hardware

import "context"

// BiasChannel is a single power-supply output driving one detector slot.
// Implementations own the wire protocol; voltages are set-points, currents
// are measurements, and the status byte is the instrument's raw channel
// status word.
type BiasChannel interface {
	SetVoltage(ctx context.Context, volts float64) error
	SetCurrentCompliance(ctx context.Context, amperes float64) error
	SetRampRate(ctx context.Context, voltsPerSecond float64) error
	SetOutput(ctx context.Context, enabled bool) error
	MeasureVoltage(ctx context.Context) (float64, error)
	MeasureCurrent(ctx context.Context) (float64, error)
	StatusByte(ctx context.Context) (byte, error)
	// OvercurrentTripped reports whether the channel latched an overcurrent
	// condition. The latch clears when the channel is brought back to zero.
	OvercurrentTripped(ctx context.Context) (bool, error)
}

// BiasProvider is one power supply exposing a fixed set of numbered output
// channels.
type BiasProvider interface {
	Serial() string
	ChannelCount() int
	Channel(number int) (BiasChannel, error)
}

// ClimateController drives the climate chamber.
type ClimateController interface {
	SetPoint(ctx context.Context) (float64, error)
	SetSetPoint(ctx context.Context, celsius float64) error
	Temperature(ctx context.Context) (float64, error)
	Running(ctx context.Context) (bool, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SetDryer(ctx context.Context, enabled bool) error
	SetCompressedAir(ctx context.Context, enabled bool) error
}

// Ambient is a single-shot sensor reading.
type Ambient struct {
	TemperatureC float64
	HumidityPct  float64
}

// AmbientSensor reads temperature and relative humidity inside the chamber.
type AmbientSensor interface {
	Read(ctx context.Context) (Ambient, error)
}
