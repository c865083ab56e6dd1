package rig

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"coldrig/internal/hardware"
)

// Limits are the safety constants the controller enforces.
type Limits struct {
	// MaxOperatingTempC is the warmest temperature at which detectors may
	// be biased above the threshold.
	MaxOperatingTempC float64
	// UnbiasedThresholdV: bias magnitudes at or below this are considered
	// harmless at any temperature.
	UnbiasedThresholdV float64
	// RoomTempC is the set-point used while opening the chamber.
	RoomTempC float64
	// WarmThresholdC is the temperature at which the chamber is considered
	// safe to open after a stop.
	WarmThresholdC float64
	// StandbyTempC is the cold operating set-point reached during start.
	StandbyTempC float64
}

// Controller aggregates the rig hardware behind a thread-safe surface and
// owns the interlock. Set-point writes and status derivation are serialized
// against each other; per-slot operations are independent.
type Controller struct {
	chamber hardware.ClimateController
	sensor  hardware.AmbientSensor
	table   *SlotTable
	slots   map[string]*slot
	limits  Limits

	// mu serializes the check-then-write windows of set-point and bias
	// mutations against status derivation.
	mu sync.Mutex

	pollInterval time.Duration
}

// Option configures optional Controller behavior.
type Option func(*Controller)

// WithPollInterval overrides the fixed short interval used by the bounded
// waits in Start and Stop. Intended for tests.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New resolves the slot table against the given providers and builds the
// controller. Table defects and unresolvable channels return
// ErrInvalidConfiguration.
func New(chamber hardware.ClimateController, sensor hardware.AmbientSensor, providers []hardware.BiasProvider, table *SlotTable, limits Limits, opts ...Option) (*Controller, error) {
	if chamber == nil || sensor == nil || table == nil {
		return nil, Wrap(ErrInvalidConfiguration, "controller", "chamber, sensor, and slot table are required", nil)
	}

	bySerial := make(map[string]hardware.BiasProvider, len(providers))
	for _, p := range providers {
		bySerial[p.Serial()] = p
	}

	slots := make(map[string]*slot, table.Len())
	for _, name := range table.Slots() {
		binding, _ := table.Lookup(name)
		provider, ok := bySerial[binding.Provider]
		if !ok {
			return nil, Wrap(ErrInvalidConfiguration, "controller",
				fmt.Sprintf("no provider connected for serial %q", binding.Provider), nil)
		}
		channel, err := provider.Channel(binding.Channel)
		if err != nil {
			return nil, Wrap(ErrInvalidConfiguration, "controller",
				fmt.Sprintf("resolve slot %q", name), err)
		}
		slots[name] = &slot{
			binding: binding,
			channel: channel,
			state:   SlotState{Name: name, Provider: binding.Provider, Channel: binding.Channel},
		}
	}

	c := &Controller{
		chamber:      chamber,
		sensor:       sensor,
		table:        table,
		slots:        slots,
		limits:       limits,
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Limits returns the safety constants in effect.
func (c *Controller) Limits() Limits { return c.limits }

// Slots returns the managed slot names in table order.
func (c *Controller) Slots() []string { return c.table.Slots() }

// Temperature reads the ambient sensor. Single-shot, never cached.
func (c *Controller) Temperature(ctx context.Context) (float64, error) {
	ambient, err := c.sensor.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read temperature: %w", err)
	}
	return ambient.TemperatureC, nil
}

// Humidity reads the ambient sensor. Single-shot, never cached.
func (c *Controller) Humidity(ctx context.Context) (float64, error) {
	ambient, err := c.sensor.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read humidity: %w", err)
	}
	return ambient.HumidityPct, nil
}

// TemperatureSetPoint returns the chamber's current set-point.
func (c *Controller) TemperatureSetPoint(ctx context.Context) (float64, error) {
	return c.chamber.SetPoint(ctx)
}

// SetTemperatureSetPoint changes the chamber set-point. Raising it above the
// maximum operating temperature while any slot is biased above threshold is
// rejected with ErrInterlockViolation before any hardware write.
func (c *Controller) SetTemperatureSetPoint(ctx context.Context, celsius float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if celsius > c.limits.MaxOperatingTempC {
		biased, err := c.anySlotBiased(ctx)
		if err != nil {
			return err
		}
		if biased {
			return Wrap(ErrInterlockViolation, "set-point",
				fmt.Sprintf("cannot raise set-point to %.1f C while detectors are biased", celsius), nil)
		}
	}
	if err := c.chamber.SetSetPoint(ctx, celsius); err != nil {
		return fmt.Errorf("set chamber set-point: %w", err)
	}
	return nil
}

// SetBiasVoltage sets a slot's bias voltage. Magnitudes above the unbiased
// threshold require StatusReadyToOperate and a cold chamber; the request is
// rejected with ErrInterlockViolation before any hardware write otherwise.
func (c *Controller) SetBiasVoltage(ctx context.Context, slotName string, volts float64) error {
	s, err := c.slot(slotName)
	if err != nil {
		return err
	}

	if math.Abs(volts) > c.limits.UnbiasedThresholdV {
		c.mu.Lock()
		conditions, err := c.conditions(ctx)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		status := DeriveStatus(conditions, c.limits.MaxOperatingTempC)
		if status != StatusReadyToOperate || conditions.TemperatureC > c.limits.MaxOperatingTempC {
			c.mu.Unlock()
			return Wrap(ErrInterlockViolation, "bias",
				fmt.Sprintf("slot %s: %.1f V requires status %s (have %s at %.1f C)",
					slotName, volts, StatusReadyToOperate, status, conditions.TemperatureC), nil)
		}
		defer c.mu.Unlock()
		return s.setVoltage(ctx, volts)
	}

	return s.setVoltage(ctx, volts)
}

// SetCurrentCompliance sets a slot's current compliance.
func (c *Controller) SetCurrentCompliance(ctx context.Context, slotName string, amperes float64) error {
	s, err := c.slot(slotName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.channel.SetCurrentCompliance(ctx, amperes); err != nil {
		return fmt.Errorf("slot %s: set compliance: %w", slotName, err)
	}
	s.state.ComplianceA = amperes
	return nil
}

// SetRampRate sets a slot's voltage ramp rate in both directions.
func (c *Controller) SetRampRate(ctx context.Context, slotName string, voltsPerSecond float64) error {
	s, err := c.slot(slotName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.channel.SetRampRate(ctx, voltsPerSecond); err != nil {
		return fmt.Errorf("slot %s: set ramp rate: %w", slotName, err)
	}
	return nil
}

// EnableOutput switches a slot's output stage on or off.
func (c *Controller) EnableOutput(ctx context.Context, slotName string, enabled bool) error {
	s, err := c.slot(slotName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.channel.SetOutput(ctx, enabled); err != nil {
		return fmt.Errorf("slot %s: set output: %w", slotName, err)
	}
	return nil
}

// OvercurrentTripped reports whether a slot's channel latched overcurrent,
// updating the cached flag.
func (c *Controller) OvercurrentTripped(ctx context.Context, slotName string) (bool, error) {
	s, err := c.slot(slotName)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tripped, err := s.channel.OvercurrentTripped(ctx)
	if err != nil {
		return false, fmt.Errorf("slot %s: read overcurrent flag: %w", slotName, err)
	}
	s.state.OvercurrentLatched = tripped
	return tripped, nil
}

// MeasureBiasVoltage measures a slot's bias voltage, updating the cache.
func (c *Controller) MeasureBiasVoltage(ctx context.Context, slotName string) (float64, error) {
	s, err := c.slot(slotName)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	volts, err := s.channel.MeasureVoltage(ctx)
	if err != nil {
		return 0, fmt.Errorf("slot %s: measure voltage: %w", slotName, err)
	}
	s.state.LastVoltageV = volts
	s.state.LastMeasuredAt = time.Now()
	return volts, nil
}

// MeasureBiasCurrent measures a slot's bias current, updating the cache.
func (c *Controller) MeasureBiasCurrent(ctx context.Context, slotName string) (float64, error) {
	s, err := c.slot(slotName)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	amps, err := s.channel.MeasureCurrent(ctx)
	if err != nil {
		return 0, fmt.Errorf("slot %s: measure current: %w", slotName, err)
	}
	s.state.LastCurrentA = amps
	s.state.LastMeasuredAt = time.Now()
	return amps, nil
}

// MeasureSlot takes one telemetry reading (voltage, current, status byte)
// and updates the slot cache.
func (c *Controller) MeasureSlot(ctx context.Context, slotName string) (Reading, error) {
	s, err := c.slot(slotName)
	if err != nil {
		return Reading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	volts, err := s.channel.MeasureVoltage(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("slot %s: measure voltage: %w", slotName, err)
	}
	amps, err := s.channel.MeasureCurrent(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("slot %s: measure current: %w", slotName, err)
	}
	status, err := s.channel.StatusByte(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("slot %s: read status byte: %w", slotName, err)
	}

	reading := Reading{When: time.Now(), VoltageV: volts, CurrentA: amps, StatusByte: status}
	s.state.LastVoltageV = volts
	s.state.LastCurrentA = amps
	s.state.LastStatusByte = status
	s.state.LastMeasuredAt = reading.When
	return reading, nil
}

// SlotState returns a copy of a slot's cached state.
func (c *Controller) SlotState(slotName string) (SlotState, error) {
	s, err := c.slot(slotName)
	if err != nil {
		return SlotState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// AnySlotBiased reports whether any slot currently measures a bias magnitude
// above the unbiased threshold.
func (c *Controller) AnySlotBiased(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anySlotBiased(ctx)
}

// Status derives the rig status from live readings.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conditions, err := c.conditions(ctx)
	if err != nil {
		return "", err
	}
	return DeriveStatus(conditions, c.limits.MaxOperatingTempC), nil
}

// Conditions gathers the live snapshot the status machine derives from.
func (c *Controller) Conditions(ctx context.Context) (Conditions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conditions(ctx)
}

func (c *Controller) conditions(ctx context.Context) (Conditions, error) {
	running, err := c.chamber.Running(ctx)
	if err != nil {
		return Conditions{}, fmt.Errorf("read chamber state: %w", err)
	}
	setPoint, err := c.chamber.SetPoint(ctx)
	if err != nil {
		return Conditions{}, fmt.Errorf("read chamber set-point: %w", err)
	}
	ambient, err := c.sensor.Read(ctx)
	if err != nil {
		return Conditions{}, fmt.Errorf("read sensor: %w", err)
	}
	biased, err := c.anySlotBiased(ctx)
	if err != nil {
		return Conditions{}, err
	}
	return Conditions{
		ChamberRunning: running,
		TemperatureC:   ambient.TemperatureC,
		SetPointC:      setPoint,
		AnySlotBiased:  biased,
	}, nil
}

func (c *Controller) anySlotBiased(ctx context.Context) (bool, error) {
	for _, name := range c.table.Slots() {
		s := c.slots[name]
		volts, err := s.channel.MeasureVoltage(ctx)
		if err != nil {
			return false, fmt.Errorf("slot %s: measure voltage: %w", name, err)
		}
		if math.Abs(volts) > c.limits.UnbiasedThresholdV {
			return true, nil
		}
	}
	return false, nil
}

func (c *Controller) slot(name string) (*slot, error) {
	s, ok := c.slots[name]
	if !ok {
		return nil, Wrap(ErrUnknownSlot, "slot", name, nil)
	}
	return s, nil
}

func (s *slot) setVoltage(ctx context.Context, volts float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.channel.SetVoltage(ctx, volts); err != nil {
		return fmt.Errorf("slot %s: set voltage: %w", s.binding.Slot, err)
	}
	s.state.SetVoltageV = volts
	return nil
}
