package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"coldrig/internal/hardware"
)

const dryHumidityPct = 3.0

// Rig is the shared state behind the simulated providers, chamber, and
// sensor. All methods are safe for concurrent use.
type Rig struct {
	mu sync.Mutex

	providers map[string]*provider

	temperatureC float64
	humidityPct  float64
	setPointC    float64
	running      bool
	dryer        bool
	compressed   bool

	thermalRate    float64 // deg C per second toward set-point
	dehumidifyRate float64 // pct per second toward dry while dryer+air on
	lastAdvance    time.Time
}

// Option configures rig construction.
type Option func(*Rig)

// WithThermalRate sets how fast the chamber temperature approaches the
// set-point while the chamber is running. Zero freezes the temperature.
func WithThermalRate(degPerSec float64) Option {
	return func(r *Rig) { r.thermalRate = degPerSec }
}

// WithDehumidifyRate sets how fast humidity drops while the dryer and
// compressed air are on. Zero makes the dryer ineffective.
func WithDehumidifyRate(pctPerSec float64) Option {
	return func(r *Rig) { r.dehumidifyRate = pctPerSec }
}

// WithInstantResponse makes temperature and humidity track their targets
// immediately, which keeps choreography tests free of wall-clock waits.
func WithInstantResponse() Option {
	return func(r *Rig) {
		r.thermalRate = math.Inf(1)
		r.dehumidifyRate = math.Inf(1)
	}
}

// WithAmbient sets the initial temperature and humidity.
func WithAmbient(temperatureC, humidityPct float64) Option {
	return func(r *Rig) {
		r.temperatureC = temperatureC
		r.humidityPct = humidityPct
	}
}

// NewRig builds a rig exposing the given providers (serial -> channel count).
func NewRig(providers map[string]int, opts ...Option) *Rig {
	r := &Rig{
		providers:      make(map[string]*provider, len(providers)),
		temperatureC:   20,
		humidityPct:    45,
		setPointC:      20,
		thermalRate:    1,
		dehumidifyRate: 5,
		lastAdvance:    time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for serial, count := range providers {
		p := &provider{serial: serial, channels: make([]*channel, count)}
		for i := range p.channels {
			p.channels[i] = &channel{rig: r}
		}
		r.providers[serial] = p
	}
	return r
}

// Provider returns the simulated supply with the given serial.
func (r *Rig) Provider(serial string) (hardware.BiasProvider, error) {
	p, ok := r.providers[serial]
	if !ok {
		return nil, fmt.Errorf("sim: unknown provider serial %q", serial)
	}
	return p, nil
}

// Providers returns every simulated supply, ordered by serial.
func (r *Rig) Providers() []hardware.BiasProvider {
	serials := make([]string, 0, len(r.providers))
	for serial := range r.providers {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	out := make([]hardware.BiasProvider, 0, len(serials))
	for _, serial := range serials {
		out = append(out, r.providers[serial])
	}
	return out
}

// Chamber returns the simulated climate controller.
func (r *Rig) Chamber() hardware.ClimateController { return &chamber{rig: r} }

// Sensor returns the simulated ambient sensor.
func (r *Rig) Sensor() hardware.AmbientSensor { return &sensor{rig: r} }

// SetTemperature forces the chamber temperature, bypassing the thermal model.
func (r *Rig) SetTemperature(celsius float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanceLocked(time.Now())
	r.temperatureC = celsius
}

// SetHumidity forces the relative humidity.
func (r *Rig) SetHumidity(pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanceLocked(time.Now())
	r.humidityPct = pct
}

// TripOvercurrent latches the overcurrent flag on a channel, as a real supply
// does when a detector draws past compliance.
func (r *Rig) TripOvercurrent(serial string, channelNumber int) error {
	p, ok := r.providers[serial]
	if !ok {
		return fmt.Errorf("sim: unknown provider serial %q", serial)
	}
	ch, err := p.Channel(channelNumber)
	if err != nil {
		return err
	}
	c := ch.(*channel)
	r.mu.Lock()
	defer r.mu.Unlock()
	c.overcurrent = true
	return nil
}

// advanceLocked moves the thermal and humidity state forward to now.
func (r *Rig) advanceLocked(now time.Time) {
	dt := now.Sub(r.lastAdvance).Seconds()
	r.lastAdvance = now
	if dt <= 0 {
		return
	}

	if r.running {
		r.temperatureC = approach(r.temperatureC, r.setPointC, r.thermalRate*dt)
	}
	if r.dryer && r.compressed {
		r.humidityPct = approach(r.humidityPct, dryHumidityPct, r.dehumidifyRate*dt)
	}
}

func approach(current, target, step float64) float64 {
	if math.IsInf(step, 1) {
		return target
	}
	diff := target - current
	if math.Abs(diff) <= step {
		return target
	}
	if diff > 0 {
		return current + step
	}
	return current - step
}

type provider struct {
	serial   string
	channels []*channel
}

func (p *provider) Serial() string { return p.serial }

func (p *provider) ChannelCount() int { return len(p.channels) }

func (p *provider) Channel(number int) (hardware.BiasChannel, error) {
	if number < 0 || number >= len(p.channels) {
		return nil, fmt.Errorf("sim: provider %s has no channel %d", p.serial, number)
	}
	return p.channels[number], nil
}

// channel models one supply output: the voltage set-point applies instantly,
// leakage current scales with voltage, and a latched overcurrent pins the
// measured current at compliance until the channel returns to zero.
type channel struct {
	rig *Rig

	voltageSet  float64
	complianceA float64
	rampRate    float64
	output      bool
	overcurrent bool
}

func (c *channel) SetVoltage(_ context.Context, volts float64) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.voltageSet = volts
	if volts == 0 {
		c.overcurrent = false
	}
	return nil
}

func (c *channel) SetCurrentCompliance(_ context.Context, amperes float64) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.complianceA = amperes
	return nil
}

func (c *channel) SetRampRate(_ context.Context, voltsPerSecond float64) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.rampRate = voltsPerSecond
	return nil
}

func (c *channel) SetOutput(_ context.Context, enabled bool) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.output = enabled
	return nil
}

func (c *channel) MeasureVoltage(_ context.Context) (float64, error) {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	if !c.output {
		return 0, nil
	}
	return c.voltageSet, nil
}

func (c *channel) MeasureCurrent(_ context.Context) (float64, error) {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	if c.overcurrent {
		return c.complianceA, nil
	}
	if !c.output {
		return 0, nil
	}
	// 1 Gohm equivalent leakage.
	return c.voltageSet / 1e9, nil
}

func (c *channel) StatusByte(_ context.Context) (byte, error) {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	var status byte
	if c.output {
		status |= 0x01
	}
	if c.overcurrent {
		status |= 0x08
	}
	return status, nil
}

func (c *channel) OvercurrentTripped(_ context.Context) (bool, error) {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	return c.overcurrent, nil
}

type chamber struct {
	rig *Rig
}

func (c *chamber) SetPoint(context.Context) (float64, error) {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	return c.rig.setPointC, nil
}

func (c *chamber) SetSetPoint(_ context.Context, celsius float64) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.rig.advanceLocked(time.Now())
	c.rig.setPointC = celsius
	return nil
}

func (c *chamber) Temperature(context.Context) (float64, error) {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.rig.advanceLocked(time.Now())
	return c.rig.temperatureC, nil
}

func (c *chamber) Running(context.Context) (bool, error) {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	return c.rig.running, nil
}

func (c *chamber) Start(context.Context) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.rig.advanceLocked(time.Now())
	c.rig.running = true
	return nil
}

func (c *chamber) Stop(context.Context) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.rig.advanceLocked(time.Now())
	c.rig.running = false
	return nil
}

func (c *chamber) SetDryer(_ context.Context, enabled bool) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.rig.advanceLocked(time.Now())
	c.rig.dryer = enabled
	return nil
}

func (c *chamber) SetCompressedAir(_ context.Context, enabled bool) error {
	c.rig.mu.Lock()
	defer c.rig.mu.Unlock()
	c.rig.advanceLocked(time.Now())
	c.rig.compressed = enabled
	return nil
}

type sensor struct {
	rig *Rig
}

func (s *sensor) Read(context.Context) (hardware.Ambient, error) {
	s.rig.mu.Lock()
	defer s.rig.mu.Unlock()
	s.rig.advanceLocked(time.Now())
	return hardware.Ambient{
		TemperatureC: s.rig.temperatureC,
		HumidityPct:  s.rig.humidityPct,
	}, nil
}
