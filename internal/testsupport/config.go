package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"coldrig/internal/config"
)

// DefaultDevicesCSV is the device table NewConfig writes to the control
// directory. Its bindings match MustController.
const DefaultDevicesCSV = `slot,provider,channel,compliance_a,standby_v,sweep_start_v,sweep_stop_v,sweep_points,sweep_interval_s,telemetry_interval_s
det-0,PSU-A,0,0.000001,60,0,100,3,3600,3600
det-1,PSU-A,1,0.000001,60,0,100,3,3600,3600
`

// DefaultChamberCSV is the chamber settings file NewConfig writes.
const DefaultChamberCSV = "standby_temperature_c,telemetry_interval_s\n-20,3600\n"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t          testing.TB
	cfg        *config.Config
	devicesCSV string
	chamberCSV string
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields, applies any provided options, creates the
// directory tree, and writes the control files.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ControlDir = filepath.Join(base, "control")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Hardware.Providers = map[string]int{"PSU-A": 2}
	cfgVal.Hardware.RampRateVPerSec = 10

	builder := &configBuilder{
		t:          t,
		cfg:        &cfgVal,
		devicesCSV: DefaultDevicesCSV,
		chamberCSV: DefaultChamberCSV,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for name, content := range map[string]string{
		"devices.csv": builder.devicesCSV,
		"chamber.csv": builder.chamberCSV,
	} {
		if err := os.WriteFile(filepath.Join(cfgVal.Paths.ControlDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return builder.cfg
}

// WithProviders overrides the bias provider inventory.
func WithProviders(providers map[string]int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Hardware.Providers = providers
	}
}

// WithNtfyTopic sets the notification topic on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithControlFiles overrides the device table and chamber settings written to
// the control directory.
func WithControlFiles(devicesCSV, chamberCSV string) ConfigOption {
	return func(b *configBuilder) {
		b.devicesCSV = devicesCSV
		b.chamberCSV = chamberCSV
	}
}
