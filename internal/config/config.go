package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ControlDir string `toml:"control_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// Hardware describes the bias providers and how to reach them.
type Hardware struct {
	// Providers maps a power-supply serial number to the number of output
	// channels it exposes. The device table must reference exactly these
	// channels, with no gaps and no duplicates.
	Providers map[string]int `toml:"providers"`
	// Simulated swaps the real transports for in-memory hardware so the
	// daemon can run without instruments attached.
	Simulated       bool    `toml:"simulated"`
	RampRateVPerSec float64 `toml:"ramp_rate_v_per_s"`
}

// Interlock contains the safety limits the setup controller enforces.
type Interlock struct {
	MaxOperatingTemperatureC  float64 `toml:"max_operating_temperature_c"`
	UnbiasedVoltageThresholdV float64 `toml:"unbiased_voltage_threshold_v"`
	RoomTemperatureC          float64 `toml:"room_temperature_c"`
	WarmThresholdC            float64 `toml:"warm_threshold_c"`
}

// Chamber contains climate chamber operating points.
type Chamber struct {
	StandbyTemperatureC float64 `toml:"standby_temperature_c"`
}

// Startup contains the bounded waits of the start choreography.
type Startup struct {
	HumidityThresholdPct float64 `toml:"humidity_threshold_pct"`
	HumidityTimeoutSec   int     `toml:"humidity_timeout_s"`
	CoolingTimeoutSec    int     `toml:"cooling_timeout_s"`
}

// Shutdown contains the bounded waits of the stop choreography.
type Shutdown struct {
	UnbiasTimeoutSec int `toml:"unbias_timeout_s"`
	WarmupTimeoutSec int `toml:"warmup_timeout_s"`
}

// Daemon contains reconciliation loop cadences.
type Daemon struct {
	PollIntervalSec     int `toml:"poll_interval_s"`
	WatchdogIntervalSec int `toml:"watchdog_interval_s"`
	SweepSettleSec      int `toml:"sweep_settle_s"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for coldrig.
//
// Configuration sections by subsystem:
//   - Paths: control/data/log directory layout
//   - Hardware: bias providers, ramp rate, simulation mode
//   - Interlock: temperature and voltage safety limits
//   - Chamber: climate chamber operating points
//   - Startup/Shutdown: bounded waits for start/stop choreography
//   - Daemon: reconciliation loop cadences
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Hardware      Hardware      `toml:"hardware"`
	Interlock     Interlock     `toml:"interlock"`
	Chamber       Chamber       `toml:"chamber"`
	Startup       Startup       `toml:"startup"`
	Shutdown      Shutdown      `toml:"shutdown"`
	Daemon        Daemon        `toml:"daemon"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/coldrig/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("coldrig.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ControlDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the unix socket path used for CLI<->daemon IPC.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "coldrigd.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
