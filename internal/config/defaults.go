package config

const (
	defaultControlDir = "~/.local/share/coldrig/control"
	defaultDataDir    = "~/.local/share/coldrig/data"
	defaultLogDir     = "~/.local/share/coldrig/logs"

	defaultRampRateVPerSec = 5.0

	defaultMaxOperatingTemperatureC  = -18.0
	defaultUnbiasedVoltageThresholdV = 5.0
	defaultRoomTemperatureC          = 20.0
	defaultWarmThresholdC            = 15.0

	defaultStandbyTemperatureC = -20.0

	defaultHumidityThresholdPct = 10.0
	defaultHumidityTimeoutSec   = 1800
	defaultCoolingTimeoutSec    = 7200

	defaultUnbiasTimeoutSec = 600
	defaultWarmupTimeoutSec = 7200

	defaultPollIntervalSec     = 1
	defaultWatchdogIntervalSec = 30
	defaultSweepSettleSec      = 1

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ControlDir: defaultControlDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Hardware: Hardware{
			Providers:       map[string]int{},
			RampRateVPerSec: defaultRampRateVPerSec,
		},
		Interlock: Interlock{
			MaxOperatingTemperatureC:  defaultMaxOperatingTemperatureC,
			UnbiasedVoltageThresholdV: defaultUnbiasedVoltageThresholdV,
			RoomTemperatureC:          defaultRoomTemperatureC,
			WarmThresholdC:            defaultWarmThresholdC,
		},
		Chamber: Chamber{
			StandbyTemperatureC: defaultStandbyTemperatureC,
		},
		Startup: Startup{
			HumidityThresholdPct: defaultHumidityThresholdPct,
			HumidityTimeoutSec:   defaultHumidityTimeoutSec,
			CoolingTimeoutSec:    defaultCoolingTimeoutSec,
		},
		Shutdown: Shutdown{
			UnbiasTimeoutSec: defaultUnbiasTimeoutSec,
			WarmupTimeoutSec: defaultWarmupTimeoutSec,
		},
		Daemon: Daemon{
			PollIntervalSec:     defaultPollIntervalSec,
			WatchdogIntervalSec: defaultWatchdogIntervalSec,
			SweepSettleSec:      defaultSweepSettleSec,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
