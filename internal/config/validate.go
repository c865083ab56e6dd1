package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHardware(); err != nil {
		return err
	}
	if err := c.validateInterlock(); err != nil {
		return err
	}
	if err := c.validateChoreography(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHardware() error {
	if len(c.Hardware.Providers) == 0 {
		return errors.New("hardware.providers must list at least one power supply serial")
	}
	for serial, channels := range c.Hardware.Providers {
		if channels <= 0 {
			return fmt.Errorf("hardware.providers[%q] must expose a positive channel count", serial)
		}
	}
	return nil
}

func (c *Config) validateInterlock() error {
	if c.Interlock.UnbiasedVoltageThresholdV <= 0 {
		return errors.New("interlock.unbiased_voltage_threshold_v must be positive")
	}
	if c.Interlock.RoomTemperatureC <= c.Interlock.MaxOperatingTemperatureC {
		return errors.New("interlock.room_temperature_c must exceed interlock.max_operating_temperature_c")
	}
	if c.Interlock.WarmThresholdC <= c.Interlock.MaxOperatingTemperatureC {
		return errors.New("interlock.warm_threshold_c must exceed interlock.max_operating_temperature_c")
	}
	if c.Chamber.StandbyTemperatureC > c.Interlock.MaxOperatingTemperatureC {
		return errors.New("chamber.standby_temperature_c must not exceed interlock.max_operating_temperature_c")
	}
	return nil
}

func (c *Config) validateChoreography() error {
	if err := ensurePositiveMap(map[string]int{
		"startup.humidity_timeout_s": c.Startup.HumidityTimeoutSec,
		"startup.cooling_timeout_s":  c.Startup.CoolingTimeoutSec,
		"shutdown.unbias_timeout_s":  c.Shutdown.UnbiasTimeoutSec,
		"shutdown.warmup_timeout_s":  c.Shutdown.WarmupTimeoutSec,
	}); err != nil {
		return err
	}
	if c.Startup.HumidityThresholdPct <= 0 || c.Startup.HumidityThresholdPct >= 100 {
		return errors.New("startup.humidity_threshold_pct must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	return ensurePositiveMap(map[string]int{
		"daemon.poll_interval_s":        c.Daemon.PollIntervalSec,
		"daemon.watchdog_interval_s":    c.Daemon.WatchdogIntervalSec,
		"daemon.sweep_settle_s":         c.Daemon.SweepSettleSec,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
