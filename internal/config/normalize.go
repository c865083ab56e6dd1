package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeHardware()
	c.normalizeDaemon()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ControlDir) == "" {
		c.Paths.ControlDir = defaultControlDir
	}
	if c.Paths.ControlDir, err = expandPath(c.Paths.ControlDir); err != nil {
		return fmt.Errorf("paths.control_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeHardware() {
	providers := make(map[string]int, len(c.Hardware.Providers))
	for serial, channels := range c.Hardware.Providers {
		trimmed := strings.TrimSpace(serial)
		if trimmed == "" {
			continue
		}
		providers[trimmed] = channels
	}
	c.Hardware.Providers = providers
	if c.Hardware.RampRateVPerSec <= 0 {
		c.Hardware.RampRateVPerSec = defaultRampRateVPerSec
	}
}

func (c *Config) normalizeDaemon() {
	if c.Daemon.PollIntervalSec <= 0 {
		c.Daemon.PollIntervalSec = defaultPollIntervalSec
	}
	if c.Daemon.WatchdogIntervalSec <= 0 {
		c.Daemon.WatchdogIntervalSec = defaultWatchdogIntervalSec
	}
	if c.Daemon.SweepSettleSec <= 0 {
		c.Daemon.SweepSettleSec = defaultSweepSettleSec
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
