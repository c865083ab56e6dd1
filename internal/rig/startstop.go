package rig

import (
	"context"
	"fmt"
	"time"
)

// StartOptions bound the waits of the start choreography.
type StartOptions struct {
	// HumidityThresholdPct is the relative humidity that must be reached
	// before cooling begins.
	HumidityThresholdPct float64
	// HumidityTimeout bounds the dry-out wait.
	HumidityTimeout time.Duration
	// CoolingTimeout bounds the cool-down wait.
	CoolingTimeout time.Duration
}

// StopOptions bound the waits of the stop choreography.
type StopOptions struct {
	// UnbiasTimeout bounds the wait for every slot to ramp to zero.
	UnbiasTimeout time.Duration
	// WarmupTimeout bounds the wait for the chamber to warm past the
	// safe-to-open threshold.
	WarmupTimeout time.Duration
}

// Start brings the rig from not-running to ready-to-operate: dry the chamber
// at room temperature, then cool to the standby set-point. Only valid from
// StatusNotRunning. On a timeout the chamber is left running cold and safe;
// nothing is rolled back.
func (c *Controller) Start(ctx context.Context, opts StartOptions) error {
	status, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if status != StatusNotRunning {
		return Wrap(ErrInvalidTransition, "start",
			fmt.Sprintf("requires status %s, have %s", StatusNotRunning, status), nil)
	}

	if err := c.chamber.SetDryer(ctx, true); err != nil {
		return fmt.Errorf("start: enable dryer: %w", err)
	}
	if err := c.chamber.SetCompressedAir(ctx, true); err != nil {
		return fmt.Errorf("start: enable compressed air: %w", err)
	}

	// Drying happens at room temperature so condensation never forms.
	if err := c.SetTemperatureSetPoint(ctx, c.limits.RoomTempC); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := c.zeroAllSlots(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := c.chamber.Start(ctx); err != nil {
		return fmt.Errorf("start: start chamber: %w", err)
	}

	// On timeout the chamber keeps running at room temperature: a humid
	// chamber must never be cooled.
	err = c.pollUntil(ctx, "start",
		fmt.Sprintf("humidity below %.1f%%", opts.HumidityThresholdPct),
		opts.HumidityTimeout, func(ctx context.Context) (bool, error) {
			humidity, err := c.Humidity(ctx)
			if err != nil {
				return false, err
			}
			return humidity < opts.HumidityThresholdPct, nil
		})
	if err != nil {
		return err
	}

	if err := c.SetTemperatureSetPoint(ctx, c.limits.StandbyTempC); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	err = c.pollUntil(ctx, "start", "cool-down complete",
		opts.CoolingTimeout, func(ctx context.Context) (bool, error) {
			status, err := c.Status(ctx)
			if err != nil {
				return false, err
			}
			return status != StatusCoolingDown, nil
		})
	if err != nil {
		return err
	}

	status, err = c.Status(ctx)
	if err != nil {
		return err
	}
	if status != StatusReadyToOperate {
		return Wrap(ErrInvariantViolation, "start",
			fmt.Sprintf("expected %s after cool-down, have %s", StatusReadyToOperate, status), nil)
	}
	return nil
}

// Stop brings the rig from any running state back to not-running: unbias
// every slot, warm the chamber past the safe-to-open threshold, then switch
// it off. Calling Stop on an already stopped rig is an error.
func (c *Controller) Stop(ctx context.Context, opts StopOptions) error {
	status, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if status == StatusNotRunning {
		return Wrap(ErrInvalidTransition, "stop", "already stopped", nil)
	}

	if err := c.zeroAllSlots(ctx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	err = c.pollUntil(ctx, "stop", "all slots unbiased",
		opts.UnbiasTimeout, func(ctx context.Context) (bool, error) {
			biased, err := c.AnySlotBiased(ctx)
			if err != nil {
				return false, err
			}
			return !biased, nil
		})
	if err != nil {
		return err
	}

	if err := c.SetTemperatureSetPoint(ctx, c.limits.RoomTempC); err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	err = c.pollUntil(ctx, "stop",
		fmt.Sprintf("chamber above %.1f C", c.limits.WarmThresholdC),
		opts.WarmupTimeout, func(ctx context.Context) (bool, error) {
			temperature, err := c.Temperature(ctx)
			if err != nil {
				return false, err
			}
			return temperature >= c.limits.WarmThresholdC, nil
		})
	if err != nil {
		return err
	}

	if err := c.chamber.Stop(ctx); err != nil {
		return fmt.Errorf("stop: stop chamber: %w", err)
	}

	status, err = c.Status(ctx)
	if err != nil {
		return err
	}
	if status != StatusNotRunning {
		return Wrap(ErrInvariantViolation, "stop",
			fmt.Sprintf("expected %s after chamber stop, have %s", StatusNotRunning, status), nil)
	}
	return nil
}

// zeroAllSlots ramps every slot to 0 V. Zeroing is always interlock-safe.
func (c *Controller) zeroAllSlots(ctx context.Context) error {
	for _, name := range c.table.Slots() {
		if err := c.SetBiasVoltage(ctx, name, 0); err != nil {
			return err
		}
	}
	return nil
}

// pollUntil checks the condition at the controller's poll interval until it
// holds, the deadline passes, or the context is cancelled. The condition is
// always checked at least once. Only a missed deadline is tagged ErrTimeout;
// condition errors and cancellation pass through unchanged.
func (c *Controller) pollUntil(ctx context.Context, operation, waitingFor string, timeout time.Duration, condition func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := condition(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return Wrap(ErrTimeout, operation,
				fmt.Sprintf("gave up waiting for %s after %s", waitingFor, timeout), nil)
		}
		if err := SleepCtx(ctx, c.pollInterval); err != nil {
			return err
		}
	}
}

// SleepCtx pauses for d, returning early with the context's error if it ends
// first.
func SleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
