package main

import (
	"context"
	"errors"
	"testing"

	"coldrig/internal/logging"
	"coldrig/internal/testsupport"
)

func TestBootstrapSimulated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Hardware.Simulated = true

	d, err := bootstrap(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
}

func TestBootstrapRejectsRealHardware(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Hardware.Simulated = false

	if _, err := bootstrap(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected bootstrap to fail without simulated hardware")
	}
}

// A bootstrap failure must surface as a non-nil return from run so main can
// exit with a failure status instead of 0.
func TestRunFailsWhenBootstrapFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Hardware.Simulated = false

	if err := run(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatal("run returned nil on bootstrap failure")
	}
}

func TestAwaitShutdownPropagatesLoopFailure(t *testing.T) {
	loops := make(chan error, 1)
	loops <- errors.New("loop died")
	close(loops)

	if err := awaitShutdown(context.Background(), loops, logging.NewNop()); err == nil {
		t.Fatal("awaitShutdown returned nil on loop failure")
	}
}

func TestAwaitShutdownCleanOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := awaitShutdown(ctx, make(chan error), logging.NewNop()); err != nil {
		t.Fatalf("awaitShutdown on cancelled context: %v", err)
	}
}

func TestBootstrapRejectsBrokenDeviceTable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithControlFiles("slot,provider\nbad,row\n", testsupport.DefaultChamberCSV))
	cfg.Hardware.Simulated = true

	if _, err := bootstrap(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected bootstrap to fail on a broken device table")
	}
}
