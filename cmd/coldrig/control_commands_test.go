package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	controlDir := filepath.Join(base, "control")
	content := fmt.Sprintf(`[paths]
control_dir = %q
data_dir = %q
log_dir = %q

[hardware]
simulated = true

[hardware.providers]
PSU-A = 2
`, controlDir, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	cfgPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, controlDir
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("coldrig %v: %v", args, err)
	}
	return out.String()
}

func markerExists(t *testing.T, controlDir, name string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(controlDir, name))
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatalf("stat %s marker: %v", name, err)
	return false
}

func TestRunCommandSwapsMarkers(t *testing.T) {
	cfgPath, controlDir := writeTestConfig(t)

	runCLI(t, "--config", cfgPath, "run")
	if !markerExists(t, controlDir, "run") {
		t.Fatal("run marker missing after coldrig run")
	}
	if markerExists(t, controlDir, "stop") {
		t.Fatal("stop marker still present after coldrig run")
	}

	runCLI(t, "--config", cfgPath, "stop")
	if !markerExists(t, controlDir, "stop") {
		t.Fatal("stop marker missing after coldrig stop")
	}
	if markerExists(t, controlDir, "run") {
		t.Fatal("run marker still present after coldrig stop")
	}

	// Requesting the same intent twice is harmless.
	runCLI(t, "--config", cfgPath, "stop")
	if !markerExists(t, controlDir, "stop") {
		t.Fatal("stop marker missing after repeated coldrig stop")
	}
}
