package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out := runCLI(t, "config", "init", "--path", target)
	if !strings.Contains(out, target) {
		t.Fatalf("output does not mention target path: %q", out)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	if !strings.Contains(string(data), "[interlock]") {
		t.Fatalf("sample config missing interlock section:\n%s", data)
	}

	// A second init without --overwrite refuses to clobber the file.
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected init to fail on existing file")
	}

	runCLI(t, "config", "init", "--path", target, "--overwrite")
}

func TestConfigValidateHonorsConfigFlag(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out := runCLI(t, "--config", cfgPath, "config", "validate")
	if !strings.Contains(out, cfgPath) {
		t.Fatalf("validate did not report the flagged config path: %q", out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("validate did not report success: %q", out)
	}
}
