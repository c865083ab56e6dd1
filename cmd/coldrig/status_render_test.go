package main

import (
	"strings"
	"testing"
	"time"

	"coldrig/internal/ipc"
)

func TestRenderStatusRunningRig(t *testing.T) {
	resp := &ipc.StatusResponse{
		Running:      true,
		RigStatus:    "ready-to-operate",
		TemperatureC: -20.4,
		HumidityPct:  3.2,
		SetPointC:    -20,
		Slots: []ipc.SlotStatus{
			{Name: "det-0", SetVoltageV: 60, LastVoltageV: 59.98, LastCurrentA: 1.2e-7, LastMeasuredAt: time.Now()},
			{Name: "det-1", SetVoltageV: 0, OvercurrentLatched: true},
		},
		StoreDBPath: "/data/telemetry.db",
		LogPath:     "/logs/coldrig.log",
		PID:         4242,
	}

	output := strings.Join(renderStatus(resp, false), "\n")
	for _, want := range []string{
		"== Daemon ==",
		"[OK] yes",
		"4242",
		"== Rig ==",
		"ready-to-operate",
		"-20.4 C",
		"3.2 %",
		"== Slots ==",
		"det-0",
		"60.00 V",
		"det-1",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("status output missing %q:\n%s", want, output)
		}
	}
}

func TestRenderStatusReportsProblem(t *testing.T) {
	resp := &ipc.StatusResponse{
		Running:       true,
		StatusProblem: "chamber read failed",
	}

	output := strings.Join(renderStatus(resp, false), "\n")
	if !strings.Contains(output, "chamber read failed") {
		t.Fatalf("status output missing problem line:\n%s", output)
	}
	if strings.Contains(output, "== Rig ==") {
		t.Fatalf("rig section rendered despite status problem:\n%s", output)
	}
}

func TestRigStatusKind(t *testing.T) {
	cases := map[string]statusKind{
		"ready-to-operate": statusOK,
		"error":            statusError,
		"warm":             statusWarn,
		"cooling-down":     statusInfo,
		"not-running":      statusInfo,
	}
	for status, want := range cases {
		if got := rigStatusKind(status); got != want {
			t.Errorf("rigStatusKind(%q) = %v, want %v", status, got, want)
		}
	}
}
