package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"warn":     slog.LevelWarn,
		"error":    slog.LevelError,
		"info":     slog.LevelInfo,
		"":         slog.LevelInfo,
		"whatever": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestPrettyHandlerHoistsComponent(t *testing.T) {
	var sb strings.Builder
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(writerFunc(sb.WriteString), levelVar))

	logger.Info("set point changed",
		String(FieldComponent, "chamber-reconcile"),
		Float64("set_point_c", -20))

	line := sb.String()
	if !strings.Contains(line, "chamber-reconcile: set point changed") {
		t.Fatalf("component not hoisted into message prefix: %q", line)
	}
	if !strings.Contains(line, "set_point_c=-20") {
		t.Fatalf("attribute missing from output: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as an attribute: %q", line)
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should never be enabled")
	}
}

type writerFunc func(string) (int, error)

func (w writerFunc) Write(p []byte) (int, error) { return w(string(p)) }

var _ io.Writer = writerFunc(nil)
