package testsupport

import (
	"path/filepath"
	"testing"

	"coldrig/internal/config"
	"coldrig/internal/telemetry"
)

// MustOpenStore opens a telemetry.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *telemetry.Store {
	t.Helper()

	store, err := telemetry.OpenStore(filepath.Join(cfg.Paths.DataDir, "telemetry.db"))
	if err != nil {
		t.Fatalf("telemetry.OpenStore: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
