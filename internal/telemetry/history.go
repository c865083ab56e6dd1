package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SnapshotDeviceTable writes one timestamped copy of the raw device table
// into the configuration history directory and returns its path. Raw is
// written verbatim so the snapshot is exactly what the operator saved.
func SnapshotDeviceTable(historyDir string, when time.Time, raw []byte) (string, error) {
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return "", fmt.Errorf("create history directory %s: %w", historyDir, err)
	}
	name := fmt.Sprintf("%s_devices.csv", when.Format("20060102T150405.000000000"))
	path := filepath.Join(historyDir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write history snapshot %s: %w", path, err)
	}
	return path, nil
}
