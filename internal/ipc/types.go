package ipc

import (
	"time"

	"coldrig/internal/daemon"
)

// SlotStatus mirrors the daemon's per-slot state for IPC callers.
type SlotStatus = daemon.SlotStatus

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/rig status information.
type StatusResponse struct {
	Running       bool         `json:"running"`
	RigStatus     string       `json:"rig_status"`
	TemperatureC  float64      `json:"temperature_c"`
	HumidityPct   float64      `json:"humidity_pct"`
	SetPointC     float64      `json:"set_point_c"`
	Slots         []SlotStatus `json:"slots"`
	StoreDBPath   string       `json:"store_db_path"`
	LockPath      string       `json:"lock_path"`
	LogPath       string       `json:"log_path"`
	StatusProblem string       `json:"status_problem"`
	PID           int          `json:"pid"`
}

// EventsRequest fetches recent journal entries. Limit zero means the server
// default.
type EventsRequest struct {
	Limit int `json:"limit"`
}

// Event is one journal entry.
type Event struct {
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	Type    string    `json:"type"`
	Slot    string    `json:"slot"`
	Message string    `json:"message"`
}

// EventsResponse contains journal entries, newest first.
type EventsResponse struct {
	Events []Event `json:"events"`
}

// SweepsRequest fetches recent sweep runs, optionally for one slot.
type SweepsRequest struct {
	Slot  string `json:"slot"`
	Limit int    `json:"limit"`
}

// SweepRun is the stored metadata of one IV sweep.
type SweepRun struct {
	ID         string    `json:"id"`
	Slot       string    `json:"slot"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Points     int       `json:"points"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error"`
	Path       string    `json:"path"`
}

// SweepsResponse contains sweep runs, newest first.
type SweepsResponse struct {
	Runs []SweepRun `json:"runs"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
