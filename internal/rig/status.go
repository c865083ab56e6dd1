package rig

// Status is the derived state of the whole setup. It is recomputed from
// live readings on every query and never stored.
type Status string

const (
	// StatusNotRunning: the chamber is off. Initial state.
	StatusNotRunning Status = "not-running"
	// StatusReadyToOperate: cold and holding. The only status permitting
	// bias above the unbiased-voltage threshold.
	StatusReadyToOperate Status = "ready-to-operate"
	// StatusCoolingDown: the chamber is heading for a cold set-point but
	// has not arrived yet.
	StatusCoolingDown Status = "cooling-down"
	// StatusWarm: the chamber is running with a warm set-point, detectors
	// unbiased.
	StatusWarm Status = "warm"
	// StatusError: detectors are biased while the chamber is warm or
	// warming. Reachable only by external drift; the controller rejects
	// every call that would lead here.
	StatusError Status = "error"
)

// Conditions is the snapshot the status machine derives from.
type Conditions struct {
	ChamberRunning bool
	TemperatureC   float64
	SetPointC      float64
	AnySlotBiased  bool
}

// DeriveStatus maps a snapshot of rig conditions to a status. It is a pure
// function; every input combination maps to exactly one status.
func DeriveStatus(c Conditions, maxOperatingTempC float64) Status {
	if !c.ChamberRunning {
		return StatusNotRunning
	}
	setPointHigh := c.SetPointC > maxOperatingTempC
	temperatureHigh := c.TemperatureC > maxOperatingTempC

	switch {
	case !setPointHigh && !temperatureHigh:
		return StatusReadyToOperate
	case c.AnySlotBiased:
		return StatusError
	case setPointHigh:
		return StatusWarm
	default:
		return StatusCoolingDown
	}
}
