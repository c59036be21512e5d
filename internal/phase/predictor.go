package phase

import (
	"math"
	"time"
)

// Predict returns the phase of junctionID at timestamp (seconds since an
// arbitrary epoch). The junction ID is not interpreted; it is echoed back.
//
// SecondsToChange is rounded to one decimal place, half away from zero.
func Predict(junctionID string, timestamp float64) Prediction {
	t := cyclePosition(timestamp)

	var status Status
	var remaining float64
	switch {
	case t < RedStart:
		status = StatusGreen
		remaining = RedStart - t
	case t < AmberStart:
		status = StatusRed
		remaining = AmberStart - t
	default:
		status = StatusAmber
		remaining = CycleTime - t
	}

	return Prediction{
		JunctionID:      junctionID,
		Status:          status,
		SecondsToChange: roundTenth(remaining),
		CycleTime:       CycleTime,
	}
}

// PredictAt is Predict for a wall-clock instant.
func PredictAt(junctionID string, at time.Time) Prediction {
	return Predict(junctionID, FromTime(at))
}

// FromTime converts t to Unix seconds, keeping sub-second precision.
func FromTime(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// PhaseDuration returns how long s lasts within one cycle.
// Unknown statuses have zero duration.
func PhaseDuration(s Status) time.Duration {
	switch s {
	case StatusGreen:
		return RedStart * time.Second
	case StatusRed:
		return (AmberStart - RedStart) * time.Second
	case StatusAmber:
		return (CycleTime - AmberStart) * time.Second
	}
	return 0
}

// cyclePosition maps timestamp into [0, CycleTime) with floored modulo,
// so negative timestamps count backwards from the end of the cycle.
func cyclePosition(timestamp float64) float64 {
	if math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return 0
	}
	t := math.Mod(timestamp, CycleTime)
	if t < 0 {
		t += CycleTime
	}
	// -1e-20 + 60 rounds to exactly 60.
	if t >= CycleTime {
		t = 0
	}
	return t
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
