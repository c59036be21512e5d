// Package advisory computes Green Light Optimal Speed Advisories (GLOSA):
// the speed a vehicle should hold to reach a junction while it is green.
package advisory

import (
	"math"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

// Speed limits and timing margin used when advising, in m/s and seconds.
const (
	MinSpeed     = 5.0  // ~18 km/h
	MaxSpeed     = 16.0 // ~60 km/h
	TargetBuffer = 2.0
)

// Advisory messages.
const (
	MsgMaintain     = "Maintain speed to clear signal."
	MsgSlowDown     = "Slow down. Signal turning Red soon."
	MsgOptimal      = "Optimal speed to arrive at Green."
	MsgSlowApproach = "Slow approach. Arrive after signal turns Green."
	MsgStop         = "Stop and wait for Green."
	MsgPrepareStop  = "Prepare to stop."
)

// Advisory is a recommended approach speed.
type Advisory struct {
	SpeedKmh int
	Message  string
}

// Calculate advises an approach speed for a vehicle distanceM metres from
// a junction whose signal shows status for another secondsToChange seconds.
func Calculate(distanceM, secondsToChange float64, status phase.Status) Advisory {
	var speed float64
	var msg string

	switch status {
	case phase.StatusGreen:
		// Can we clear the junction before it turns red?
		window := secondsToChange - TargetBuffer
		needed := math.Inf(1)
		if window > 0 {
			needed = distanceM / window
		}
		if needed <= MaxSpeed {
			speed = math.Max(needed, MinSpeed)
			msg = MsgMaintain
		} else {
			speed = MinSpeed
			msg = MsgSlowDown
		}

	case phase.StatusRed:
		// Arrive just as it turns green.
		needed := distanceM / (secondsToChange + TargetBuffer)
		switch {
		case needed >= MinSpeed && needed <= MaxSpeed:
			speed = needed
			msg = MsgOptimal
		case needed < MinSpeed:
			speed = MinSpeed
			msg = MsgSlowApproach
		default:
			speed = 0
			msg = MsgStop
		}

	default:
		speed = MinSpeed
		msg = MsgPrepareStop
	}

	return Advisory{
		SpeedKmh: toKmh(speed),
		Message:  msg,
	}
}

func toKmh(ms float64) int {
	return int(math.Floor(ms*3.6 + 0.5))
}

const earthRadius = 6371e3 // metres

// Distance returns the great-circle distance in metres between two
// points given in decimal degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
