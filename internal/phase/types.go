// Package phase contains the signal phase prediction logic.
// This package has NO external dependencies (no MQTT, GPIO, HTTP or OS).
// Time is always passed in, either as Unix seconds or as a time.Time.
package phase

import "time"

// Status is the phase a traffic signal is showing.
type Status string

const (
	StatusGreen Status = "GREEN"
	StatusRed   Status = "RED"
	StatusAmber Status = "AMBER"
)

// Valid reports whether s is one of the three signal phases.
func (s Status) Valid() bool {
	switch s {
	case StatusGreen, StatusRed, StatusAmber:
		return true
	}
	return false
}

// CycleTime is the length of one full signal cycle, in seconds.
const CycleTime = 60

// Phase boundaries within a cycle, in seconds.
// GREEN is [0, RedStart), RED is [RedStart, AmberStart), AMBER is [AmberStart, CycleTime).
const (
	RedStart   = 30
	AmberStart = 55
)

// Prediction is the predicted signal state of a junction at an instant.
type Prediction struct {
	JunctionID      string
	Status          Status
	SecondsToChange float64
	CycleTime       int
}

// Transition is a phase change observed by a Monitor.
type Transition struct {
	Timestamp       time.Time
	JunctionID      string
	From            Status
	To              Status
	SecondsToChange float64
}

// Counts tracks the number of transitions into each phase since startup.
type Counts struct {
	Green int
	Red   int
	Amber int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
