package phase

import "time"

// Monitor follows the predicted phase of a single junction over time and
// reports phase changes. It is not safe for concurrent use.
type Monitor struct {
	junctionID    string
	current       Prediction
	baselined     bool
	startTime     time.Time
	counts        Counts
	lastHeartbeat time.Time
}

// NewMonitor creates a monitor for junctionID.
// The startTime is used for calculating uptime in heartbeat events.
func NewMonitor(junctionID string, startTime time.Time) *Monitor {
	return &Monitor{
		junctionID:    junctionID,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process predicts the phase at now and returns a Transition if it differs
// from the phase seen on the previous call. The first call only records
// a baseline.
func (m *Monitor) Process(now time.Time) *Transition {
	p := PredictAt(m.junctionID, now)
	prev := m.current
	m.current = p

	if !m.baselined {
		m.baselined = true
		return nil
	}
	if p.Status == prev.Status {
		return nil
	}

	switch p.Status {
	case StatusGreen:
		m.counts.Green++
	case StatusRed:
		m.counts.Red++
	case StatusAmber:
		m.counts.Amber++
	}

	return &Transition{
		Timestamp:       now,
		JunctionID:      m.junctionID,
		From:            prev.Status,
		To:              p.Status,
		SecondsToChange: p.SecondsToChange,
	}
}

// JunctionID returns the junction being monitored.
func (m *Monitor) JunctionID() string {
	return m.junctionID
}

// IsBaselined reports whether Process has been called at least once.
func (m *Monitor) IsBaselined() bool {
	return m.baselined
}

// CurrentPrediction returns the prediction from the latest Process call.
// Before the first call it is the zero Prediction.
func (m *Monitor) CurrentPrediction() Prediction {
	return m.current
}

// Counts returns a copy of the transition counts.
func (m *Monitor) Counts() Counts {
	return m.counts
}

// CheckHeartbeat returns heartbeat data if at least interval has passed
// since the last heartbeat (or start). Returns nil if interval <= 0.
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}
	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.counts,
	}
}
