package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cycleStart is 2026-01-01T00:00:00Z, which falls on a cycle boundary.
var cycleStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewMonitor(t *testing.T) {
	m := NewMonitor("J-001", cycleStart)
	require.NotNil(t, m)
	assert.Equal(t, "J-001", m.JunctionID())
	assert.False(t, m.IsBaselined())
	assert.Equal(t, Prediction{}, m.CurrentPrediction())
	assert.True(t, m.lastHeartbeat.Equal(cycleStart))
}

func TestMonitorBaselineEmitsNothing(t *testing.T) {
	m := NewMonitor("J-001", cycleStart)

	tr := m.Process(cycleStart.Add(40 * time.Second))
	assert.Nil(t, tr)
	assert.True(t, m.IsBaselined())
	assert.Equal(t, StatusRed, m.CurrentPrediction().Status)
	assert.Equal(t, Counts{}, m.Counts())
}

func TestMonitorNoTransitionWithinPhase(t *testing.T) {
	m := NewMonitor("J-001", cycleStart)
	m.Process(cycleStart)

	for i := 1; i < 300; i++ {
		tr := m.Process(cycleStart.Add(time.Duration(i) * 100 * time.Millisecond))
		assert.Nil(t, tr, "tick %d", i)
	}
	assert.Equal(t, StatusGreen, m.CurrentPrediction().Status)
}

func TestMonitorFullCycle(t *testing.T) {
	m := NewMonitor("J-001", cycleStart)

	var transitions []Transition
	for i := 0; i <= 1200; i++ { // two cycles at 100ms ticks
		now := cycleStart.Add(time.Duration(i) * 100 * time.Millisecond)
		if tr := m.Process(now); tr != nil {
			transitions = append(transitions, *tr)
		}
	}

	require.Len(t, transitions, 6)

	want := []struct {
		from, to Status
		at       time.Duration
		left     float64
	}{
		{StatusGreen, StatusRed, 30 * time.Second, 25.0},
		{StatusRed, StatusAmber, 55 * time.Second, 5.0},
		{StatusAmber, StatusGreen, 60 * time.Second, 30.0},
		{StatusGreen, StatusRed, 90 * time.Second, 25.0},
		{StatusRed, StatusAmber, 115 * time.Second, 5.0},
		{StatusAmber, StatusGreen, 120 * time.Second, 30.0},
	}
	for i, w := range want {
		tr := transitions[i]
		assert.Equal(t, w.from, tr.From, "transition %d", i)
		assert.Equal(t, w.to, tr.To, "transition %d", i)
		assert.True(t, tr.Timestamp.Equal(cycleStart.Add(w.at)), "transition %d at %v", i, tr.Timestamp)
		assert.Equal(t, w.left, tr.SecondsToChange, "transition %d", i)
		assert.Equal(t, "J-001", tr.JunctionID)
	}

	assert.Equal(t, Counts{Green: 2, Red: 2, Amber: 2}, m.Counts())
}

func TestMonitorSkippedPhase(t *testing.T) {
	m := NewMonitor("J-001", cycleStart)
	m.Process(cycleStart.Add(10 * time.Second)) // GREEN

	// A long gap jumps straight from GREEN into AMBER.
	tr := m.Process(cycleStart.Add(57 * time.Second))
	require.NotNil(t, tr)
	assert.Equal(t, StatusGreen, tr.From)
	assert.Equal(t, StatusAmber, tr.To)
	assert.Equal(t, Counts{Amber: 1}, m.Counts())
}

func TestMonitorCheckHeartbeat(t *testing.T) {
	m := NewMonitor("J-001", cycleStart)

	assert.Nil(t, m.CheckHeartbeat(cycleStart.Add(10*time.Minute), 15*time.Minute))

	hb := m.CheckHeartbeat(cycleStart.Add(15*time.Minute), 15*time.Minute)
	require.NotNil(t, hb)
	assert.Equal(t, 15*time.Minute, hb.Uptime)
	assert.True(t, hb.Timestamp.Equal(cycleStart.Add(15*time.Minute)))

	// Interval restarts from the last heartbeat.
	assert.Nil(t, m.CheckHeartbeat(cycleStart.Add(20*time.Minute), 15*time.Minute))
	hb = m.CheckHeartbeat(cycleStart.Add(30*time.Minute), 15*time.Minute)
	require.NotNil(t, hb)
	assert.Equal(t, 30*time.Minute, hb.Uptime)
}

func TestMonitorHeartbeatDisabled(t *testing.T) {
	m := NewMonitor("J-001", cycleStart)
	assert.Nil(t, m.CheckHeartbeat(cycleStart.Add(time.Hour), 0))
	assert.Nil(t, m.CheckHeartbeat(cycleStart.Add(time.Hour), -time.Second))
}

func TestMonitorHeartbeatCarriesCounts(t *testing.T) {
	m := NewMonitor("J-001", cycleStart)
	m.Process(cycleStart)
	m.Process(cycleStart.Add(31 * time.Second))

	hb := m.CheckHeartbeat(cycleStart.Add(time.Minute), time.Minute)
	require.NotNil(t, hb)
	assert.Equal(t, Counts{Red: 1}, hb.Counts)
}
