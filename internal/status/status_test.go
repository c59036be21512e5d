package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newFixedTracker(cfg Config, now time.Time) *Tracker {
	tr := NewTracker(start, cfg)
	tr.now = func() time.Time { return now }
	return tr
}

func TestNewTracker(t *testing.T) {
	cfg := Config{HTTPAddr: ":8000", Broker: "tcp://localhost:1883", TickMs: 100}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	assert.True(t, snap.StartTime.Equal(start))
	assert.Equal(t, cfg, snap.Config)
	assert.False(t, snap.MQTTConnected)
	assert.False(t, snap.SignalReady)
	assert.Equal(t, Counts{}, snap.Counts)
	assert.Nil(t, snap.Network)
}

func TestRecordPrediction(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.RecordPrediction(phase.StatusGreen)
	tr.RecordPrediction(phase.StatusGreen)
	tr.RecordPrediction(phase.StatusRed)
	tr.RecordPrediction(phase.StatusAmber)
	tr.RecordPrediction("BLUE")
	tr.RecordAdvisory()

	c := tr.Snapshot().Counts
	assert.Equal(t, Counts{Green: 2, Red: 1, Amber: 1, Advisories: 1}, c)
	assert.Equal(t, 4, c.Predictions())
}

func TestUpdateSignal(t *testing.T) {
	tr := NewTracker(start, Config{Junction: "J-001"})
	p := phase.Predict("J-001", 40)
	tr.UpdateSignal(p, phase.Counts{Red: 3})

	snap := tr.Snapshot()
	assert.True(t, snap.SignalReady)
	assert.Equal(t, p, snap.Signal)
	assert.Equal(t, phase.Counts{Red: 3}, snap.Transitions)
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetMQTTConnected(true)
	assert.True(t, tr.Snapshot().MQTTConnected)
	tr.SetMQTTConnected(false)
	assert.False(t, tr.Snapshot().MQTTConnected)
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})
	require.NotNil(t, tr.Snapshot().Network)
	assert.Equal(t, "192.168.1.42", tr.Snapshot().Network.IP)
}

func TestSnapshotUptime(t *testing.T) {
	tr := newFixedTracker(Config{}, start.Add(90*time.Second))
	assert.Equal(t, 90*time.Second, tr.Snapshot().Uptime())
}

func TestProvider(t *testing.T) {
	assert.Equal(t, ProviderLocal, Config{}.Provider())
	assert.Equal(t, ProviderCloud, Config{CloudEndpoint: "glosa-v2-endpoint"}.Provider())
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			tr.RecordPrediction(phase.StatusRed)
		}()
		go func() {
			defer wg.Done()
			tr.UpdateSignal(phase.Predict("J", 1), phase.Counts{})
		}()
		go func() {
			defer wg.Done()
			_ = tr.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, tr.Snapshot().Counts.Red)
}

func TestFormatJSON(t *testing.T) {
	cfg := Config{
		HTTPAddr:      ":8000",
		Broker:        "tcp://localhost:1883",
		TopicPrefix:   "glosa",
		TickMs:        100,
		HeartbeatMs:   900000,
		Junction:      "J-001",
		CloudEndpoint: "glosa-v2-endpoint",
		CloudRegion:   "ap-south-1",
	}
	tr := newFixedTracker(cfg, start.Add(61*time.Second+500*time.Millisecond))
	tr.RecordPrediction(phase.StatusGreen)
	tr.RecordAdvisory()
	tr.SetMQTTConnected(true)
	tr.UpdateSignal(phase.Predict("J-001", 57), phase.Counts{Amber: 1})

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(tr.Snapshot()), &sj))

	s := sj.Status
	assert.Empty(t, s.Event)
	assert.Equal(t, ServiceName, s.Service)
	assert.Equal(t, ProviderCloud, s.Provider)
	assert.Equal(t, int64(61), s.UptimeSeconds)
	assert.Equal(t, "2026-01-01T00:00:00Z", s.StartTime)
	assert.Equal(t, "2026-01-01T00:01:01Z", s.Timestamp)
	assert.Equal(t, MQTTStatus{Enabled: true, Connected: true, Broker: "tcp://localhost:1883"}, s.MQTT)
	assert.Equal(t, CountsJSON{Predictions: 1, Green: 1, Advisories: 1}, s.Counts)
	require.NotNil(t, s.Signal)
	assert.Equal(t, "AMBER", s.Signal.CurrentStatus)
	assert.Equal(t, 3.0, s.Signal.SecondsToChange)
	assert.Equal(t, 1, s.Signal.Transitions.Amber)
	assert.Equal(t, "glosa-v2-endpoint", s.Config.CloudEndpoint)
	assert.Nil(t, s.Network)
}

func TestFormatJSONSignalBeforeFirstTick(t *testing.T) {
	tr := newFixedTracker(Config{Junction: "J-001"}, start)

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(tr.Snapshot()), &sj))
	require.NotNil(t, sj.Status.Signal)
	assert.False(t, sj.Status.Signal.Ready)
	assert.Equal(t, "UNKNOWN", sj.Status.Signal.CurrentStatus)
}

func TestFormatJSONOmitsSignalWithoutJunction(t *testing.T) {
	tr := newFixedTracker(Config{}, start)
	data := FormatJSON(tr.Snapshot())
	assert.NotContains(t, string(data), `"signal"`)
	assert.Contains(t, string(data), `"provider": "Local AI Engine"`)
}

func TestFormatStatusEvent(t *testing.T) {
	tr := newFixedTracker(Config{HTTPAddr: ":8000"}, start)
	tr.SetNetwork(&NetworkInfo{Type: "ethernet", IP: "10.0.0.5", Status: "connected"})

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM"), &sj))
	assert.Equal(t, "SHUTDOWN", sj.Status.Event)
	assert.Equal(t, "SIGTERM", sj.Status.Reason)
	require.NotNil(t, sj.Status.Network)
	assert.Equal(t, "10.0.0.5", sj.Status.Network.IP)
}

func TestFormatStatusEventIsCompact(t *testing.T) {
	tr := newFixedTracker(Config{}, start)
	data := FormatStatusEvent(tr.Snapshot(), "STARTUP", "")
	assert.NotContains(t, string(data), "\n")
	assert.NotContains(t, string(data), `"reason"`)
}
