// Package status provides a thread-safe status tracker for the predictor service.
// It is read by HTTP handlers and lifecycle events, and written by handlers
// and the run loop.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

// Prediction providers reported to clients.
const (
	ProviderCloud = "AWS SageMaker"
	ProviderLocal = "Local AI Engine"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains service configuration for display.
type Config struct {
	HTTPAddr      string
	Broker        string
	TopicPrefix   string
	TickMs        int64
	HeartbeatMs   int64
	Junction      string
	Lamp          bool
	CloudEndpoint string
	CloudRegion   string
}

// CloudEnabled reports whether a cloud endpoint is configured.
func (c Config) CloudEnabled() bool {
	return c.CloudEndpoint != ""
}

// Provider names the prediction provider advertised to clients.
func (c Config) Provider() string {
	if c.CloudEnabled() {
		return ProviderCloud
	}
	return ProviderLocal
}

// Counts tracks requests served since startup.
type Counts struct {
	Green      int
	Red        int
	Amber      int
	Advisories int
}

// Predictions returns the total number of predictions served.
func (c Counts) Predictions() int {
	return c.Green + c.Red + c.Amber
}

// Snapshot is a point-in-time view of service state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Counts        Counts
	Signal        phase.Prediction // latest local junction prediction
	Transitions   phase.Counts
	SignalReady   bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the service started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable service state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// RecordPrediction counts a served prediction.
func (t *Tracker) RecordPrediction(s phase.Status) {
	t.mu.Lock()
	switch s {
	case phase.StatusGreen:
		t.snap.Counts.Green++
	case phase.StatusRed:
		t.snap.Counts.Red++
	case phase.StatusAmber:
		t.snap.Counts.Amber++
	}
	t.mu.Unlock()
}

// RecordAdvisory counts a served advisory.
func (t *Tracker) RecordAdvisory() {
	t.mu.Lock()
	t.snap.Counts.Advisories++
	t.mu.Unlock()
}

// UpdateSignal sets the local junction's latest prediction and transition
// counts. Called from the run loop on every tick.
func (t *Tracker) UpdateSignal(p phase.Prediction, transitions phase.Counts) {
	t.mu.Lock()
	t.snap.Signal = p
	t.snap.Transitions = transitions
	t.snap.SignalReady = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the service state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
