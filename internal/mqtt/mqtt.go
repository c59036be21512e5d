// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

// DefaultTopicPrefix is the root of every topic the service publishes to.
const DefaultTopicPrefix = "glosa"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventOffline     = "OFFLINE"
	EventReconnected = "RECONNECTED"
)

// EventPhaseChange is the event name carried by transition payloads.
const EventPhaseChange = "PHASE_CHANGE"

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

// Prediction is the topic for predictions served for junction.
func (t Topics) Prediction(junction string) string {
	return t.prefix() + "/predictions/" + TopicSegment(junction)
}

// Transition is the topic for phase changes of junction.
func (t Topics) Transition(junction string) string {
	return t.prefix() + "/signal/" + TopicSegment(junction) + "/events"
}

// Telemetry is the topic for vehicle positions reported against junction.
func (t Topics) Telemetry(junction string) string {
	return t.prefix() + "/telemetry/" + TopicSegment(junction)
}

// System is the topic for service lifecycle events.
func (t Topics) System() string {
	return t.prefix() + "/system"
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// TopicSegment makes a junction ID safe to use as a single topic level.
// Level separators and wildcards become underscores.
func TopicSegment(id string) string {
	if id == "" {
		return "_"
	}
	return topicReplacer.Replace(id)
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishPrediction sends a served prediction to the broker.
	// Returns error if publishing fails (should not fail the request).
	PublishPrediction(event PredictionEvent) error

	// PublishTransition sends a phase change of the local junction.
	PublishTransition(tr phase.Transition) error

	// PublishTelemetry sends a vehicle report received with an advisory request.
	PublishTelemetry(event TelemetryEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// PredictionEvent is a prediction served to a client.
type PredictionEvent struct {
	ID         string
	ServedAt   time.Time
	Timestamp  float64 // timestamp the client asked about
	Prediction phase.Prediction
}

// TelemetryEvent is a vehicle report that came with an advisory request.
// Lat and Lng are nil when the client sent a distance instead.
type TelemetryEvent struct {
	ID         string
	ReceivedAt time.Time
	JunctionID string
	Timestamp  float64
	DistanceM  float64
	Lat        *float64
	Lng        *float64
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// PredictionPayload is the MQTT payload for a served prediction.
type PredictionPayload struct {
	Prediction PredictionInner `json:"prediction"`
}

// PredictionInner contains the prediction details.
type PredictionInner struct {
	ID              string  `json:"id"`
	ServedAt        string  `json:"served_at"`
	JunctionID      string  `json:"junction_id"`
	Timestamp       float64 `json:"timestamp"`
	CurrentStatus   string  `json:"current_status"`
	SecondsToChange float64 `json:"seconds_to_change"`
	CycleTime       int     `json:"cycle_time"`
}

// FormatPredictionPayload creates the JSON payload for a served prediction.
func FormatPredictionPayload(event PredictionEvent) ([]byte, error) {
	p := event.Prediction
	return json.Marshal(PredictionPayload{
		Prediction: PredictionInner{
			ID:              event.ID,
			ServedAt:        event.ServedAt.UTC().Format(time.RFC3339Nano),
			JunctionID:      p.JunctionID,
			Timestamp:       event.Timestamp,
			CurrentStatus:   string(p.Status),
			SecondsToChange: p.SecondsToChange,
			CycleTime:       p.CycleTime,
		},
	})
}

// TransitionPayload is the MQTT payload for a phase change.
type TransitionPayload struct {
	Signal SignalInner `json:"signal"`
}

// SignalInner contains the phase change details.
type SignalInner struct {
	Timestamp       string  `json:"timestamp"`
	Event           string  `json:"event"`
	JunctionID      string  `json:"junction_id"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	SecondsToChange float64 `json:"seconds_to_change"`
}

// FormatTransitionPayload creates the JSON payload for a phase change.
func FormatTransitionPayload(tr phase.Transition) ([]byte, error) {
	return json.Marshal(TransitionPayload{
		Signal: SignalInner{
			Timestamp:       tr.Timestamp.UTC().Format(time.RFC3339),
			Event:           EventPhaseChange,
			JunctionID:      tr.JunctionID,
			From:            string(tr.From),
			To:              string(tr.To),
			SecondsToChange: tr.SecondsToChange,
		},
	})
}

// TelemetryPayload is the MQTT payload for a vehicle report.
type TelemetryPayload struct {
	Telemetry TelemetryInner `json:"telemetry"`
}

// TelemetryInner contains the vehicle report details.
type TelemetryInner struct {
	ID         string   `json:"id"`
	ReceivedAt string   `json:"received_at"`
	JunctionID string   `json:"junction_id"`
	Timestamp  float64  `json:"timestamp"`
	DistanceM  float64  `json:"distance_m"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

// FormatTelemetryPayload creates the JSON payload for a vehicle report.
func FormatTelemetryPayload(event TelemetryEvent) ([]byte, error) {
	return json.Marshal(TelemetryPayload{
		Telemetry: TelemetryInner{
			ID:         event.ID,
			ReceivedAt: event.ReceivedAt.UTC().Format(time.RFC3339Nano),
			JunctionID: event.JunctionID,
			Timestamp:  event.Timestamp,
			DistanceM:  event.DistanceM,
			Lat:        event.Lat,
			Lng:        event.Lng,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
