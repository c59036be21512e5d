package status

import (
	"encoding/json"
	"time"
)

// ServiceName identifies the service in status output.
const ServiceName = "GLOSA AI Service"

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Service       string       `json:"service"`
	Provider      string       `json:"provider"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Signal        *SignalJSON  `json:"signal,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of request counts.
type CountsJSON struct {
	Predictions int `json:"predictions"`
	Green       int `json:"green"`
	Red         int `json:"red"`
	Amber       int `json:"amber"`
	Advisories  int `json:"advisories"`
}

// SignalJSON reports the local junction's live phase.
type SignalJSON struct {
	JunctionID      string          `json:"junction_id"`
	Ready           bool            `json:"ready"`
	CurrentStatus   string          `json:"current_status"`
	SecondsToChange float64         `json:"seconds_to_change"`
	Transitions     TransitionsJSON `json:"transitions"`
}

// TransitionsJSON counts transitions into each phase.
type TransitionsJSON struct {
	Green int `json:"green"`
	Red   int `json:"red"`
	Amber int `json:"amber"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of service config.
type ConfigJSON struct {
	HTTPAddr      string `json:"http_addr"`
	Broker        string `json:"broker,omitempty"`
	TopicPrefix   string `json:"topic_prefix,omitempty"`
	TickMs        int64  `json:"tick_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Junction      string `json:"junction,omitempty"`
	Lamp          bool   `json:"lamp"`
	CloudEndpoint string `json:"cloud_endpoint,omitempty"`
	CloudRegion   string `json:"cloud_region,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	cfg := snap.Config
	return StatusInner{
		Service:       ServiceName,
		Provider:      cfg.Provider(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Enabled:   cfg.Broker != "",
			Connected: snap.MQTTConnected,
			Broker:    cfg.Broker,
		},
		Counts: CountsJSON{
			Predictions: snap.Counts.Predictions(),
			Green:       snap.Counts.Green,
			Red:         snap.Counts.Red,
			Amber:       snap.Counts.Amber,
			Advisories:  snap.Counts.Advisories,
		},
		Config: ConfigJSON{
			HTTPAddr:      cfg.HTTPAddr,
			Broker:        cfg.Broker,
			TopicPrefix:   cfg.TopicPrefix,
			TickMs:        cfg.TickMs,
			HeartbeatMs:   cfg.HeartbeatMs,
			Junction:      cfg.Junction,
			Lamp:          cfg.Lamp,
			CloudEndpoint: cfg.CloudEndpoint,
			CloudRegion:   cfg.CloudRegion,
		},
	}
}

func buildSignal(snap Snapshot, inner *StatusInner) {
	if snap.Config.Junction == "" {
		return
	}
	sig := &SignalJSON{
		JunctionID:    snap.Config.Junction,
		Ready:         snap.SignalReady,
		CurrentStatus: "UNKNOWN",
		Transitions: TransitionsJSON{
			Green: snap.Transitions.Green,
			Red:   snap.Transitions.Red,
			Amber: snap.Transitions.Amber,
		},
	}
	if snap.SignalReady {
		sig.CurrentStatus = string(snap.Signal.Status)
		sig.SecondsToChange = snap.Signal.SecondsToChange
	}
	inner.Signal = sig
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

func build(snap Snapshot) StatusInner {
	inner := buildInner(snap)
	buildSignal(snap, &inner)
	buildNetwork(snap, &inner)
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: build(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := build(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
