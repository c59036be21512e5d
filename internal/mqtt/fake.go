package mqtt

import (
	"sync"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

// FakePublisher records published events for test assertions.
// It is safe for concurrent use; read the recorded events through the
// accessor methods while other goroutines may still publish.
type FakePublisher struct {
	mu sync.Mutex

	// Predictions contains all prediction events that were published.
	Predictions []PredictionEvent

	// PredictionPayloads contains the JSON payloads for predictions.
	PredictionPayloads [][]byte

	// Transitions contains all phase changes that were published.
	Transitions []phase.Transition

	// TransitionPayloads contains the JSON payloads for phase changes.
	TransitionPayloads [][]byte

	// Telemetry contains all vehicle reports that were published.
	Telemetry []TelemetryEvent

	// TelemetryPayloads contains the JSON payloads for vehicle reports.
	TelemetryPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishPrediction,
	// PublishTransition and PublishTelemetry.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishPrediction records the prediction event.
func (f *FakePublisher) PublishPrediction(event PredictionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPredictionPayload(event)
	if err != nil {
		return err
	}
	f.Predictions = append(f.Predictions, event)
	f.PredictionPayloads = append(f.PredictionPayloads, payload)
	return nil
}

// PublishTransition records the phase change.
func (f *FakePublisher) PublishTransition(tr phase.Transition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatTransitionPayload(tr)
	if err != nil {
		return err
	}
	f.Transitions = append(f.Transitions, tr)
	f.TransitionPayloads = append(f.TransitionPayloads, payload)
	return nil
}

// PublishTelemetry records the vehicle report.
func (f *FakePublisher) PublishTelemetry(event TelemetryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatTelemetryPayload(event)
	if err != nil {
		return err
	}
	f.Telemetry = append(f.Telemetry, event)
	f.TelemetryPayloads = append(f.TelemetryPayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// PredictionEvents returns a copy of the recorded prediction events.
func (f *FakePublisher) PredictionEvents() []PredictionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PredictionEvent(nil), f.Predictions...)
}

// TransitionEvents returns a copy of the recorded phase changes.
func (f *FakePublisher) TransitionEvents() []phase.Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]phase.Transition(nil), f.Transitions...)
}

// TelemetryEvents returns a copy of the recorded vehicle reports.
func (f *FakePublisher) TelemetryEvents() []TelemetryEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TelemetryEvent(nil), f.Telemetry...)
}

// SystemEventsSnapshot returns a copy of the recorded system events.
func (f *FakePublisher) SystemEventsSnapshot() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.SystemEvents...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Predictions = nil
	f.PredictionPayloads = nil
	f.Transitions = nil
	f.TransitionPayloads = nil
	f.Telemetry = nil
	f.TelemetryPayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
