package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

var log = logrus.WithField("module", "mqtt")

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topics     Topics
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed in order once it
// is back.
type RealPublisher struct {
	client paho.Client
	topics Topics

	mu            sync.Mutex
	buf           *ringBuffer
	connectedOnce bool
	replaying     bool // new messages queue behind the replay
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// cannot be reached within the connect timeout the publisher keeps
// retrying in the background and buffers until connected.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	p := &RealPublisher{
		topics: opts.Topics,
		buf:    newRingBuffer(opts.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventOffline,
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetKeepAlive(60*time.Second).
		SetBinaryWill(p.topics.System(), will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnf("connection lost: %v", err)
		})

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warnf("broker %s not reachable yet, buffering until connected", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	log.Infof("connected to broker %s", opts.Broker)
	return p, nil
}

// onConnect runs on every (re)connection: it announces reconnections and
// replays anything buffered while the link was down. Messages published
// during the replay are buffered too, and drained in the same pass, so
// the broker sees them in publish order.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	p.replaying = true
	p.mu.Unlock()

	if reconnect {
		log.Info("reconnected, replaying buffered messages")
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected})
		if err := p.send(p.topics.System(), 1, false, payload); err != nil {
			log.Warnf("publish reconnected event: %v", err)
		}
	}

	for {
		p.mu.Lock()
		pending := p.buf.drainAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for i, m := range pending {
			if !p.client.IsConnectionOpen() {
				p.requeue(pending[i:])
				return
			}
			if err := p.send(m.topic, m.qos, m.retained, m.payload); err != nil {
				log.Warnf("replay to %s: %v", m.topic, err)
			}
		}
	}
}

// requeue puts unsent replay messages back in front of anything buffered
// since, and ends the replay. The next connection picks them up.
func (p *RealPublisher) requeue(unsent []bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range append(unsent, p.buf.drainAll()...) {
		p.buf.push(m)
	}
	p.replaying = false
}

// PublishPrediction sends a served prediction to the broker.
func (p *RealPublisher) PublishPrediction(event PredictionEvent) error {
	payload, err := FormatPredictionPayload(event)
	if err != nil {
		return fmt.Errorf("format prediction payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(p.topics.Prediction(event.Prediction.JunctionID), 0, false, payload)
}

// PublishTransition sends a phase change to the broker. The latest phase
// is retained so new subscribers see the current state.
func (p *RealPublisher) PublishTransition(tr phase.Transition) error {
	payload, err := FormatTransitionPayload(tr)
	if err != nil {
		return fmt.Errorf("format transition payload: %w", err)
	}
	return p.publish(p.topics.Transition(tr.JunctionID), 1, true, payload)
}

// PublishTelemetry sends a vehicle report to the broker.
func (p *RealPublisher) PublishTelemetry(event TelemetryEvent) error {
	payload, err := FormatTelemetryPayload(event)
	if err != nil {
		return fmt.Errorf("format telemetry payload: %w", err)
	}
	return p.publish(p.topics.Telemetry(event.JunctionID), 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(p.topics.System(), 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if p.replaying || !p.client.IsConnectionOpen() {
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.send(topic, qos, retained, payload)
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		log.Warnf("closing with %d unsent messages", n)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
