package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int
}

// conn is the part of paho.Client the publisher uses.
type conn interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed after reconnecting.
type RealPublisher struct {
	client paho.Client
	conn   conn
	topics Topics
	now    func() time.Time

	mu       sync.Mutex
	buffer   *ringBuffer
	connects int
}

// NewRealPublisher starts connecting to the broker in the background and
// returns immediately. The broker holds a retained SHUTDOWN will that is
// published if the connection drops without a clean disconnect.
func NewRealPublisher(opts Options) *RealPublisher {
	p := newPublisher(opts.Topics, opts.BufferSize, time.Now)

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(opts.Topics.System, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Str("broker", opts.Broker).Msg("mqtt connection lost")
		})

	p.client = paho.NewClient(co)
	p.conn = p.client
	p.client.Connect()
	log.Info().Str("broker", opts.Broker).Str("client_id", opts.ClientID).Msg("mqtt connecting")
	return p
}

func newPublisher(topics Topics, bufferSize int, now func() time.Time) *RealPublisher {
	return &RealPublisher{
		topics: topics,
		now:    now,
		buffer: newRingBuffer(bufferSize),
	}
}

// PublishState sends a state snapshot to the state topic.
func (p *RealPublisher) PublishState(event StateEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), retained so new subscribers see the current state
	return p.publish(message{topic: p.topics.State, payload: payload, retained: true})
}

// PublishSystem sends a system lifecycle event to the system topic.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(message{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// publish sends msg or buffers it while the connection is down. The check
// and the push happen under mu so onConnect cannot drain in between.
func (p *RealPublisher) publish(msg message) error {
	p.mu.Lock()
	if !p.conn.IsConnectionOpen() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.send(msg)
}

func (p *RealPublisher) send(msg message) error {
	token := p.conn.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// onConnect replays buffered messages. Every connect after the first also
// announces RECONNECTED.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.connects++
	reconnect := p.connects > 1
	pending := p.buffer.drain()
	p.mu.Unlock()

	log.Info().Bool("reconnect", reconnect).Int("buffered", len(pending)).Msg("mqtt connected")

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		if err := p.send(message{topic: p.topics.System, payload: payload, qos: 1}); err != nil {
			log.Warn().Err(err).Msg("publish reconnected event")
		}
	}

	for i, msg := range pending {
		if err := p.send(msg); err != nil {
			log.Warn().Err(err).Int("remaining", len(pending)-i).Msg("mqtt replay interrupted")
			p.mu.Lock()
			for _, m := range pending[i:] {
				p.buffer.push(m)
			}
			p.mu.Unlock()
			return
		}
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.conn.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000) // 1 second timeout
	}
	return nil
}
