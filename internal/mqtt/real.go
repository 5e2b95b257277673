package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	clientID       = "inkdash"
	outboxLimit    = 64
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	quiesceMs      = 250
)

// client is the subset of paho.Client the publisher uses.
type client interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// RealPublisher publishes to an MQTT broker. The dashboard is offline most of
// the time, so it connects only when the network is up and buffers messages
// published while it is not; the buffer is replayed on the next connection.
type RealPublisher struct {
	mu      sync.Mutex
	client  client
	online  func() bool
	outbox  *outbox
	resumed bool
	log     *zap.Logger
}

// NewRealPublisher creates a publisher for broker. online reports whether
// the network link is up; no connection is attempted while it is false.
func NewRealPublisher(broker string, online func() bool, log *zap.Logger) *RealPublisher {
	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetConnectTimeout(connectTimeout).
		SetWill(TopicSystem, string(will), 1, true)

	return newPublisher(paho.NewClient(opts), online, log)
}

func newPublisher(c client, online func() bool, log *zap.Logger) *RealPublisher {
	return &RealPublisher{
		client: c,
		online: online,
		outbox: newOutbox(outboxLimit, log),
		log:    log,
	}
}

// PublishCycle sends a wake-cycle report (QoS 0, not retained).
func (p *RealPublisher) PublishCycle(event CycleEvent) error {
	payload, err := FormatCyclePayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(Message{Topic: TopicCycle, Payload: payload})
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(Message{Topic: TopicSystem, Payload: payload, QoS: 1, Retained: event.Retained})
}

func (p *RealPublisher) publish(msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.online() {
		p.outbox.add(msg)
		p.log.Debug("Network down, buffered MQTT message",
			zap.String("topic", msg.Topic),
			zap.Int("pending", p.outbox.size()),
		)
		return nil
	}

	if err := p.connect(); err != nil {
		p.outbox.add(msg)
		return fmt.Errorf("connect to broker: %w", err)
	}
	p.replay()

	if err := p.send(msg); err != nil {
		p.outbox.add(msg)
		return err
	}
	return nil
}

func (p *RealPublisher) connect() error {
	if p.client.IsConnected() {
		return nil
	}
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.New("connection timeout")
	}
	return token.Error()
}

// replay sends queued messages oldest first. On failure the unsent ones go
// back to the front of the outbox.
func (p *RealPublisher) replay() {
	pending, dropped := p.outbox.take()
	for i, msg := range pending {
		if err := p.send(msg); err != nil {
			p.outbox.restore(pending[i:])
			p.log.Warn("Failed to replay buffered MQTT messages",
				zap.Int("pending", p.outbox.size()),
				zap.Error(err),
			)
			return
		}
	}
	if len(pending) > 0 {
		p.log.Info("Replayed buffered MQTT messages",
			zap.Int("count", len(pending)),
			zap.Int("dropped", dropped),
		)
	}
}

func (p *RealPublisher) send(msg Message) error {
	token := p.client.Publish(msg.Topic, msg.QoS, msg.Retained, msg.Payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

// Disconnect implements Publisher.
func (p *RealPublisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client.IsConnected() {
		p.client.Disconnect(quiesceMs)
	}
}

// Close disconnects from the broker. Queued messages are dropped unless the
// caller saved them with Queued.
func (p *RealPublisher) Close() error {
	p.Disconnect()
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Queued implements Spool.
func (p *RealPublisher) Queued() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.outbox.msgs...)
}

// Resume implements Spool.
func (p *RealPublisher) Resume(msgs []Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resumed {
		return
	}
	p.resumed = true
	if len(msgs) > 0 {
		p.outbox.restore(msgs)
		p.log.Debug("Resumed queued MQTT messages", zap.Int("pending", p.outbox.size()))
	}
}

// Pending returns the number of buffered messages.
func (p *RealPublisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.size()
}
