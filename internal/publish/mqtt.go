// Package publish implements the Result publisher of spec.md §6:
// publish(FrameResult), non-blocking, lossy-on-backpressure.
//
// Grounded on orion-prototipe/internal/emitter/mqtt.go: same client
// option set (AddBroker/SetClientID/SetAutoReconnect/SetConnectRetry),
// same OnConnect/OnConnectionLost toggling a guarded connected flag, and
// the same per-publish timeout/error-counting shape.
package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/care/orion/internal/types"
)

// MQTTPublisher publishes FrameResults to an MQTT broker, one topic per
// stream.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
	publishQoS  byte

	mu        sync.Mutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTTPublisher builds a client for broker (host:port) and connects.
func NewMQTTPublisher(broker, clientID, topicPrefix string, qos byte) (*MQTTPublisher, error) {
	p := &MQTTPublisher{topicPrefix: topicPrefix, publishQoS: qos}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		p.mu.Lock()
		p.connected = true
		p.mu.Unlock()
		slog.Info("publish: mqtt connected", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
		slog.Warn("publish: mqtt connection lost", "broker", broker, "error", err)
	}

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		return nil, fmt.Errorf("publish: mqtt connect: %w", token.Error())
	}
	return p, nil
}

// Publish implements engine.Publisher: marshals fr to JSON and publishes
// non-blocking, under a short timeout, to <topicPrefix>/<stream_id>.
// Failures are logged and counted, never retried (spec.md §7
// downstream-io).
func (p *MQTTPublisher) Publish(fr types.FrameResult) error {
	payload, err := json.Marshal(fr)
	if err != nil {
		p.mu.Lock()
		p.errors++
		p.mu.Unlock()
		return fmt.Errorf("publish: marshal: %w", err)
	}

	topic := fmt.Sprintf("%s/%s", p.topicPrefix, fr.StreamID)
	token := p.client.Publish(topic, p.publishQoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		p.mu.Lock()
		p.errors++
		p.mu.Unlock()
		return fmt.Errorf("publish: timeout publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		p.mu.Lock()
		p.errors++
		p.mu.Unlock()
		return fmt.Errorf("publish: %w", err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	return nil
}

// Disconnect closes the MQTT connection with a short grace period.
func (p *MQTTPublisher) Disconnect() {
	p.client.Disconnect(250)
}

// Stats reports connection state and publish counters.
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Stats returns a snapshot.
func (p *MQTTPublisher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Connected: p.connected, Published: p.published, Errors: p.errors}
}
