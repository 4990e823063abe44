package ndt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher republishes the latest pose and status to MQTT so downstream
// dashboards can follow localization without talking to the HTTP surface.
type Publisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	retain bool
}

// NewPublisher creates a pose publisher. A nil client disables publishing
// (used in tests and when the feed never connected).
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "ndtview"
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		qos:    0,    // fire and forget for pose updates
		retain: true, // retain so late joiners see the latest fix
	}
}

// publishedPose is the wire shape on the pose topic
type publishedPose struct {
	PoseSnapshot
	Timestamp int64 `json:"timestamp"`
}

// PublishPose publishes one pose snapshot to {prefix}/pose
func (p *Publisher) PublishPose(pose PoseSnapshot) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(publishedPose{
		PoseSnapshot: pose,
		Timestamp:    time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling pose: %w", err)
	}

	topic := fmt.Sprintf("%s/pose", p.prefix)
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// PublishStatus publishes the full status snapshot to {prefix}/status
func (p *Publisher) PublishStatus(snap StatusSnapshot) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}

	topic := fmt.Sprintf("%s/status", p.prefix)
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}
