// Package events publishes trip lifecycle changes to an MQTT broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/models"
)

// TopicPrefix is the root of every trip topic: fleet/viajes/{id}/estado.
const TopicPrefix = "fleet/viajes"

// TripEvent describes a change to one trip.
type TripEvent struct {
	TripID    int64                `json:"viajeId"`
	Action    string               `json:"accion"`
	From      models.TripStatus    `json:"estadoAnterior,omitempty"`
	To        models.TripStatus    `json:"estado"`
	Payment   models.PaymentStatus `json:"estadoPagoCliente,omitempty"`
	Actor     string               `json:"usuario"`
	Timestamp time.Time            `json:"timestamp"`
}

// Topic returns the topic the event is published on.
func (e TripEvent) Topic() string {
	return fmt.Sprintf("%s/%d/estado", TopicPrefix, e.TripID)
}

// Publisher delivers trip events.
type Publisher interface {
	Publish(ctx context.Context, event TripEvent) error
	Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TripEvent) error { return nil }
func (NopPublisher) Close()                                   {}

// MQTTPublisher publishes events with QoS 1.
type MQTTPublisher struct {
	client  mqtt.Client
	timeout time.Duration
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(broker, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			log.WithField("broker", broker).Info("Connected to MQTT broker")
		})

	return connect(mqtt.NewClient(opts), broker, 10*time.Second)
}

// connect waits for the first connection. On failure the client is
// disconnected so connect-retry stops in the background.
func connect(client mqtt.Client, broker string, wait time.Duration) (*MQTTPublisher, error) {
	token := client.Connect()
	if !token.WaitTimeout(wait) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return &MQTTPublisher{client: client, timeout: 5 * time.Second}, nil
}

// NewMQTTPublisherWithClient wraps an existing client.
func NewMQTTPublisherWithClient(client mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client, timeout: 5 * time.Second}
}

// Publish sends the event as JSON and waits for the broker acknowledgement.
func (p *MQTTPublisher) Publish(ctx context.Context, event TripEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal trip event: %w", err)
	}
	token := p.client.Publish(event.Topic(), 1, false, payload)

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("mqtt publish %s: timeout", event.Topic())
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
