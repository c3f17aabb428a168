// Package events publishes booking lifecycle notifications to an MQTT broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ukydev/vehicle-rental/internal/models"
)

// Event types.
const (
	BookingCreated             = "booking.created"
	BookingStatusChanged       = "booking.status-changed"
	VehicleAvailabilityChanged = "vehicle.availability-changed"
)

// Event is the envelope published for every notification.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// BookingData is the payload of booking events.
type BookingData struct {
	BookingID      string               `json:"bookingId"`
	VehicleID      string               `json:"vehicleId"`
	UserID         string               `json:"userId"`
	Status         models.BookingStatus `json:"status"`
	PreviousStatus models.BookingStatus `json:"previousStatus,omitempty"`
	StartDate      time.Time            `json:"startDate"`
	EndDate        time.Time            `json:"endDate"`
}

// NewBookingData builds the payload for b.
func NewBookingData(b *models.Booking, previous models.BookingStatus) BookingData {
	return BookingData{
		BookingID:      b.ID.Hex(),
		VehicleID:      b.Vehicle.Hex(),
		UserID:         b.User.Hex(),
		Status:         b.Status,
		PreviousStatus: previous,
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
	}
}

// AvailabilityData is the payload of vehicle.availability-changed.
type AvailabilityData struct {
	VehicleID   string                `json:"vehicleId"`
	BookedDates []models.DateInterval `json:"bookedDates"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}

// MQTTPublisher publishes events as JSON at QoS 1 to <prefix>/<type>, with
// dots in the type turned into topic levels.
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

// Connect dials broker and returns a publisher on it.
func Connect(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return NewMQTTPublisher(client, prefix), nil
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), timeout: 5 * time.Second}
}

// Topic returns the topic an event type is published on.
func (p *MQTTPublisher) Topic(eventType string) string {
	topic := strings.ReplaceAll(eventType, ".", "/")
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "/" + topic
}

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	token := p.client.Publish(p.Topic(event.Type), 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish %s: timed out", event.Type)
	}
	return token.Error()
}

// Close disconnects from the broker, waiting briefly for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
