package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"revisitly-backend/logger"

	"github.com/nats-io/nats.go"
)

// Subjects published by the service.
const (
	CheckinRecorded = "checkin.recorded"
	MessageSent     = "message.sent"
	SweepCompleted  = "sweep.completed"
	PlanChanged     = "billing.plan.changed"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("revisitly-backend"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	l := logger.For("events")
	l.Debug().Str("subject", subject).RawJSON("data", payload).Msg("publishing event")
	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	return n.conn.Drain()
}

// Noop drops every event. It is used when NATS_URL is unset.
type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }
func (Noop) Close() error                                       { return nil }

type CheckinRecordedEvent struct {
	BusinessID     string    `json:"business_id"`
	RelationshipID string    `json:"relationship_id"`
	CustomerEmail  string    `json:"customer_email"`
	Visit          time.Time `json:"visit"`
}

type MessageSentEvent struct {
	BusinessID     string `json:"business_id"`
	RelationshipID string `json:"relationship_id"`
	Type           string `json:"type"`
	Channel        string `json:"channel"`
}

type SweepCompletedEvent struct {
	Sent30Day int       `json:"sent_30day"`
	Sent60Day int       `json:"sent_60day"`
	Errors    int       `json:"errors"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

type PlanChangedEvent struct {
	BusinessID string `json:"business_id"`
	Plan       string `json:"plan"`
	EventType  string `json:"event_type"`
}
