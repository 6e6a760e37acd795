// Package events announces ingested batches on NATS.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to the airport code.
const SubjectPrefix = "flights.ingested."

// BatchIngested is published after an airport's batch was stored.
type BatchIngested struct {
	RunID      string    `json:"run_id"`
	Airport    string    `json:"airport"`
	Flights    int       `json:"flights"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Subject returns the subject for an airport's events.
func Subject(airport string) string {
	return SubjectPrefix + airport
}

// Encode marshals an event for the wire.
func Encode(e BatchIngested) ([]byte, error) {
	return json.Marshal(e)
}

// Publisher sends events to a NATS server.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("flight_tracker"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Publish sends e on its airport's subject.
func (p *Publisher) Publish(e BatchIngested) error {
	data, err := Encode(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(Subject(e.Airport), data); err != nil {
		return fmt.Errorf("publish %s: %w", Subject(e.Airport), err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if err := p.nc.Flush(); err != nil {
		p.nc.Close()
		return err
	}
	p.nc.Close()
	return nil
}
