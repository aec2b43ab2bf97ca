package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is where track events are published.
const DefaultSubject = "segsweep.tracks"

// TrackEvent reports the outcome of one track of a run.
type TrackEvent struct {
	RunID      string    `json:"run_id"`
	Track      string    `json:"track"`
	Feature    string    `json:"feature"`
	Outcome    string    `json:"outcome"`
	DurationMS int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher sends track events somewhere.
type Publisher interface {
	PublishTrack(ctx context.Context, ev TrackEvent) error
	Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishTrack(context.Context, TrackEvent) error { return nil }
func (Nop) Close()                                         {}

type NatsClient struct {
	conn    *nats.Conn
	subject string
}

func NewNatsClient(url, subject string) (*NatsClient, error) {
	opts := []nats.Option{
		nats.Name("segsweep"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &NatsClient{conn: nc, subject: subject}, nil
}

// Close flushes pending events and closes the connection.
func (n *NatsClient) Close() {
	if n.conn != nil && !n.conn.IsClosed() {
		_ = n.conn.Flush()
		n.conn.Close()
	}
}

// PublishTrack uses core NATS publish; there is no delivery acknowledgement.
func (n *NatsClient) PublishTrack(ctx context.Context, ev TrackEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, b)
}
