package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrClosed is returned when sending on a closed sink.
var ErrClosed = errors.New("feedback: sink closed")

// DefaultSubject is the NATS subject feedback events are published to.
const DefaultSubject = "typix.feedback"

// NATSSink publishes feedback events to a NATS subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	closed  atomic.Bool
	ownConn bool
}

// NATSConfig configures a NATSSink.
type NATSConfig struct {
	URL     string
	Subject string
	Name    string
	Timeout time.Duration
}

// NewNATSSink connects to NATS and returns a publishing sink.
func NewNATSSink(cfg NATSConfig) (*NATSSink, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSSink{conn: conn, subject: cfg.Subject, ownConn: true}, nil
}

// NewNATSSinkFromConn wraps an existing connection. Useful for testing with
// an embedded server; the connection is not closed by Close.
func NewNATSSinkFromConn(conn *nats.Conn, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

// Send publishes the event as JSON.
func (s *NATSSink) Send(_ context.Context, event Event) error {
	if s.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode feedback event: %w", err)
	}
	return s.conn.Publish(s.subject, data)
}

// Close flushes and, when the sink owns the connection, closes it.
func (s *NATSSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.conn == nil {
		return nil
	}
	s.conn.Flush()
	if s.ownConn {
		s.conn.Close()
	}
	return nil
}
