// Package feedback delivers post-correction telemetry (fix accepted,
// dismissed, issue counts) to an external sink. Delivery is best-effort and
// asynchronous; nothing here ever blocks or fails the typing path.
package feedback

import (
	"context"
	"time"

	"github.com/typixhq/typix/pkg/logging"
)

// Event is one feedback datum reported after a fix or dismissal.
type Event struct {
	RequestID  string `json:"requestId"`
	IssueCount int    `json:"issueCount"`
	// Accepted is nil when the event is not tied to a single issue decision.
	Accepted *bool  `json:"accepted,omitempty"`
	UserEdit string `json:"userEdit,omitempty"`
}

// Sink receives feedback events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, event Event) error
	Close() error
}

// Dispatcher wraps a Sink with fire-and-forget semantics and a per-send
// timeout. Errors are logged and dropped.
type Dispatcher struct {
	sink    Sink
	logger  *logging.Logger
	timeout time.Duration
}

// NewDispatcher builds a dispatcher over sink. A nil sink yields a
// dispatcher that silently drops everything.
func NewDispatcher(sink Sink, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{sink: sink, logger: logger, timeout: 5 * time.Second}
}

// Dispatch sends event in the background.
func (d *Dispatcher) Dispatch(event Event) {
	if d == nil || d.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sink.Send(ctx, event); err != nil {
			d.logger.Log(logging.LevelDebug, logging.CategoryFeedback, "send_failed", "", map[string]any{
				"request_id": event.RequestID,
				"error":      err.Error(),
			})
		}
	}()
}

// Bool is a convenience for populating Event.Accepted.
func Bool(v bool) *bool { return &v }
