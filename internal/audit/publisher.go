package audit

import (
	"context"
	"log/slog"

	"addresshub/pkg/requestcontext"
)

// Publisher hands audit events to a buffered inbox consumed by the Worker.
// Emit never blocks the request path: when the inbox is full the event is
// dropped and counted, which is acceptable for the operational trail (the
// lookup audit log is persisted separately and is never dropped).
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer), logger: logger}
}

// Inbox exposes the receive side for the Worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event", "action", event.Action)
	}
	return nil
}
