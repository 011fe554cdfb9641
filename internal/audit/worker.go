package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Sink publishes an encoded event to a topic. The Kafka producer satisfies
// this; tests supply an in-memory recorder.
type Sink interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Worker drains the publisher inbox and forwards events to the sink. It keeps
// background processing testable without wiring broker implementations into
// domain services.
type Worker struct {
	inbox  <-chan Event
	sink   Sink
	topic  string
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, sink Sink, topic string, logger *slog.Logger) *Worker {
	return &Worker{inbox: inbox, sink: sink, topic: topic, logger: logger}
}

type wireEvent struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	OrgID     string `json:"org_id,omitempty"`
	AddressID string `json:"address_id,omitempty"`
	Action    string `json:"action"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.forward(ctx, event); err != nil {
				w.logger.Error("audit event publish failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}

func (w *Worker) forward(ctx context.Context, event Event) error {
	wire := wireEvent{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		UserAgent: event.UserAgent,
	}
	if !event.UserID.IsNil() {
		wire.UserID = event.UserID.String()
	}
	if !event.OrgID.IsNil() {
		wire.OrgID = event.OrgID.String()
	}
	if !event.AddressID.IsNil() {
		wire.AddressID = event.AddressID.String()
	}

	value, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	key := []byte(event.Action)
	if wire.UserID != "" {
		key = []byte(wire.UserID)
	}
	return w.sink.Publish(ctx, w.topic, key, value)
}
