package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	id "addresshub/pkg/domain"
)

type recordingSink struct {
	mu      sync.Mutex
	records []struct {
		topic string
		key   []byte
		value []byte
	}
	done chan struct{}
}

func (s *recordingSink) Publish(_ context.Context, topic string, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, struct {
		topic string
		key   []byte
		value []byte
	}{topic, key, value})
	select {
	case s.done <- struct{}{}:
	default:
	}
	return nil
}

func TestWorkerForwardsEvents(t *testing.T) {
	logger := slog.Default()
	publisher := NewPublisher(8, logger)
	sink := &recordingSink{done: make(chan struct{}, 1)}
	worker := NewWorker(publisher.Inbox(), sink, "addresshub.audit", logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	userID := id.UserID(uuid.New())
	require.NoError(t, publisher.Emit(ctx, Event{
		UserID:   userID,
		Action:   string(EventLookupDenied),
		Decision: "denied",
		Reason:   "insufficient_role",
	}))

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not forwarded")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.records, 1)
	require.Equal(t, "addresshub.audit", sink.records[0].topic)
	require.Equal(t, userID.String(), string(sink.records[0].key))

	var wire map[string]any
	require.NoError(t, json.Unmarshal(sink.records[0].value, &wire))
	require.Equal(t, "lookup_denied", wire["action"])
	require.Equal(t, "insufficient_role", wire["reason"])
	require.NotEmpty(t, wire["timestamp"])
}

func TestPublisherDropsWhenFull(t *testing.T) {
	publisher := NewPublisher(1, slog.Default())
	ctx := context.Background()

	require.NoError(t, publisher.Emit(ctx, Event{Action: "first"}))
	require.NoError(t, publisher.Emit(ctx, Event{Action: "second"})) // dropped, not blocked
	require.Len(t, publisher.inbox, 1)
}
