package broker

import (
	"context"
	"testing"
	"time"

	"weathertelemetry/internal/models"
)

func TestStreamAppendReadAck(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx := context.Background()
	const group = "weather-processor"

	if err := b.EnsureConsumerGroup(ctx, group); err != nil {
		t.Fatalf("EnsureConsumerGroup: %v", err)
	}
	// Creating the same group twice must tolerate BUSYGROUP, not fail.
	if err := b.EnsureConsumerGroup(ctx, group); err != nil {
		t.Fatalf("EnsureConsumerGroup (idempotent): %v", err)
	}

	obs := models.Observation{
		City:        "Berlin",
		Lat:         52.52,
		Lon:         13.405,
		Temperature: 18.4,
		Condition:   "overcast",
		RecordedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	id, err := b.AppendObservation(ctx, obs)
	if err != nil {
		t.Fatalf("AppendObservation: %v", err)
	}
	if id == "" {
		t.Fatalf("AppendObservation returned empty id")
	}

	msgs, err := b.ReadNew(ctx, group, "consumer-1", 10, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("ReadNew returned %d messages, want 1", len(msgs))
	}
	if msgs[0].Fields["city_name"] != "Berlin" {
		t.Fatalf("city_name field = %v, want Berlin", msgs[0].Fields["city_name"])
	}

	// Simulate a crash before ack: a fresh read of pending entries for the
	// same consumer must still see the unacknowledged message.
	pending, err := b.ReadPending(ctx, group, "consumer-1", 10)
	if err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != msgs[0].ID {
		t.Fatalf("ReadPending = %+v, want the unacked entry %s", pending, msgs[0].ID)
	}

	if err := b.Ack(ctx, group, msgs[0].ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	drained, err := b.ReadPending(ctx, group, "consumer-1", 10)
	if err != ErrNoMessages {
		t.Fatalf("ReadPending after ack = (%v, %v), want ErrNoMessages", drained, err)
	}
}

func TestReadNewTimesOutWithoutMessages(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx := context.Background()
	const group = "weather-processor"

	if err := b.EnsureConsumerGroup(ctx, group); err != nil {
		t.Fatalf("EnsureConsumerGroup: %v", err)
	}

	_, err := b.ReadNew(ctx, group, "consumer-1", 10, 50*time.Millisecond)
	if err != ErrNoMessages {
		t.Fatalf("ReadNew on empty stream = %v, want ErrNoMessages", err)
	}
}
