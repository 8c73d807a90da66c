package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"weathertelemetry/internal/models"
)

// AppendObservation adds one observation to the stream as a single entry
// with named fields (spec.md §4.3 step 5). Exactly one call per successful
// fetch; failures never reach here (spec.md §3 invariant: "exactly one
// stream append on success, or zero on failure").
func (b *Broker) AppendObservation(ctx context.Context, obs models.Observation) (string, error) {
	id, err := b.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: KeyStream,
		Values: obs.StreamFields(),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append observation: %w", err)
	}
	return id, nil
}

// EnsureConsumerGroup creates the named consumer group at the start of the
// stream if it doesn't already exist, tolerating the "already exists" error
// and propagating any other (spec.md §4.5).
func (b *Broker) EnsureConsumerGroup(ctx context.Context, group string) error {
	err := b.Client.XGroupCreateMkStream(ctx, KeyStream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("ensure consumer group: %w", err)
	}
	return nil
}

// StreamMessage is one entry read off the stream, with its raw string
// field map still undecoded (the consumer decodes with spec'd defaults).
type StreamMessage struct {
	ID     string
	Fields map[string]interface{}
}

// ErrNoMessages signals a blocking read timed out with nothing delivered.
var ErrNoMessages = errors.New("no messages available")

// ReadPending drains up to count of the named consumer's own
// previously-delivered-but-unacknowledged entries (spec.md §4.5 Phase 1,
// crash recovery). Returns ErrNoMessages once the pending list is empty.
func (b *Broker) ReadPending(ctx context.Context, group, consumer string, count int64) ([]StreamMessage, error) {
	return b.readGroup(ctx, group, consumer, "0", count, 0)
}

// ReadNew blocks up to block for up to count new entries (spec.md §4.5
// Phase 2). Returns ErrNoMessages if the block duration elapses with
// nothing delivered.
func (b *Broker) ReadNew(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	return b.readGroup(ctx, group, consumer, ">", count, block)
}

func (b *Broker) readGroup(ctx context.Context, group, consumer, start string, count int64, block time.Duration) ([]StreamMessage, error) {
	res, err := b.Client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{KeyStream, start},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, ErrNoMessages
	}
	if err != nil {
		return nil, fmt.Errorf("read group: %w", err)
	}

	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, ErrNoMessages
	}

	msgs := make([]StreamMessage, len(res[0].Messages))
	for i, m := range res[0].Messages {
		msgs[i] = StreamMessage{ID: m.ID, Fields: m.Values}
	}
	return msgs, nil
}

// Ack acknowledges a stream entry, clearing it from the consumer group's
// pending list (spec.md §4.5: "on handler success, acknowledge the entry").
func (b *Broker) Ack(ctx context.Context, group, id string) error {
	if err := b.Client.XAck(ctx, KeyStream, group, id).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", id, err)
	}
	return nil
}
