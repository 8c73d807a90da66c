// Package consumer drains the broker's observation stream under a stable
// consumer group name and hands each entry to a record handler, per
// spec.md §4.5. The go-redis stream API shape (group creation with
// BUSYGROUP tolerance, XReadGroup args, per-message ack) is grounded on
// other_examples' brokle-ai-brokle telemetry stream consumer; the
// log-and-leave-pending error posture on the teacher's AsyncWorker.
package consumer

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"weathertelemetry/internal/broker"
	"weathertelemetry/internal/metrics"
	"weathertelemetry/internal/models"
)

const (
	pendingBatchSize = 50
	newBatchSize     = 50
	blockDuration    = 5 * time.Second
)

// RecordHandler persists one parsed observation. The consumer acknowledges
// the stream entry only when this returns nil.
type RecordHandler func(ctx context.Context, obs models.Observation) error

// Consumer runs the two-phase read loop described in spec.md §4.5.
type Consumer struct {
	broker  *broker.Broker
	group   string
	name    string
	handler RecordHandler
}

// New builds a Consumer reading group/name off the broker's stream.
func New(b *broker.Broker, group, name string, handler RecordHandler) *Consumer {
	return &Consumer{broker: b, group: group, name: name, handler: handler}
}

// Run ensures the consumer group exists, drains any pending entries left
// from a prior crash, then loops reading new entries until ctx is
// cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.broker.EnsureConsumerGroup(ctx, c.group); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}

	log.Printf("[consumer %s] recovering pending entries", c.name)
	c.drainPending(ctx)

	log.Printf("[consumer %s] reading new entries", c.name)
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := c.broker.ReadNew(ctx, c.group, c.name, newBatchSize, blockDuration)
		if err != nil {
			if err == broker.ErrNoMessages || ctx.Err() != nil {
				continue
			}
			log.Printf("[consumer %s] read new: %v", c.name, err)
			continue
		}
		c.handleAll(ctx, msgs)
	}
}

// drainPending handles this consumer's pending entries batch by batch. An
// entry that fails again stays pending; phase 1 ends once the pending list
// is empty or a read returns only entries already tried in this pass.
func (c *Consumer) drainPending(ctx context.Context) {
	tried := make(map[string]bool)
	for {
		msgs, err := c.broker.ReadPending(ctx, c.group, c.name, pendingBatchSize)
		if err == broker.ErrNoMessages {
			return
		}
		if err != nil {
			log.Printf("[consumer %s] read pending: %v", c.name, err)
			return
		}
		var fresh []broker.StreamMessage
		for _, msg := range msgs {
			if !tried[msg.ID] {
				tried[msg.ID] = true
				fresh = append(fresh, msg)
			}
		}
		if len(fresh) == 0 {
			return
		}
		c.handleAll(ctx, fresh)
	}
}

func (c *Consumer) handleAll(ctx context.Context, msgs []broker.StreamMessage) {
	for _, msg := range msgs {
		obs, err := parseObservation(msg.Fields)
		if err != nil {
			log.Printf("[consumer %s] entry %s: %v (left pending)", c.name, msg.ID, err)
			metrics.ConsumerRetryTotal.Inc()
			continue
		}
		if err := c.handler(ctx, obs); err != nil {
			log.Printf("[consumer %s] handler failed for %s: %v (left pending)", c.name, msg.ID, err)
			metrics.ConsumerRetryTotal.Inc()
			continue
		}
		if err := c.broker.Ack(ctx, c.group, msg.ID); err != nil {
			log.Printf("[consumer %s] ack %s: %v", c.name, msg.ID, err)
			continue
		}
		metrics.ConsumerAckTotal.Inc()
	}
}

// parseObservation applies spec.md §4.5's field defaults (city "unknown",
// numerics 0, condition "unknown", timestamp now on absence). An unparsable
// recorded_at -- as opposed to a missing one -- is treated as a handler
// failure so the entry stays pending rather than silently defaulting to
// epoch 0, which would corrupt the store's time axis.
func parseObservation(fields map[string]interface{}) (models.Observation, error) {
	obs := models.Observation{
		City:      stringField(fields, "city_name", "unknown"),
		Lat:       floatField(fields, "latitude"),
		Lon:       floatField(fields, "longitude"),
		Condition: stringField(fields, "weather_condition", "unknown"),
	}
	obs.Temperature = floatField(fields, "temperature")

	raw, present := fields["recorded_at"]
	if !present {
		obs.RecordedAt = time.Now().UTC()
		return obs, nil
	}

	s, ok := raw.(string)
	if !ok {
		return models.Observation{}, fmt.Errorf("recorded_at field has non-string type %T", raw)
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return models.Observation{}, fmt.Errorf("parse recorded_at %q: %w", s, err)
	}
	obs.RecordedAt = ts.UTC()
	return obs, nil
}

func stringField(fields map[string]interface{}, key, fallback string) string {
	v, ok := fields[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

func floatField(fields map[string]interface{}, key string) float64 {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
