package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"weathertelemetry/internal/broker"
	"weathertelemetry/internal/models"
)

func newTestBroker(t *testing.T) *broker.Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &broker.Broker{Client: client}
}

func TestConsumerAcksOnlyOnHandlerSuccess(t *testing.T) {
	t.Parallel()

	b := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good := models.Observation{City: "Tunis", RecordedAt: time.Now().UTC()}
	bad := models.Observation{City: "Rabat", RecordedAt: time.Now().UTC()}
	if _, err := b.AppendObservation(ctx, good); err != nil {
		t.Fatalf("append good: %v", err)
	}
	if _, err := b.AppendObservation(ctx, bad); err != nil {
		t.Fatalf("append bad: %v", err)
	}

	var mu sync.Mutex
	var handled []string
	handler := func(_ context.Context, obs models.Observation) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, obs.City)
		if obs.City == "Rabat" {
			return context.DeadlineExceeded // simulate a downstream write failure
		}
		return nil
	}

	c := New(b, "processor-group", "processor-1", handler)

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(handled)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("handler saw %d entries after 2s, want 2", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	pending, err := b.ReadPending(context.Background(), "processor-group", "processor-1", 10)
	if err != broker.ErrNoMessages && err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(pending) != 1 || pending[0].Fields["city_name"] != "Rabat" {
		t.Fatalf("pending = %+v, want exactly the failed Rabat entry left unacked", pending)
	}
}
