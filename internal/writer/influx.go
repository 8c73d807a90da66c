// Package writer buffers observations and flushes them to InfluxDB, per
// spec.md §4.6. The flush-on-count-or-timer shape is grounded on the
// teacher's ticker-loop pattern (internal/ingester.NetworkPoller.Start);
// the InfluxDB-specific plumbing is grounded on the retrieved pack's only
// InfluxDB-writing manifest (rajendragosavi-gpu-metrics-telemetry).
package writer

import (
	"context"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"weathertelemetry/internal/metrics"
	"weathertelemetry/internal/models"
)

const (
	flushCount    = 100
	flushInterval = time.Second
	queueDepth    = 1000
)

// Writer buffers Observations and flushes them to InfluxDB in batches.
// Write is non-blocking from the caller's perspective: it only has to get
// the observation onto an internal channel.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	points   chan *write.Point
	done     chan struct{}
}

// New connects to InfluxDB at url with token and returns a Writer targeting
// org/bucket. The official client's WriteAPIBlocking is used deliberately
// instead of its own built-in async writer: this package already owns
// batching (spec.md's exact flush policy), so a second buffering layer
// underneath would just add latency and double-count memory.
func New(url, token, org, bucket string) (*Writer, error) {
	client := influxdb2.NewClient(url, token)

	health, err := client.Health(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("writer: influxdb health check: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("writer: influxdb unhealthy: %s", health.Message)
	}

	w := &Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		points:   make(chan *write.Point, queueDepth),
		done:     make(chan struct{}),
	}
	go w.flushLoop()
	return w, nil
}

// Write enqueues obs for the next batch flush. It never blocks on the
// network; it only blocks if the internal queue is completely full, which
// signals the writer cannot keep up with the upstream fetch rate.
func (w *Writer) Write(obs models.Observation) {
	w.points <- newPoint(obs)
}

// newPoint builds the exact point shape spec.md §4.6 requires: measurement
// "weather", tags {city_name, weather_condition}, fields {temperature,
// latitude, longitude}, timestamp from recorded_at.
func newPoint(obs models.Observation) *write.Point {
	return influxdb2.NewPoint(
		"weather",
		map[string]string{
			"city_name":         obs.City,
			"weather_condition": obs.Condition,
		},
		map[string]interface{}{
			"temperature": obs.Temperature,
			"latitude":    obs.Lat,
			"longitude":   obs.Lon,
		},
		obs.RecordedAt,
	)
}

// Close flushes any buffered points and releases the underlying client.
func (w *Writer) Close() error {
	close(w.points)
	<-w.done
	w.client.Close()
	return nil
}

func (w *Writer) flushLoop() {
	defer close(w.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	buf := make([]*write.Point, 0, flushCount)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		start := time.Now()
		if err := w.writeAPI.WritePoint(context.Background(), buf...); err != nil {
			log.Printf("[writer] flush %d points: %v", len(buf), err)
		}
		metrics.WriterFlushDuration.Observe(time.Since(start).Seconds())
		metrics.WriterFlushPoints.Observe(float64(len(buf)))
		buf = buf[:0]
	}

	for {
		select {
		case p, ok := <-w.points:
			if !ok {
				flush()
				return
			}
			buf = append(buf, p)
			if len(buf) >= flushCount {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
