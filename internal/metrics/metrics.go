// Package metrics declares the Prometheus collectors instrumenting the
// fetcher and processor binaries. The promauto package-level-var pattern is
// grounded on the retrieved pack's PayRpc-Bitcoin-Sprint engine.go and
// rajendragosavi-gpu-metrics-telemetry collector main.go, both of which
// register their counters/histograms once at package init and pass them
// around by reference rather than threading a registry through every
// constructor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchSuccessTotal counts upstream fetches that returned a usable
	// observation.
	FetchSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_fetch_success_total",
		Help: "Upstream weather fetches that succeeded.",
	})

	// FetchFailureTotal counts non-throttle, non-timeout fetch failures.
	FetchFailureTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_fetch_failure_total",
		Help: "Upstream weather fetches that failed for a reason other than throttling or timeout.",
	})

	// FetchThrottledTotal counts fetches rejected by the upstream's rate
	// limit (HTTP 429).
	FetchThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_fetch_throttled_total",
		Help: "Upstream weather fetches rejected with HTTP 429.",
	})

	// FetchTimeoutTotal counts fetches that exceeded their deadline.
	FetchTimeoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_fetch_timeout_total",
		Help: "Upstream weather fetches that timed out.",
	})

	// QueueDepth is the last-observed length of the broker's work queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_queue_depth",
		Help: "Number of locations currently waiting in the broker work queue.",
	})

	// WriterFlushDuration measures how long each InfluxDB batch write takes.
	WriterFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weather_writer_flush_duration_seconds",
		Help:    "Time spent writing one batch of points to InfluxDB.",
		Buckets: prometheus.DefBuckets,
	})

	// WriterFlushPoints measures the batch size of each InfluxDB flush.
	WriterFlushPoints = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weather_writer_flush_points",
		Help:    "Number of points written per InfluxDB flush.",
		Buckets: []float64{1, 5, 10, 25, 50, 75, 100},
	})

	// ConsumerAckTotal counts stream entries acknowledged after a
	// successful handler call.
	ConsumerAckTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_consumer_ack_total",
		Help: "Stream entries acknowledged by the processor's consumer.",
	})

	// ConsumerRetryTotal counts stream entries left pending after a parse
	// or handler failure.
	ConsumerRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_consumer_retry_total",
		Help: "Stream entries left pending after a parse or handler failure.",
	})
)
