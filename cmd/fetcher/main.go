// Command fetcher runs the scheduler, worker pool, and analytics reporter
// that together enqueue and drain one 60-second cycle of weather fetches at
// a time, per spec.md §4.2-4.3 and §4.7. The overall shape -- parse config,
// build dependencies, start each long-running component in its own
// goroutine, block on a cancellable context, shut down on signal -- follows
// the teacher's main.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"weathertelemetry/internal/analytics"
	"weathertelemetry/internal/broker"
	"weathertelemetry/internal/buildinfo"
	"weathertelemetry/internal/config"
	"weathertelemetry/internal/fetchclient"
	"weathertelemetry/internal/fetcher"
	"weathertelemetry/internal/locations"
	"weathertelemetry/internal/metrics"
	"weathertelemetry/internal/metricsserver"
)

func main() {
	configPath := flag.String("config", "", "optional YAML file overriding environment configuration")
	flag.Parse()

	log.Printf("weathertelemetry fetcher starting (build %s)", buildinfo.Commit)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	b, err := broker.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("connect to redis: %v", err)
	}
	defer b.Close()

	limiter := broker.NewRateLimiter(b, cfg.BucketCapacity, cfg.RefillRate)
	fetch := fetchclient.New(cfg.UseMock, cfg.WorkerCount)
	store := analytics.NewStore()
	health := metricsserver.NewFetchHealth(cfg.UseMock)

	scheduler := fetcher.NewScheduler(b, locations.Catalog)
	pool := fetcher.NewPool(b, limiter, fetch, store, health, cfg.WorkerCount)
	reporter := analytics.NewReporter(b, store)
	metricsSrv := metricsserver.New(cfg.MetricsAddr(), health.Healthy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[metrics] listening on %s", cfg.MetricsAddr())
		if err := metricsSrv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server failed: %v", err)
		}
	}()
	go pollQueueDepth(ctx, b)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); reporter.Run(ctx) }()
	go func() { defer wg.Done(); scheduler.Run(ctx) }()
	go func() {
		defer wg.Done()
		if err := pool.Run(ctx); err != nil {
			log.Fatalf("[pool] fatal: %v", err)
		}
	}() // blocks until every worker has drained ctx.Done(), or a worker hits a fatal error

	<-ctx.Done()
	log.Println("shutdown signal received, draining in-flight fetches")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown: %v", err)
	}
	log.Println("fetcher stopped")
}

// pollQueueDepth keeps the queue depth gauge current without requiring the
// worker pool to know about Prometheus at all.
func pollQueueDepth(ctx context.Context, b *broker.Broker) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := b.QueueDepth(ctx)
			if err != nil {
				continue
			}
			metrics.QueueDepth.Set(float64(depth))
		}
	}
}
