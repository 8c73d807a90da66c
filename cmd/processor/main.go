// Command processor drains the broker's observation stream under a stable
// consumer group and writes each parsed observation to InfluxDB, per
// spec.md §4.5-4.6. Shape mirrors cmd/fetcher: parse config, build
// dependencies, start each component in its own goroutine, shut down on
// signal.
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

	"weathertelemetry/internal/broker"
	"weathertelemetry/internal/buildinfo"
	"weathertelemetry/internal/config"
	"weathertelemetry/internal/consumer"
	"weathertelemetry/internal/metricsserver"
	"weathertelemetry/internal/models"
	"weathertelemetry/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "optional YAML file overriding environment configuration")
	flag.Parse()

	log.Printf("weathertelemetry processor starting (build %s)", buildinfo.Commit)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.RequireInflux(); err != nil {
		log.Fatalf("%v", err)
	}

	b, err := broker.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("connect to redis: %v", err)
	}
	defer b.Close()

	w, err := writer.New(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	if err != nil {
		log.Fatalf("connect to influxdb: %v", err)
	}

	handler := func(_ context.Context, obs models.Observation) error {
		w.Write(obs)
		return nil
	}
	c := consumer.New(b, cfg.ConsumerGroup, cfg.ConsumerName, handler)

	// The processor is always considered healthy once it is serving
	// traffic: a stuck Influx write shows up as a growing pending count on
	// the stream, not a crash, so there is no useful false/true signal for
	// /healthz to report here beyond "process is up".
	metricsSrv := metricsserver.New(cfg.MetricsAddr(), func() bool { return true })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[metrics] listening on %s", cfg.MetricsAddr())
		if err := metricsSrv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.Run(ctx); err != nil {
			log.Printf("[consumer] stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown signal received, draining the consumer")
	wg.Wait()

	if err := w.Close(); err != nil {
		log.Printf("writer close: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown: %v", err)
	}
	log.Println("processor stopped")
}
