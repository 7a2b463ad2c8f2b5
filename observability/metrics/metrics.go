// Package metrics defines the node's Prometheus collectors and the /metrics endpoint.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AggregationTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lean_pq_aggregation_total",
		Help: "Total number of PQ aggregation operations.",
	})

	AggregationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lean_pq_aggregation_latency_seconds",
		Help:    "Latency of PQ aggregation operations.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	GossipMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lean_gossip_messages_total",
		Help: "Total number of gossip messages processed.",
	}, []string{"topic"})

	StoreWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lean_store_writes_total",
		Help: "Total number of consensus objects written to the chain store.",
	}, []string{"kind"})

	HeadSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lean_head_slot",
		Help: "Slot of the latest stored head block.",
	})
)

// ObserveAggregation records one aggregation that started at start.
func ObserveAggregation(start time.Time) {
	AggregationTotal.Inc()
	AggregationLatency.Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
