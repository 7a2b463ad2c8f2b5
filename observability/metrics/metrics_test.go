package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func read(t *testing.T, m prometheus.Metric) *dto.Metric {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return &out
}

func TestObserveAggregation(t *testing.T) {
	before := read(t, AggregationTotal).GetCounter().GetValue()
	samples := read(t, AggregationLatency).GetHistogram().GetSampleCount()

	ObserveAggregation(time.Now().Add(-10 * time.Millisecond))

	if got := read(t, AggregationTotal).GetCounter().GetValue(); got != before+1 {
		t.Errorf("AggregationTotal = %v, want %v", got, before+1)
	}
	h := read(t, AggregationLatency).GetHistogram()
	if h.GetSampleCount() != samples+1 {
		t.Errorf("latency samples = %d, want %d", h.GetSampleCount(), samples+1)
	}
	if h.GetSampleSum() < 0.01 {
		t.Errorf("latency sum = %v, want at least 0.01", h.GetSampleSum())
	}
}

func TestGossipMessagesByTopic(t *testing.T) {
	block := GossipMessagesTotal.WithLabelValues("block")
	att := GossipMessagesTotal.WithLabelValues("attestation")
	b0 := read(t, block).GetCounter().GetValue()
	a0 := read(t, att).GetCounter().GetValue()

	block.Inc()
	block.Inc()
	att.Inc()

	if got := read(t, block).GetCounter().GetValue(); got != b0+2 {
		t.Errorf("block messages = %v, want %v", got, b0+2)
	}
	if got := read(t, att).GetCounter().GetValue(); got != a0+1 {
		t.Errorf("attestation messages = %v, want %v", got, a0+1)
	}
}
