package metrics

import "github.com/prometheus/client_golang/prometheus"

// BroadcastMetrics counts commerce-change signals.
type BroadcastMetrics struct {
	published  *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	if reg == nil {
		return &BroadcastMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_signals_published_total",
		Help: "Signals published by topic.",
	}, []string{"topic"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_signal_deliveries_total",
		Help: "Listener invocations by topic.",
	}, []string{"topic"})
	reg.MustRegister(published, deliveries)
	return &BroadcastMetrics{published: published, deliveries: deliveries}
}

func (b *BroadcastMetrics) IncPublished(topic string) {
	if b == nil || b.published == nil {
		return
	}
	b.published.WithLabelValues(normalizeLabel(topic)).Inc()
}

func (b *BroadcastMetrics) AddDeliveries(topic string, n int) {
	if b == nil || b.deliveries == nil || n <= 0 {
		return
	}
	b.deliveries.WithLabelValues(normalizeLabel(topic)).Add(float64(n))
}
