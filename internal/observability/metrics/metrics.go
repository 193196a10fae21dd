package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the reply pipeline.
type ChatMetrics struct {
	repliesTotal     *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	resolveLatency   prometheus.Histogram
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "indarelin",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Replies returned to visitors, by the stage that produced them",
		}, []string{"source"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "indarelin",
			Subsystem: "chat",
			Name:      "provider_failures_total",
			Help:      "Provider stage failures that caused the pipeline to move on",
		}, []string{"stage", "reason"}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "indarelin",
			Subsystem: "chat",
			Name:      "resolve_seconds",
			Help:      "End-to-end time to resolve one visitor message",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.repliesTotal, m.providerFailures, m.resolveLatency)
	return m
}

func (m *ChatMetrics) ObserveReply(source string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(source).Inc()
}

func (m *ChatMetrics) ObserveProviderFailure(stage, reason string) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(stage, reason).Inc()
}

func (m *ChatMetrics) ObserveResolve(seconds float64) {
	if m == nil {
		return
	}
	m.resolveLatency.Observe(seconds)
}
