package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes generation metrics to Prometheus.
type Collector struct {
	generations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	tokens      *prometheus.CounterVec
}

// NewCollector registers the generation metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lamitna",
			Name:      "menu_generations_total",
			Help:      "Menu generation attempts by provenance and settle reason.",
		}, []string{"provenance", "reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lamitna",
			Name:      "menu_generation_seconds",
			Help:      "Time from request to a usable menu.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 12, 16, 25, 30},
		}, []string{"provenance"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lamitna",
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by AI menu generation.",
		}, []string{"kind"}),
	}
	reg.MustRegister(c.generations, c.latency, c.tokens)
	return c
}

// RecordGeneration implements Recorder.
func (c *Collector) RecordGeneration(_ context.Context, m GenerationMetric) error {
	c.generations.WithLabelValues(m.Provenance, m.Reason).Inc()
	c.latency.WithLabelValues(m.Provenance).Observe(m.Latency.Seconds())
	if m.PromptTokens > 0 {
		c.tokens.WithLabelValues("prompt").Add(float64(m.PromptTokens))
	}
	if m.CompletionTokens > 0 {
		c.tokens.WithLabelValues("completion").Add(float64(m.CompletionTokens))
	}
	return nil
}
