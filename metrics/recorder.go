// Package metrics exposes the Prometheus collectors for turns, tool calls and retrieval.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes.
const (
	OutcomeAnswered = "answered"
	OutcomeFailed   = "failed"
)

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	registry          *prometheus.Registry
	turnsTotal        *prometheus.CounterVec
	toolCallsTotal    *prometheus.CounterVec
	retrievalTotal    *prometheus.CounterVec
	routingIterations prometheus.Histogram
}

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_turns_total",
			Help: "Conversational turns by outcome.",
		}, []string{"outcome"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_tool_calls_total",
			Help: "Tool calls dispatched by the routing controller.",
		}, []string{"tool", "status"}),
		retrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_retrieval_total",
			Help: "Retrieval searches by the strategy that produced the result.",
		}, []string{"strategy"}),
		routingIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragchat_routing_iterations",
			Help:    "Reasoning steps needed to finish a turn.",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
		}),
	}

	reg.MustRegister(
		r.turnsTotal,
		r.toolCallsTotal,
		r.retrievalTotal,
		r.routingIterations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) RecordTurn(outcome string) {
	if r == nil {
		return
	}
	r.turnsTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordToolCall(tool, status string) {
	if r == nil {
		return
	}
	r.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func (r *Recorder) RecordRetrieval(strategy string) {
	if r == nil {
		return
	}
	r.retrievalTotal.WithLabelValues(strategy).Inc()
}

func (r *Recorder) ObserveRoutingIterations(n int) {
	if r == nil {
		return
	}
	r.routingIterations.Observe(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests that gather values directly.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
