// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// TurnsTotal counts chat turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns by outcome",
		},
		[]string{"outcome"},
	)

	// LLMCallDuration tracks completion call duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Completion call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// EventsAppendedTotal counts debug events written to the store.
	EventsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debug_events_appended_total",
			Help: "Debug events appended to conversation logs",
		},
		[]string{"type", "source"},
	)

	// StoreAppendDuration tracks durable append latency.
	StoreAppendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_store_append_duration_seconds",
			Help:    "Event store append duration",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
		},
		[]string{"backend"},
	)

	// ExtractionFailuresTotal counts render_ui_component calls that were skipped.
	ExtractionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2ui_extraction_failures_total",
			Help: "render_ui_component calls with malformed arguments",
		},
	)

	// ComponentsTotal counts extracted UI components by type.
	ComponentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2ui_components_total",
			Help: "UI components extracted from tool calls",
		},
		[]string{"type"},
	)

	// DebugObserversActive tracks connected websocket and SSE observers.
	DebugObserversActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "debug_observers_active",
			Help: "Number of connected debug event observers",
		},
		[]string{"transport"},
	)

	// DebugEventsDropped counts events not delivered to a slow observer.
	DebugEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "debug_events_dropped_total",
			Help: "Debug events dropped because an observer was behind",
		},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordLLMCall records metrics for a completion call.
func RecordLLMCall(provider, model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(provider, model, status).Observe(duration)
	if tokensIn > 0 {
		LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	}
}

// RecordEventAppended records one durable append.
func RecordEventAppended(backend, eventType, source string, duration float64) {
	StoreAppendDuration.WithLabelValues(backend).Observe(duration)
	EventsAppendedTotal.WithLabelValues(eventType, source).Inc()
}

// IncrementObservers increments the active observer count for a transport.
func IncrementObservers(transport string) {
	DebugObserversActive.WithLabelValues(transport).Inc()
}

// DecrementObservers decrements the active observer count for a transport.
func DecrementObservers(transport string) {
	DebugObserversActive.WithLabelValues(transport).Dec()
}
