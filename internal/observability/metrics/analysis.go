package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AnalysisMetrics records the streaming client and outbound call outcomes.
type AnalysisMetrics struct {
	service string

	streamEvents     *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	retriesTotal     *prometheus.CounterVec
	jobWatchTotal    *prometheus.CounterVec
}

func NewAnalysisMetrics(service string, registerer prometheus.Registerer) *AnalysisMetrics {
	streamEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "listing",
			Subsystem: "analysis",
			Name:      "stream_events_total",
			Help:      "Decoded stream events by type and whether they changed state.",
		},
		[]string{"service", "type", "applied"},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "listing",
			Subsystem: "analysis",
			Name:      "fallbacks_total",
			Help:      "One-shot fallbacks taken after a failed stream, by reason.",
		},
		[]string{"service", "reason"},
	)
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "listing",
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Finished analysis runs by mode and status.",
		},
		[]string{"service", "mode", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "listing",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis run duration in seconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120, 180},
		},
		[]string{"service", "mode"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "listing",
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retried outbound calls by operation and failure reason.",
		},
		[]string{"service", "operation", "reason"},
	)
	jobWatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "listing",
			Subsystem: "jobs",
			Name:      "watch_total",
			Help:      "Finished job watches by final status.",
		},
		[]string{"service", "status"},
	)

	registerer.MustRegister(streamEvents, fallbacks, analysesTotal, analysisDuration, retriesTotal, jobWatchTotal)

	return &AnalysisMetrics{
		service:          service,
		streamEvents:     streamEvents,
		fallbacks:        fallbacks,
		analysesTotal:    analysesTotal,
		analysisDuration: analysisDuration,
		retriesTotal:     retriesTotal,
		jobWatchTotal:    jobWatchTotal,
	}
}

func (m *AnalysisMetrics) ObserveStreamEvent(eventType string, applied bool) {
	if eventType == "" {
		eventType = "unknown"
	}
	label := "false"
	if applied {
		label = "true"
	}
	m.streamEvents.WithLabelValues(m.service, eventType, label).Inc()
}

func (m *AnalysisMetrics) ObserveFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.fallbacks.WithLabelValues(m.service, reason).Inc()
}

func (m *AnalysisMetrics) ObserveAnalysis(mode, status string, seconds float64) {
	m.analysesTotal.WithLabelValues(m.service, mode, status).Inc()
	if seconds >= 0 {
		m.analysisDuration.WithLabelValues(m.service, mode).Observe(seconds)
	}
}

func (m *AnalysisMetrics) ObserveRetry(operation, reason string) {
	if reason == "" {
		reason = "error"
	}
	m.retriesTotal.WithLabelValues(m.service, operation, reason).Inc()
}

func (m *AnalysisMetrics) ObserveJobWatch(status string) {
	if status == "" {
		status = "unknown"
	}
	m.jobWatchTotal.WithLabelValues(m.service, status).Inc()
}
