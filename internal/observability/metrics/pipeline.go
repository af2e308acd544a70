package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// Pipeline holds the document workflow series shared by the API and worker.
type Pipeline struct {
	service string

	documentsTotal   *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
}

func newPipeline(registry *prometheus.Registry, service string) *Pipeline {
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_processed_total",
			Help:      "Total processed documents by outcome.",
		},
		[]string{"service", "status"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "document_duration_seconds",
			Help:      "Document workflow duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(documentsTotal, documentDuration, breakerState)

	return &Pipeline{
		service:          service,
		documentsTotal:   documentsTotal,
		documentDuration: documentDuration,
		breakerState:     breakerState,
	}
}

// RecordDocument counts a finished workflow run. A nil info with an error
// means the workflow aborted before producing an outcome.
func (p *Pipeline) RecordDocument(info *domain.MedicalInfo, duration time.Duration, err error) {
	status := "error"
	switch {
	case err != nil:
	case info != nil && info.Status == domain.StatusResolved:
		status = "resolved"
	case info != nil:
		status = "incomplete"
	}
	p.documentsTotal.WithLabelValues(p.service, status).Inc()
	p.documentDuration.WithLabelValues(p.service, status).Observe(duration.Seconds())
}

// ObserveBreaker matches resilience.StateObserver.
func (p *Pipeline) ObserveBreaker(operation string, _, to gobreaker.State) {
	var value float64
	switch to {
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	p.breakerState.WithLabelValues(p.service, operation).Set(value)
}
