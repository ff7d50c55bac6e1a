package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	ChunksIndexed       metric.Int64Counter
	IngestDuration      metric.Float64Histogram
	CompletionAttempts  metric.Int64Counter
	CompletionFallbacks metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("csv-rag-service")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"ingest.chunks.indexed",
		metric.WithDescription("Total chunks written to the vector store"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"ingest.duration",
		metric.WithDescription("Ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	completionAttempts, err := meter.Int64Counter(
		"completion.attempts",
		metric.WithDescription("Completion API attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	completionFallbacks, err := meter.Int64Counter(
		"completion.fallbacks",
		metric.WithDescription("Degraded answers served after connection timeouts"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		ChunksIndexed:       chunksIndexed,
		IngestDuration:      ingestDuration,
		CompletionAttempts:  completionAttempts,
		CompletionFallbacks: completionFallbacks,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngest records a finished ingestion.
func (m *Metrics) RecordIngest(chunks int, duration float64, status string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("ingest.status", status))

	m.ChunksIndexed.Add(context.Background(), int64(chunks), attrs)
	m.IngestDuration.Record(context.Background(), duration, attrs)
}

// RecordCompletionAttempt records one completion API attempt.
func (m *Metrics) RecordCompletionAttempt(model, outcome string) {
	if m == nil {
		return
	}
	m.CompletionAttempts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("completion.model", model),
		attribute.String("completion.outcome", outcome),
	))
}

// RecordCompletionFallback records a degraded answer.
func (m *Metrics) RecordCompletionFallback(model string) {
	if m == nil {
		return
	}
	m.CompletionFallbacks.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("completion.model", model),
	))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
