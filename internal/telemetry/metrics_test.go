package telemetry

import (
	"testing"

	"csv-rag-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_NoopProvider(t *testing.T) {
	m, err := InitMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.RecordRequest("POST", "/upload", "success", 0.25)
		m.RecordIngest(10, 0.5, "success")
		m.RecordCompletionAttempt("llama3-70b-8192", "ok")
		m.RecordCompletionFallback("llama3-70b-8192")
		m.RecordCircuitBreakerState("embeddings", "open")
	})
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/", "success", 0)
		m.RecordIngest(1, 0, "error")
		m.RecordCompletionAttempt("m", "timeout")
		m.RecordCompletionFallback("m")
		m.RecordCircuitBreakerState("s", "closed")
	})
}

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracer(&config.Config{OTelEnabled: false})
	require.NoError(t, err)
	assert.NotPanics(t, shutdown)
}
