package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"csv-rag-service/internal/logger"
	"csv-rag-service/internal/telemetry"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardedEmbedder protects a remote embedding provider with a token-bucket
// rate limiter and a circuit breaker shared by all requests.
type GuardedEmbedder struct {
	inner       Embedder
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewGuardedEmbedder(inner Embedder, rpm int, metrics *telemetry.Metrics) *GuardedEmbedder {
	if rpm <= 0 {
		rpm = 600
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Embeddings:" + inner.Name(),
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	return &GuardedEmbedder{
		inner:       inner,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

func (g *GuardedEmbedder) Name() string { return g.inner.Name() }

func (g *GuardedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embeddings rate limiter: %w", err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.EmbedTexts(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("embedding service unavailable: %w", err)
		}
		return nil, err
	}
	return result.([][]float32), nil
}

// Close releases the wrapped provider if it holds resources.
func (g *GuardedEmbedder) Close() error {
	if c, ok := g.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
