package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"csv-rag-service/internal/config"
	"csv-rag-service/internal/logger"
	"csv-rag-service/internal/telemetry"
	"csv-rag-service/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 10 << 20

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// CompletionRequest is one prompt. ContextChunks are only used to build the
// degraded answer when the API cannot be reached.
type CompletionRequest struct {
	System        string
	User          string
	Temperature   float64
	ContextChunks []string
}

// Completion is the outcome of a successful Complete call.
type Completion struct {
	Text     string
	Degraded bool
	Attempts int
}

// Sleeper waits between attempts.
type Sleeper func(ctx context.Context, d time.Duration) error

type CompletionClient struct {
	apiKey       string
	apiURL       string
	model        string
	maxAttempts  int
	initialDelay time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	sleep        Sleeper
	metrics      *telemetry.Metrics
}

type CompletionOption func(*CompletionClient)

// WithHTTPClient replaces the per-attempt HTTP client.
func WithHTTPClient(hc *http.Client) CompletionOption {
	return func(c *CompletionClient) { c.httpClient = hc }
}

// WithSleeper replaces the backoff sleep.
func WithSleeper(s Sleeper) CompletionOption {
	return func(c *CompletionClient) { c.sleep = s }
}

func WithMetrics(m *telemetry.Metrics) CompletionOption {
	return func(c *CompletionClient) { c.metrics = m }
}

func NewCompletionClient(cfg *config.Config, opts ...CompletionOption) *CompletionClient {
	timeout := time.Duration(cfg.CompletionTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	attempts := cfg.CompletionMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := time.Duration(cfg.CompletionInitialDelay) * time.Second
	if delay <= 0 {
		delay = 2 * time.Second
	}

	// Connect, TLS and response headers each get the full timeout. No
	// http.Client.Timeout: a dial timeout must surface as *net.OpError.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	c := &CompletionClient{
		apiKey:       cfg.CompletionAPIKey,
		apiURL:       cfg.CompletionAPIURL,
		model:        cfg.CompletionModel,
		maxAttempts:  attempts,
		initialDelay: delay,
		timeout:      timeout,
		httpClient:   &http.Client{Transport: transport},
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CompletionClient) Model() string { return c.model }

type attemptOutcome int

const (
	outcomeOK attemptOutcome = iota
	outcomeBadStatus
	outcomeConnectTimeout
	outcomeFailure
)

func (o attemptOutcome) String() string {
	switch o {
	case outcomeOK:
		return "ok"
	case outcomeBadStatus:
		return "bad_status"
	case outcomeConnectTimeout:
		return "connect_timeout"
	default:
		return "failure"
	}
}

// Complete sends the prompt with up to maxAttempts tries, sleeping
// initialDelay, 2*initialDelay, ... between them. A connection timeout on
// the last attempt yields a degraded local answer instead of an error; a
// non-200 status yields *models.UpstreamError and any other failure
// *models.TransportError.
func (c *CompletionClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	tracer := otel.Tracer("completion-client")
	ctx, span := tracer.Start(ctx, "completion.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("completion.model", c.model),
		attribute.Int("completion.context_chunks", len(req.ContextChunks)),
	)

	body, err := json.Marshal(ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	logger.InfoContext(ctx, "Sending request to completion API", "model", c.model, "prompt_bytes", len(req.User))

	delay := c.initialDelay
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.apiKey == "" {
			return nil, models.ErrMissingCredential
		}
		final := attempt == c.maxAttempts

		text, outcome, err := c.do(ctx, body)
		c.metrics.RecordCompletionAttempt(c.model, outcome.String())
		span.AddEvent("completion.attempt", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("outcome", outcome.String()),
		))

		switch outcome {
		case outcomeOK:
			logger.InfoContext(ctx, "Answer received successfully", "attempt", attempt)
			return &Completion{Text: text, Attempts: attempt}, nil

		case outcomeBadStatus:
			logger.ErrorContext(ctx, "Completion API error", "attempt", attempt, "max_attempts", c.maxAttempts, "error", err)
			if final {
				return nil, err
			}

		case outcomeConnectTimeout:
			logger.WarnContext(ctx, "Completion API connection timeout", "attempt", attempt, "max_attempts", c.maxAttempts)
			if final {
				logger.WarnContext(ctx, "Could not connect to completion API, answering from retrieved context")
				c.metrics.RecordCompletionFallback(c.model)
				span.SetAttributes(attribute.Bool("completion.degraded", true))
				return &Completion{Text: DegradedAnswer(req.ContextChunks), Degraded: true, Attempts: attempt}, nil
			}

		default:
			logger.ErrorContext(ctx, "Completion API request failed", "attempt", attempt, "max_attempts", c.maxAttempts, "error", err)
			if final {
				return nil, &models.TransportError{Attempts: attempt, Err: err}
			}
		}

		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("completion retry aborted: %w", err)
		}
		delay *= 2
	}

	// maxAttempts is always >= 1, so the loop returns before this point.
	return nil, &models.TransportError{Attempts: c.maxAttempts, Err: errors.New("no attempts made")}
}

func (c *CompletionClient) do(ctx context.Context, body []byte) (string, attemptOutcome, error) {
	// The attempt deadline outlasts connect plus response so the dialer's
	// own timeout always fires first on an unreachable host.
	ctx, cancel := context.WithTimeout(ctx, 2*c.timeout+5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", outcomeFailure, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isConnectTimeout(err) {
			return "", outcomeConnectTimeout, err
		}
		return "", outcomeFailure, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", outcomeFailure, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", outcomeBadStatus, &models.UpstreamError{StatusCode: resp.StatusCode, Body: string(payload)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(payload, &chatResp); err != nil {
		return "", outcomeFailure, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", outcomeFailure, fmt.Errorf("no choices in response")
	}
	return chatResp.Choices[0].Message.Content, outcomeOK, nil
}

// isConnectTimeout reports whether err happened while establishing the
// connection (TCP dial or TLS handshake) rather than after it.
func isConnectTimeout(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Timeout() {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && strings.Contains(err.Error(), "TLS handshake timeout") {
		return true
	}
	return false
}

// DegradedAnswer summarises up to three context chunks by their first field.
func DegradedAnswer(contextChunks []string) string {
	var b strings.Builder
	b.WriteString("Sorry, there was a problem connecting to the completion API. However, I found the following information related to your query:\n\n")

	n := len(contextChunks)
	if n > 3 {
		n = 3
	}
	lines := make([]string, 0, n)
	for _, chunk := range contextChunks[:n] {
		first, _, _ := strings.Cut(chunk, " | ")
		lines = append(lines, "- "+first)
	}
	b.WriteString(strings.Join(lines, "\n"))

	b.WriteString("\n\nFor more information, please try again or contact your system administrator.")
	return b.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
