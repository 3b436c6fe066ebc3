// Package llm talks to the external text-generation endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bankchat/internal/metrics"

	"log/slog"
)

// ErrUnavailable is returned once every attempt against the generation
// endpoint has been exhausted. Callers degrade to a fallback message.
var ErrUnavailable = errors.New("generation endpoint unavailable")

// Tool is a tool schema forwarded verbatim to the endpoint.
type Tool map[string]any

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Response is the generation endpoint reply.
type Response struct {
	Response  string     `json:"response"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Config holds generation client configuration.
type Config struct {
	APIURL   string
	Model    string
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
}

// Client sends prompts to the generation endpoint with bounded retries.
// Transport and server-side errors are retried with exponential backoff;
// anything else fails fast.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	apiURL     string
	model      string
	attempts   int
	backoff    time.Duration
	timeout    time.Duration

	// sleep is swapped out in tests to observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a generation client.
func New(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Client {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	return &Client{
		httpClient: &http.Client{},
		logger:     logger.With("component", "llm"),
		metrics:    m,
		apiURL:     cfg.APIURL,
		model:      cfg.Model,
		attempts:   cfg.Attempts,
		backoff:    cfg.Backoff,
		timeout:    cfg.Timeout,
		sleep:      sleepWithContext,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Tools  []Tool `json:"tools,omitempty"`
}

// Generate issues the prompt, retrying up to the configured attempt count.
// Between attempts it waits backoff * 2^attempt. After exhaustion it returns
// an error wrapping ErrUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string, tools []Tool) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		res, retryable, err := c.invoke(ctx, prompt, tools)
		if err == nil {
			c.metrics.LLMRequests.WithLabelValues("success").Inc()
			return res, nil
		}
		if !retryable {
			c.metrics.LLMRequests.WithLabelValues("failed").Inc()
			return nil, err
		}
		lastErr = err
		c.metrics.LLMRequests.WithLabelValues("retry").Inc()
		c.logger.Warn("generation attempt failed", "attempt", attempt+1, "error", err)
	}

	c.metrics.LLMRequests.WithLabelValues("failed").Inc()
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, c.attempts, lastErr)
}

// invoke performs a single attempt. The second return value reports whether
// the failure is worth retrying.
func (c *Client) invoke(ctx context.Context, prompt string, tools []Tool) (*Response, bool, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Tools:  tools,
	})
	if err != nil {
		return nil, false, fmt.Errorf("marshal payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.apiURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("generation request: %w", ctx.Err())
		}
		return nil, true, fmt.Errorf("generation http: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.LLMLatency.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("generation request failed: status=%d body=%s", resp.StatusCode, truncate(body, 200))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("generation request rejected: status=%d body=%s", resp.StatusCode, truncate(body, 200))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, false, fmt.Errorf("decode generation response: %w", err)
	}
	return &out, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// sleepWithContext waits for d but returns early on context cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
