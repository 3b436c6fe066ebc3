package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankchat/internal/metrics"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, url string, attempts int, backoff time.Duration) (*Client, *[]time.Duration) {
	t.Helper()
	c := New(Config{
		APIURL:   url,
		Model:    "gemma2:2b",
		Attempts: attempts,
		Backoff:  backoff,
		Timeout:  time.Second,
	}, metrics.New("test", prometheus.NewRegistry()), newTestLogger())

	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestGenerateSuccess(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(Response{Response: `{"intent":"BALANCE_INQUIRY"}`})
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL, 3, time.Second)
	res, err := c.Generate(context.Background(), "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, `{"intent":"BALANCE_INQUIRY"}`, res.Response)
	assert.Equal(t, "gemma2:2b", gotBody.Model)
	assert.Equal(t, "hello", gotBody.Prompt)
	assert.False(t, gotBody.Stream)
	assert.Empty(t, *sleeps, "no retries expected on first-attempt success")
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Response{Response: "ok"})
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL, 3, 100*time.Millisecond)
	res, err := c.Generate(context.Background(), "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, "ok", res.Response)
	assert.Equal(t, 3, calls)
	// Exponential schedule: backoff, then backoff*2.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *sleeps)
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL, 3, time.Second)
	_, err := c.Generate(context.Background(), "hi", nil)

	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
}

func TestGenerateTransportErrorsAreRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // every attempt now fails at the transport level

	c, sleeps := newTestClient(t, srv.URL, 2, 50*time.Millisecond)
	_, err := c.Generate(context.Background(), "hi", nil)

	require.ErrorIs(t, err, ErrUnavailable)
	assert.Len(t, *sleeps, 1)
}

func TestGenerateClientErrorFailsFast(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL, 3, time.Second)
	_, err := c.Generate(context.Background(), "hi", nil)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, calls, "4xx must not be retried")
	assert.Empty(t, *sleeps)
}

func TestGenerateMalformedResponseFailsFast(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 3, time.Second)
	_, err := c.Generate(context.Background(), "hi", nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGenerateForwardsTools(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(Response{Response: "ok"})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 1, 0)
	tools := []Tool{{"name": "check_balance"}}
	_, err := c.Generate(context.Background(), "hi", tools)
	require.NoError(t, err)
	require.Len(t, gotBody.Tools, 1)
	assert.Equal(t, "check_balance", gotBody.Tools[0]["name"])
}

func TestGenerateSleepCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 3, time.Second)
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	_, err := c.Generate(context.Background(), "hi", nil)
	require.ErrorIs(t, err, context.Canceled)
}
