// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// recordSleeps replaces sleep for the duration of the test and returns the
// slice of requested waits.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = orig })
	return &waits
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	waits := recordSleeps(t)

	calls := 0
	err := Retry(context.Background(), DefaultPolicy(), func(context.Context) error {
		calls++
		if calls < 3 {
			return ErrTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestRetry_ExhaustionReturnsLastError(t *testing.T) {
	waits := recordSleeps(t)

	calls := 0
	err := Retry(context.Background(), DefaultPolicy(), func(context.Context) error {
		calls++
		return &StatusError{StatusCode: 503, Body: "attempt"}
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.Equal(t, 4, calls, "max_retries=3 means four attempts")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *waits)
}

func TestRetry_DelayCappedAtMaxDelay(t *testing.T) {
	waits := recordSleeps(t)

	p := Policy{MaxRetries: 5, InitialDelay: 10 * time.Second, BackoffBase: 3, MaxDelay: 60 * time.Second}
	_ = Retry(context.Background(), p, func(context.Context) error { return ErrRateLimited })

	assert.Equal(t, []time.Duration{
		10 * time.Second, 30 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second,
	}, *waits)
}

func TestRetry_NonRetryableReturnsImmediately(t *testing.T) {
	waits := recordSleeps(t)

	tests := []struct {
		name string
		err  error
	}{
		{"bad request", &StatusError{StatusCode: 400}},
		{"forbidden", &StatusError{StatusCode: 403}},
		{"not found", &StatusError{StatusCode: 404}},
		{"plain error", errors.New("decode failed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), DefaultPolicy(), func(context.Context) error {
				calls++
				return tt.err
			})
			assert.Equal(t, tt.err, err)
			assert.Equal(t, 1, calls)
		})
	}
	assert.Empty(t, *waits)
}

func TestRetry_OnRetryHook(t *testing.T) {
	recordSleeps(t)

	var attempts []int
	var rateLimited int
	p := DefaultPolicy()
	p.MaxRetries = 2
	p.OnRetry = func(attempt int, _ time.Duration, err error) {
		attempts = append(attempts, attempt)
		if IsRateLimited(err) {
			rateLimited++
		}
	}

	_ = Retry(context.Background(), p, func(context.Context) error {
		return &StatusError{StatusCode: http.StatusTooManyRequests}
	})

	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, 2, rateLimited)
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxRetries: 3, InitialDelay: time.Hour, BackoffBase: 2, MaxDelay: time.Hour}
	err := Retry(ctx, p, func(context.Context) error { return ErrTransient })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicyFromConfig_FillsDefaults(t *testing.T) {
	p := PolicyFromConfig(types.RetryConfig{MaxRetries: 1})
	assert.Equal(t, 1, p.MaxRetries)
	assert.Equal(t, time.Second, p.InitialDelay)
	assert.Equal(t, 2.0, p.BackoffBase)
	assert.Equal(t, 60*time.Second, p.MaxDelay)
}

func TestStatusError_Classification(t *testing.T) {
	tests := []struct {
		code      int
		notFound  bool
		limited   bool
		retryable bool
	}{
		{404, true, false, false},
		{429, false, true, true},
		{500, false, false, true},
		{503, false, false, true},
		{400, false, false, false},
		{401, false, false, false},
	}
	for _, tt := range tests {
		err := error(&StatusError{StatusCode: tt.code})
		assert.Equal(t, tt.notFound, IsNotFound(err), "code %d", tt.code)
		assert.Equal(t, tt.limited, IsRateLimited(err), "code %d", tt.code)
		assert.Equal(t, tt.retryable, IsRetryable(err), "code %d", tt.code)
	}
}

func TestDoWithRetry_RetriesThen200(t *testing.T) {
	recordSleeps(t)

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, DefaultPolicy())
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_NotFoundIsNotRetried(t *testing.T) {
	recordSleeps(t)

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no such work", http.StatusNotFound)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, DefaultPolicy())
	assert.Nil(t, resp)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Body, "no such work")
}

func TestDoWithRetry_ResendsPostBody(t *testing.T) {
	recordSleeps(t)

	var calls int32
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"q":1}`))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, DefaultPolicy())
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{`{"q":1}`, `{"q":1}`}, bodies)
}

func TestDoWithRetry_NetworkErrorIsTransient(t *testing.T) {
	recordSleeps(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := ts.URL
	ts.Close()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)

	p := DefaultPolicy()
	p.MaxRetries = 1
	_, err = DoWithRetry(context.Background(), http.DefaultClient, req, p)
	assert.ErrorIs(t, err, ErrTransient)
}
