// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying caller and HTTP helpers shared by
// the provider adapters and the model clients.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// sleep waits for d or until ctx is done. Tests replace it to record delays.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy configures Retry.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries   int
	InitialDelay time.Duration
	BackoffBase  float64
	MaxDelay     time.Duration

	// Retryable decides whether an error is retried. Nil means IsRetryable.
	Retryable func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// PolicyFromConfig builds a Policy from configuration, filling zero values
// with the defaults.
func PolicyFromConfig(cfg types.RetryConfig) Policy {
	def := types.DefaultRetryConfig()
	p := Policy{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.InitialDelay,
		BackoffBase:  cfg.BackoffBase,
		MaxDelay:     cfg.MaxDelay,
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.BackoffBase < 1 {
		p.BackoffBase = def.BackoffBase
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	return p
}

// DefaultPolicy returns 3 retries with a 1s initial delay, base 2, capped at 60s.
func DefaultPolicy() Policy {
	return PolicyFromConfig(types.DefaultRetryConfig())
}

// Retry runs op until it succeeds, fails with a non-retryable error, or
// MaxRetries retries have been spent. Before retry n it waits
// min(InitialDelay*BackoffBase^n, MaxDelay). On exhaustion the last error is
// returned. If ctx is cancelled during a wait Retry returns ctx.Err().
func Retry(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	delay := p.InitialDelay
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt >= p.MaxRetries {
			return err
		}

		wait := delay
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}

		delay = time.Duration(float64(delay) * p.BackoffBase)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 512

// DoWithRetry executes an HTTP request under Retry. A 2xx response is
// returned to the caller, who must close the body. Any other status is
// drained, closed, and returned as a *StatusError; network failures are
// wrapped with ErrTransient.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, p Policy) (*http.Response, error) {
	var resp *http.Response
	err := Retry(ctx, p, func(ctx context.Context) error {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return fmt.Errorf("resetting request body: %w", err)
			}
			attemptReq.Body = body
		}

		r, err := client.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}

		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}

		body, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
		io.Copy(io.Discard, r.Body)
		r.Body.Close()
		return &StatusError{StatusCode: r.StatusCode, Body: string(body)}
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
