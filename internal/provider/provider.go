// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider adapts external bibliographic services onto a common
// record shape. Each adapter owns its HTTP client, rate limiter, and retry
// policy, and returns a typed Result instead of raising.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/bibresolve/internal/httputil"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// Provider searches one external service by title.
type Provider interface {
	Source() types.SourceID
	SearchByTitle(ctx context.Context, query Query, limit int) Result
}

// DOILookup is implemented by providers that can resolve a DOI directly.
type DOILookup interface {
	Source() types.SourceID
	LookupByDOI(ctx context.Context, doi string) Result
}

// Query holds the title search parameters.
type Query struct {
	Title   string
	Authors string
}

// ResultKind classifies the outcome of one provider call.
type ResultKind string

const (
	KindOK          ResultKind = "ok"
	KindEmpty       ResultKind = "empty"
	KindNotFound    ResultKind = "not_found"
	KindRateLimited ResultKind = "rate_limited"
	KindTransient   ResultKind = "transient"
	KindFailed      ResultKind = "failed"
)

// Result is the outcome of one provider call. Records is empty for every
// kind other than KindOK.
type Result struct {
	Source  types.SourceID
	Records []types.ProviderRecord
	Kind    ResultKind
	Err     error
}

// Failed reports whether the call ended in an error worth surfacing to the
// caller. Not-found and rate-limited results are treated as empty.
func (r Result) Failed() bool {
	return r.Kind == KindTransient || r.Kind == KindFailed
}

// newResult classifies records and err into a Result.
func newResult(source types.SourceID, records []types.ProviderRecord, err error) Result {
	res := Result{Source: source}
	switch {
	case err == nil && len(records) > 0:
		res.Kind = KindOK
		res.Records = records
	case err == nil:
		res.Kind = KindEmpty
	case httputil.IsNotFound(err):
		res.Kind = KindNotFound
	case httputil.IsRateLimited(err):
		res.Kind = KindRateLimited
		res.Err = err
	case errors.Is(err, httputil.ErrTransient):
		res.Kind = KindTransient
		res.Err = err
	default:
		res.Kind = KindFailed
		res.Err = err
	}
	return res
}

// Rank returns the static reliability rank of a source. Higher is more
// reliable.
func Rank(s types.SourceID) int {
	switch s {
	case types.SourceCrossRef:
		return 8
	case types.SourceSemanticScholarMatch:
		return 7
	case types.SourceOpenAlex:
		return 6
	case types.SourceSemanticScholar:
		return 5
	case types.SourceArxiv:
		return 4
	case types.SourceLLM:
		return 3
	case types.SourceCandidate:
		return 2
	case types.SourceExa:
		return 1
	}
	return 0
}

// HighTier reports whether a source may validate or override fields that
// are already set.
func HighTier(s types.SourceID) bool {
	switch s {
	case types.SourceCrossRef, types.SourceSemanticScholarMatch,
		types.SourceOpenAlex, types.SourceSemanticScholar:
		return true
	}
	return false
}

// GoodYield reports whether s is one of the sources whose hits make model
// escalation unnecessary.
func GoodYield(s types.SourceID) bool {
	switch s {
	case types.SourceCrossRef, types.SourceSemanticScholarMatch, types.SourceSemanticScholar:
		return true
	}
	return false
}

// Structured reports whether s is a structured bibliographic provider, as
// opposed to a seed or the semantic-web fallback.
func Structured(s types.SourceID) bool {
	return HighTier(s) || s == types.SourceArxiv
}

// client is the transport shared by every adapter.
type client struct {
	source    types.SourceID
	http      *http.Client
	limiter   *rate.Limiter
	policy    httputil.Policy
	userAgent string
	logger    *slog.Logger
}

func newClient(source types.SourceID, cfg types.ProviderConfig, logger *slog.Logger) client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "bibresolve/1.0"
	}
	if cfg.ContactEmail != "" {
		ua = fmt.Sprintf("%s (mailto:%s)", ua, cfg.ContactEmail)
	}
	return client{
		source:    source,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, 1),
		policy:    httputil.PolicyFromConfig(cfg.Retry),
		userAgent: ua,
		logger:    logger.With("provider", string(source)),
	}
}

// do waits for the limiter and sends req under the retry policy.
func (c *client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	p := c.policy
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		if httputil.IsRateLimited(err) {
			c.logger.Warn("provider rate limited, backing off",
				"attempt", attempt, "delay", delay, "rate_limited", true)
			return
		}
		c.logger.Warn("provider request failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
	}
	return httputil.DoWithRetry(ctx, c.http, req, p)
}

// getJSON performs a GET and decodes the JSON body into v.
func (c *client) getJSON(ctx context.Context, reqURL string, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	req.Header.Set("Accept", "application/json")
	return c.decode(ctx, req, v)
}

func (c *client) decode(ctx context.Context, req *http.Request, v any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %w", httputil.ErrTransient, c.source, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s response: %w", c.source, err)
	}
	return nil
}

// finish logs the outcome of a call and builds its Result.
func (c *client) finish(op string, records []types.ProviderRecord, err error) Result {
	res := newResult(c.source, records, err)
	switch res.Kind {
	case KindRateLimited:
		c.logger.Warn("provider rate limit exhausted, treating as empty", "op", op, "rate_limited", true)
	case KindTransient, KindFailed:
		c.logger.Error("provider call failed", "op", op, "kind", string(res.Kind), "error", err)
	default:
		c.logger.Debug("provider call finished", "op", op, "kind", string(res.Kind), "records", len(records))
	}
	return res
}
