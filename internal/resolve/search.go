// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"strings"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/internal/provider"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// MinTitleSimilarity is the lowest query similarity at which a title-search
// hit is kept. DOI hits are exempt.
const MinTitleSimilarity = 0.5

// Hits is the outcome of the search phase.
type Hits struct {
	// Records holds at most one record per source, in reliability order.
	Records []types.ProviderRecord

	// Good is true when a source that makes escalation unnecessary
	// returned a record.
	Good bool

	// Errors collects "source: error" strings from failed providers.
	Errors []string
}

// SearchTitles returns doiRecords unchanged when there are any. Otherwise it
// queries every provider in set.Search concurrently with q, keeps the hit
// closest to the query title from each, and falls back to set.Fallback when
// no structured provider found anything. An empty title issues no calls.
func SearchTitles(ctx context.Context, set provider.Set, q provider.Query, limit int, doiRecords []types.ProviderRecord) Hits {
	if len(doiRecords) > 0 {
		return newHits(doiRecords, nil)
	}
	if strings.TrimSpace(q.Title) == "" {
		return Hits{}
	}

	calls := make([]call, 0, len(set.Search))
	for _, p := range set.Search {
		calls = append(calls, func(ctx context.Context) provider.Result {
			return p.SearchByTitle(ctx, q, limit)
		})
	}
	records, errs := collect(fanOut(ctx, calls), q.Title)

	if !anyStructured(records) && set.Fallback != nil {
		res := set.Fallback.SearchByTitle(ctx, q, limit)
		more, moreErrs := collect([]provider.Result{res}, q.Title)
		records = append(records, more...)
		errs = append(errs, moreErrs...)
	}
	return newHits(records, errs)
}

// collect keeps the best record of every successful result.
func collect(results []provider.Result, title string) ([]types.ProviderRecord, []string) {
	var records []types.ProviderRecord
	var errs []string
	for _, res := range results {
		if res.Failed() {
			errs = append(errs, errorString(res))
			continue
		}
		if rec, ok := best(res, title); ok {
			records = append(records, rec)
		}
	}
	return records, errs
}

// best picks the record whose title is most similar to the query.
func best(res provider.Result, title string) (types.ProviderRecord, bool) {
	var pick types.ProviderRecord
	top := -1.0
	for _, r := range res.Records {
		if sim := normalize.TitleSimilarity(title, r.Title); sim > top {
			pick, top = r, sim
		}
	}
	if top < MinTitleSimilarity {
		return types.ProviderRecord{}, false
	}
	pick.Source = res.Source
	return pick, true
}

func anyStructured(records []types.ProviderRecord) bool {
	for _, r := range records {
		if provider.Structured(r.Source) {
			return true
		}
	}
	return false
}

func newHits(records []types.ProviderRecord, errs []string) Hits {
	h := Hits{Records: records, Errors: errs}
	provider.SortByRank(h.Records)
	for _, r := range records {
		if provider.GoodYield(r.Source) {
			h.Good = true
		}
	}
	return h
}

// union adds the records of b whose source is not yet present in a. Earlier
// hits are never discarded.
func union(a, b Hits) Hits {
	seen := make(map[types.SourceID]bool, len(a.Records))
	records := append([]types.ProviderRecord(nil), a.Records...)
	for _, r := range records {
		seen[r.Source] = true
	}
	for _, r := range b.Records {
		if !seen[r.Source] {
			seen[r.Source] = true
			records = append(records, r)
		}
	}
	return newHits(records, append(append([]string(nil), a.Errors...), b.Errors...))
}
