// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/internal/provider"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// DOIFirst looks doi up at every DOI-capable provider concurrently and
// returns one record per provider that knew it, in reliability order. An
// empty or malformed DOI returns nil without any call.
func DOIFirst(ctx context.Context, lookups []provider.DOILookup, doi string) ([]types.ProviderRecord, []string) {
	if !normalize.ValidDOI(doi) {
		return nil, nil
	}
	doi = normalize.DOI(doi)

	calls := make([]call, 0, len(lookups))
	for _, l := range lookups {
		calls = append(calls, func(ctx context.Context) provider.Result {
			return l.LookupByDOI(ctx, doi)
		})
	}

	var records []types.ProviderRecord
	var errs []string
	for _, res := range fanOut(ctx, calls) {
		if res.Failed() {
			errs = append(errs, errorString(res))
			continue
		}
		if len(res.Records) > 0 {
			rec := res.Records[0]
			rec.Source = res.Source
			records = append(records, rec)
		}
	}
	return records, errs
}

// call is one provider request in a fan-out.
type call func(ctx context.Context) provider.Result

// fanOut runs every call in its own goroutine and returns the results in
// descending source rank. A failing call never cancels its siblings.
func fanOut(ctx context.Context, calls []call) []provider.Result {
	ch := make(chan provider.Result, len(calls))
	var wg sync.WaitGroup

	for _, c := range calls {
		wg.Add(1)
		go func(c call) {
			defer wg.Done()
			ch <- c(ctx)
		}(c)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var out []provider.Result
	for res := range ch {
		out = append(out, res)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return provider.Rank(out[i].Source) > provider.Rank(out[j].Source)
	})
	return out
}

func errorString(res provider.Result) string {
	return fmt.Sprintf("%s: %v", res.Source, res.Err)
}
