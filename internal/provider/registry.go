// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"log/slog"
	"sort"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// Set is the fixed, ranked collection of adapters used by one engine.
type Set struct {
	// Search holds the structured title-search providers.
	Search []Provider

	// DOI holds the providers that resolve DOIs directly.
	DOI []DOILookup

	// Fallback is the semantic-web search, or nil when not configured.
	Fallback Provider
}

// NewSet builds every adapter from configuration.
func NewSet(cfg types.ProviderConfig, logger *slog.Logger) Set {
	crossref := NewCrossRef(cfg, logger)
	match := NewSemanticScholarMatch(cfg, logger)
	openalex := NewOpenAlex(cfg, logger)

	s := Set{
		Search: []Provider{
			crossref,
			match,
			openalex,
			NewSemanticScholar(cfg, logger),
			NewArxiv(cfg, logger),
		},
		DOI: []DOILookup{crossref, match, openalex},
	}
	if exa := NewExa(cfg, logger); exa != nil {
		s.Fallback = exa
	}
	return s
}

// SortByRank orders records by descending source rank. The sort is stable,
// so records from the same source keep their provider order.
func SortByRank(records []types.ProviderRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return Rank(records[i].Source) > Rank(records[j].Source)
	})
}
