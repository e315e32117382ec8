// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// exaAPIBase is the Exa search endpoint. Declared as a var so tests can
// substitute an httptest server.
var exaAPIBase = "https://api.exa.ai/search"

// exaDomains restricts the neural search to scholarly sites.
var exaDomains = []string{
	"arxiv.org",
	"semanticscholar.org",
	"researchgate.net",
	"pubmed.ncbi.nlm.nih.gov",
	"ieee.org",
	"acm.org",
	"springer.com",
	"elsevier.com",
	"nature.com",
	"science.org",
	"doi.org",
}

// Exa is the semantic-web fallback, queried only when every structured
// provider came back empty.
type Exa struct {
	client
	apiKey string
}

// NewExa builds the fallback adapter. It returns nil without an API key.
func NewExa(cfg types.ProviderConfig, logger *slog.Logger) *Exa {
	if cfg.ExaAPIKey == "" {
		return nil
	}
	return &Exa{client: newClient(types.SourceExa, cfg, logger), apiKey: cfg.ExaAPIKey}
}

// Source returns the provider identifier.
func (e *Exa) Source() types.SourceID { return types.SourceExa }

// SearchByTitle runs a neural search for the quoted title.
func (e *Exa) SearchByTitle(ctx context.Context, query Query, limit int) Result {
	if query.Title == "" {
		return e.finish("search", nil, nil)
	}
	if limit <= 0 {
		limit = 3
	}
	q := `"` + query.Title + `"`
	if query.Authors != "" {
		q += " authors: " + query.Authors
	}
	body, err := json.Marshal(exaRequest{
		Query:          q,
		NumResults:     limit,
		Type:           "neural",
		IncludeDomains: exaDomains,
	})
	if err != nil {
		return e.finish("search", nil, fmt.Errorf("marshaling Exa request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, exaAPIBase, bytes.NewReader(body))
	if err != nil {
		return e.finish("search", nil, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)

	var resp exaResponse
	if err := e.decode(ctx, req, &resp); err != nil {
		return e.finish("search", nil, fmt.Errorf("Exa search: %w", err))
	}

	var records []types.ProviderRecord
	for _, r := range resp.Results {
		if rec := e.ExtractFields(r); !rec.Empty() {
			records = append(records, rec)
		}
	}
	return e.finish("search", records, nil)
}

// ExtractFields maps a web search hit onto the common record shape. Only
// the title, URL, and whatever the URL itself reveals are trustworthy; the
// page's author and publication date describe the web page, not the paper,
// and are not mapped.
func (e *Exa) ExtractFields(r exaResult) types.ProviderRecord {
	rec := types.ProviderRecord{
		Source: types.SourceExa,
		Title:  normalize.Squash(r.Title),
		URL:    r.URL,
	}
	switch {
	case strings.Contains(r.URL, "arxiv.org"):
		rec.Venue = arxivVenue
		rec.EntryType = types.EntryMisc
	case strings.Contains(r.URL, "doi.org/"):
		rec.DOI = normalize.DOI(r.URL[strings.Index(r.URL, "doi.org/"):])
	}
	return rec
}

// Exa API JSON structures.
type exaRequest struct {
	Query          string   `json:"query"`
	NumResults     int      `json:"numResults"`
	Type           string   `json:"type"`
	IncludeDomains []string `json:"includeDomains,omitempty"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

type exaResult struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}
