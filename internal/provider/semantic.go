// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// semanticAPIBase is the Semantic Scholar Graph API paper endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper"

const semanticFields = "title,authors,year,abstract,venue,journal,externalIds,citationCount,publicationTypes,url"

// semanticClient is shared by the match and generic search adapters.
type semanticClient struct {
	client
	apiKey string
}

func (s *semanticClient) header() http.Header {
	h := http.Header{}
	if s.apiKey != "" {
		h.Set("x-api-key", s.apiKey)
	}
	return h
}

// ExtractFields maps a Semantic Scholar paper onto the common record shape.
func (s *semanticClient) ExtractFields(p semanticPaper) types.ProviderRecord {
	rec := types.ProviderRecord{
		Source:        s.source,
		Title:         normalize.Squash(p.Title),
		Year:          p.Year,
		Venue:         p.Venue,
		DOI:           normalize.DOI(p.ExternalIDs.DOI),
		Abstract:      p.Abstract,
		URL:           p.URL,
		CitationCount: p.CitationCount,
	}
	if p.Journal != nil {
		if p.Journal.Name != "" {
			rec.Venue = p.Journal.Name
		}
		rec.Volume = normalize.Squash(p.Journal.Volume)
		rec.Pages = normalize.Squash(p.Journal.Pages)
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			rec.AuthorList = append(rec.AuthorList, a.Name)
		}
	}
	rec.Authors = joinAuthors(rec.AuthorList)

	var declared types.EntryType
	for _, st := range semanticTypes {
		if contains(p.PublicationTypes, st.name) {
			declared = st.entry
			break
		}
	}
	if declared == "" && p.ExternalIDs.ArXiv != "" && rec.Venue == "" {
		declared = types.EntryMisc
	}
	rec.EntryType = inferType(declared, rec.Venue)
	return rec
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SemanticScholarMatch uses the title-match endpoint, which returns the
// single best match, and resolves DOIs through the paper endpoint.
type SemanticScholarMatch struct {
	semanticClient
}

// NewSemanticScholarMatch builds the primary academic-graph adapter.
func NewSemanticScholarMatch(cfg types.ProviderConfig, logger *slog.Logger) *SemanticScholarMatch {
	return &SemanticScholarMatch{semanticClient{
		client: newClient(types.SourceSemanticScholarMatch, cfg, logger),
		apiKey: cfg.SemanticScholarAPIKey,
	}}
}

// Source returns the provider identifier.
func (s *SemanticScholarMatch) Source() types.SourceID { return types.SourceSemanticScholarMatch }

// SearchByTitle queries /paper/search/match. A 404 means no match.
func (s *SemanticScholarMatch) SearchByTitle(ctx context.Context, query Query, _ int) Result {
	if query.Title == "" {
		return s.finish("match", nil, nil)
	}
	params := url.Values{
		"query":  {query.Title},
		"fields": {semanticFields},
	}

	var resp semanticSearchResponse
	if err := s.getJSON(ctx, semanticAPIBase+"/search/match?"+params.Encode(), s.header(), &resp); err != nil {
		return s.finish("match", nil, fmt.Errorf("Semantic Scholar match: %w", err))
	}

	var records []types.ProviderRecord
	for _, p := range resp.Data {
		if rec := s.ExtractFields(p); !rec.Empty() {
			records = append(records, rec)
			break
		}
	}
	return s.finish("match", records, nil)
}

// LookupByDOI fetches /paper/DOI:{doi}.
func (s *SemanticScholarMatch) LookupByDOI(ctx context.Context, doi string) Result {
	doi = normalize.DOI(doi)
	if doi == "" {
		return s.finish("doi", nil, nil)
	}
	reqURL := semanticAPIBase + "/DOI:" + doi + "?" + url.Values{"fields": {semanticFields}}.Encode()

	var p semanticPaper
	if err := s.getJSON(ctx, reqURL, s.header(), &p); err != nil {
		return s.finish("doi", nil, fmt.Errorf("Semantic Scholar DOI lookup: %w", err))
	}
	rec := s.ExtractFields(p)
	if rec.Empty() {
		return s.finish("doi", nil, nil)
	}
	return s.finish("doi", []types.ProviderRecord{rec}, nil)
}

// SemanticScholar is the generic relevance search, ranked below the match
// endpoint.
type SemanticScholar struct {
	semanticClient
}

// NewSemanticScholar builds the secondary academic-graph adapter.
func NewSemanticScholar(cfg types.ProviderConfig, logger *slog.Logger) *SemanticScholar {
	return &SemanticScholar{semanticClient{
		client: newClient(types.SourceSemanticScholar, cfg, logger),
		apiKey: cfg.SemanticScholarAPIKey,
	}}
}

// Source returns the provider identifier.
func (s *SemanticScholar) Source() types.SourceID { return types.SourceSemanticScholar }

// SearchByTitle queries /paper/search.
func (s *SemanticScholar) SearchByTitle(ctx context.Context, query Query, limit int) Result {
	if query.Title == "" {
		return s.finish("search", nil, nil)
	}
	if limit <= 0 {
		limit = 3
	}
	params := url.Values{
		"query":  {query.Title},
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {semanticFields},
	}

	var resp semanticSearchResponse
	if err := s.getJSON(ctx, semanticAPIBase+"/search?"+params.Encode(), s.header(), &resp); err != nil {
		return s.finish("search", nil, fmt.Errorf("Semantic Scholar search: %w", err))
	}

	var records []types.ProviderRecord
	for _, p := range resp.Data {
		if rec := s.ExtractFields(p); !rec.Empty() {
			records = append(records, rec)
		}
	}
	return s.finish("search", records, nil)
}

// Semantic Scholar API JSON structures.
type semanticSearchResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          string              `json:"paperId"`
	Title            string              `json:"title"`
	Abstract         string              `json:"abstract"`
	Year             int                 `json:"year"`
	Venue            string              `json:"venue"`
	URL              string              `json:"url"`
	CitationCount    *int                `json:"citationCount"`
	PublicationTypes []string            `json:"publicationTypes"`
	Journal          *semanticJournal    `json:"journal"`
	Authors          []semanticAuthor    `json:"authors"`
	ExternalIDs      semanticExternalIDs `json:"externalIds"`
}

type semanticJournal struct {
	Name   string `json:"name"`
	Volume string `json:"volume"`
	Pages  string `json:"pages"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
