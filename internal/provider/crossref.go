// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// crossrefAPIBase is the CrossRef works endpoint. Declared as a var so tests
// can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

var jatsTag = regexp.MustCompile(`</?jats:[^>]*>|</?[a-zA-Z][^>]*>`)

// CrossRef queries the DOI registry.
type CrossRef struct {
	client
	email string
}

// NewCrossRef builds a CrossRef adapter. The contact email, when set, routes
// requests to the polite pool.
func NewCrossRef(cfg types.ProviderConfig, logger *slog.Logger) *CrossRef {
	return &CrossRef{client: newClient(types.SourceCrossRef, cfg, logger), email: cfg.ContactEmail}
}

// Source returns the provider identifier.
func (c *CrossRef) Source() types.SourceID { return types.SourceCrossRef }

// SearchByTitle runs a bibliographic query against /works.
func (c *CrossRef) SearchByTitle(ctx context.Context, query Query, limit int) Result {
	if query.Title == "" {
		return c.finish("search", nil, nil)
	}
	if limit <= 0 {
		limit = 3
	}
	params := url.Values{
		"query.bibliographic": {query.Title},
		"rows":                {fmt.Sprintf("%d", limit)},
	}
	if query.Authors != "" {
		params.Set("query.author", query.Authors)
	}
	if c.email != "" {
		params.Set("mailto", c.email)
	}

	var resp crossrefSearchResponse
	if err := c.getJSON(ctx, crossrefAPIBase+"?"+params.Encode(), nil, &resp); err != nil {
		return c.finish("search", nil, fmt.Errorf("CrossRef search: %w", err))
	}

	var records []types.ProviderRecord
	for _, item := range resp.Message.Items {
		if rec := c.ExtractFields(item); !rec.Empty() {
			records = append(records, rec)
		}
	}
	return c.finish("search", records, nil)
}

// LookupByDOI fetches /works/{doi}.
func (c *CrossRef) LookupByDOI(ctx context.Context, doi string) Result {
	doi = normalize.DOI(doi)
	if doi == "" {
		return c.finish("doi", nil, nil)
	}
	reqURL := crossrefAPIBase + "/" + doi
	if c.email != "" {
		reqURL += "?" + url.Values{"mailto": {c.email}}.Encode()
	}

	var resp crossrefWorkResponse
	if err := c.getJSON(ctx, reqURL, nil, &resp); err != nil {
		return c.finish("doi", nil, fmt.Errorf("CrossRef DOI lookup: %w", err))
	}
	rec := c.ExtractFields(resp.Message)
	if rec.Empty() {
		return c.finish("doi", nil, nil)
	}
	return c.finish("doi", []types.ProviderRecord{rec}, nil)
}

// ExtractFields maps a CrossRef work onto the common record shape.
func (c *CrossRef) ExtractFields(w crossrefWork) types.ProviderRecord {
	rec := types.ProviderRecord{
		Source:        types.SourceCrossRef,
		Title:         first(w.Title),
		Venue:         first(w.ContainerTitle),
		DOI:           normalize.DOI(w.DOI),
		Volume:        w.Volume,
		Issue:         w.Issue,
		Pages:         w.Page,
		Publisher:     w.Publisher,
		URL:           w.URL,
		CitationCount: w.IsReferencedByCount,
	}
	if w.Abstract != "" {
		rec.Abstract = normalize.Squash(jatsTag.ReplaceAllString(w.Abstract, " "))
	}

	for _, a := range w.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name != "" {
			rec.AuthorList = append(rec.AuthorList, name)
		}
	}
	rec.Authors = joinAuthors(rec.AuthorList)

	for _, d := range []crossrefDate{w.Published, w.Issued, w.PublishedPrint, w.PublishedOnline} {
		if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 && d.DateParts[0][0] > 0 {
			rec.Year = d.DateParts[0][0]
			break
		}
	}

	rec.EntryType = inferType(crossrefTypes[w.Type], rec.Venue)
	return rec
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return normalize.Squash(s[0])
}

// CrossRef API JSON structures.
type crossrefSearchResponse struct {
	Message struct {
		Items []crossrefWork `json:"items"`
	} `json:"message"`
}

type crossrefWorkResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI                 string           `json:"DOI"`
	URL                 string           `json:"URL"`
	Type                string           `json:"type"`
	Title               []string         `json:"title"`
	ContainerTitle      []string         `json:"container-title"`
	Abstract            string           `json:"abstract"`
	Author              []crossrefAuthor `json:"author"`
	Volume              string           `json:"volume"`
	Issue               string           `json:"issue"`
	Page                string           `json:"page"`
	Publisher           string           `json:"publisher"`
	IsReferencedByCount *int             `json:"is-referenced-by-count"`
	Published           crossrefDate     `json:"published"`
	Issued              crossrefDate     `json:"issued"`
	PublishedPrint      crossrefDate     `json:"published-print"`
	PublishedOnline     crossrefDate     `json:"published-online"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}
