// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlex queries the open bibliographic index.
type OpenAlex struct {
	client
	email string
}

// NewOpenAlex builds an OpenAlex adapter. The contact email is sent as the
// mailto parameter for polite pool access.
func NewOpenAlex(cfg types.ProviderConfig, logger *slog.Logger) *OpenAlex {
	return &OpenAlex{client: newClient(types.SourceOpenAlex, cfg, logger), email: cfg.ContactEmail}
}

// Source returns the provider identifier.
func (o *OpenAlex) Source() types.SourceID { return types.SourceOpenAlex }

// SearchByTitle queries /works?search=.
func (o *OpenAlex) SearchByTitle(ctx context.Context, query Query, limit int) Result {
	if query.Title == "" {
		return o.finish("search", nil, nil)
	}
	if limit <= 0 {
		limit = 3
	}
	params := url.Values{
		"search":   {query.Title},
		"per_page": {fmt.Sprintf("%d", limit)},
	}
	if o.email != "" {
		params.Set("mailto", o.email)
	}

	var resp openAlexResponse
	if err := o.getJSON(ctx, openAlexAPIBase+"?"+params.Encode(), nil, &resp); err != nil {
		return o.finish("search", nil, fmt.Errorf("OpenAlex search: %w", err))
	}

	var records []types.ProviderRecord
	for _, w := range resp.Results {
		if rec := o.ExtractFields(w); !rec.Empty() {
			records = append(records, rec)
		}
	}
	return o.finish("search", records, nil)
}

// LookupByDOI fetches /works/doi:{doi}.
func (o *OpenAlex) LookupByDOI(ctx context.Context, doi string) Result {
	doi = normalize.DOI(doi)
	if doi == "" {
		return o.finish("doi", nil, nil)
	}
	reqURL := openAlexAPIBase + "/doi:" + doi
	if o.email != "" {
		reqURL += "?" + url.Values{"mailto": {o.email}}.Encode()
	}

	var w openAlexWork
	if err := o.getJSON(ctx, reqURL, nil, &w); err != nil {
		return o.finish("doi", nil, fmt.Errorf("OpenAlex DOI lookup: %w", err))
	}
	rec := o.ExtractFields(w)
	if rec.Empty() {
		return o.finish("doi", nil, nil)
	}
	return o.finish("doi", []types.ProviderRecord{rec}, nil)
}

// ExtractFields maps an OpenAlex work onto the common record shape.
func (o *OpenAlex) ExtractFields(w openAlexWork) types.ProviderRecord {
	title := w.Title
	if title == "" {
		title = w.DisplayName
	}
	rec := types.ProviderRecord{
		Source:        types.SourceOpenAlex,
		Title:         normalize.Squash(title),
		Year:          w.PublicationYear,
		DOI:           normalize.DOI(w.DOI),
		Abstract:      reconstructAbstract(w.AbstractInvertedIndex),
		URL:           w.ID,
		CitationCount: w.CitedByCount,
		Volume:        w.Biblio.Volume,
		Issue:         w.Biblio.Issue,
	}
	if w.PrimaryLocation != nil {
		if w.PrimaryLocation.LandingPageURL != "" {
			rec.URL = w.PrimaryLocation.LandingPageURL
		}
		if src := w.PrimaryLocation.Source; src != nil {
			rec.Venue = src.DisplayName
			rec.Publisher = src.HostOrganizationName
		}
	}
	switch {
	case w.Biblio.FirstPage != "" && w.Biblio.LastPage != "" && w.Biblio.LastPage != w.Biblio.FirstPage:
		rec.Pages = w.Biblio.FirstPage + "--" + w.Biblio.LastPage
	case w.Biblio.FirstPage != "":
		rec.Pages = w.Biblio.FirstPage
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			rec.AuthorList = append(rec.AuthorList, a.Author.DisplayName)
		}
	}
	rec.Authors = joinAuthors(rec.AuthorList)

	rec.EntryType = inferType(openAlexTypes[w.Type], rec.Venue)
	return rec
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	DOI                   string               `json:"doi"`
	Title                 string               `json:"title"`
	DisplayName           string               `json:"display_name"`
	PublicationYear       int                  `json:"publication_year"`
	Type                  string               `json:"type"`
	CitedByCount          *int                 `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	Biblio                openAlexBiblio       `json:"biblio"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	LandingPageURL string          `json:"landing_page_url"`
	Source         *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName          string `json:"display_name"`
	HostOrganizationName string `json:"host_organization_name"`
}

type openAlexBiblio struct {
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	FirstPage string `json:"first_page"`
	LastPage  string `json:"last_page"`
}
