// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arxivVenue is the venue assigned to every arXiv record.
const arxivVenue = "arXiv preprint"

// Arxiv queries the preprint archive.
type Arxiv struct {
	client
}

// NewArxiv builds an arXiv adapter.
func NewArxiv(cfg types.ProviderConfig, logger *slog.Logger) *Arxiv {
	return &Arxiv{client: newClient(types.SourceArxiv, cfg, logger)}
}

// Source returns the provider identifier.
func (a *Arxiv) Source() types.SourceID { return types.SourceArxiv }

// SearchByTitle runs a quoted ti: query against the Atom API.
func (a *Arxiv) SearchByTitle(ctx context.Context, query Query, limit int) Result {
	q := buildArxivQuery(query.Title)
	if q == "" {
		return a.finish("search", nil, nil)
	}
	if limit <= 0 {
		limit = 3
	}
	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return a.finish("search", nil, fmt.Errorf("creating request: %w", err))
	}
	resp, err := a.do(ctx, req)
	if err != nil {
		return a.finish("search", nil, fmt.Errorf("arXiv search: %w", err))
	}
	defer resp.Body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return a.finish("search", nil, fmt.Errorf("parsing arXiv response: %w", err))
	}

	var records []types.ProviderRecord
	for _, entry := range feed.Entries {
		if extractArxivID(entry.ID) == "" {
			continue
		}
		records = append(records, a.ExtractFields(entry))
	}
	return a.finish("search", records, nil)
}

// ExtractFields maps an Atom entry onto the common record shape.
func (a *Arxiv) ExtractFields(e arxivEntry) types.ProviderRecord {
	rec := types.ProviderRecord{
		Source:    types.SourceArxiv,
		Title:     normalize.Squash(e.Title),
		Abstract:  normalize.Squash(e.Summary),
		Venue:     arxivVenue,
		DOI:       normalize.DOI(e.DOI),
		URL:       strings.TrimSpace(e.ID),
		EntryType: types.EntryMisc,
	}
	if e.JournalRef != "" {
		rec.Venue = normalize.Squash(e.JournalRef)
		rec.EntryType = inferType(types.EntryArticle, rec.Venue)
	}
	for _, au := range e.Authors {
		if name := strings.TrimSpace(au.Name); name != "" {
			rec.AuthorList = append(rec.AuthorList, name)
		}
	}
	rec.Authors = joinAuthors(rec.AuthorList)
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		rec.Year = t.Year()
	}
	return rec
}

// buildArxivQuery quotes the title for a phrase match on the title field.
func buildArxivQuery(title string) string {
	t := strings.Join(strings.Fields(strings.ReplaceAll(title, `"`, "")), " ")
	if t == "" {
		return ""
	}
	return `ti:"` + t + `"`
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string        `xml:"id"`
	Title      string        `xml:"title"`
	Summary    string        `xml:"summary"`
	Published  string        `xml:"published"`
	Authors    []arxivAuthor `xml:"author"`
	DOI        string        `xml:"http://arxiv.org/schemas/atom doi"`
	JournalRef string        `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" becomes "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
