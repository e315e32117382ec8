// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge folds the candidate record, the model output, and provider
// records into one MergedRecord, cross-validating every field and logging
// each decision as a ValidationNote.
package merge

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/internal/provider"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// Title similarity thresholds.
const (
	// TitleValidated is the ratio at or above which two titles agree.
	TitleValidated = 0.9

	// TitleAdopt is the ratio above which a provider title replaces a
	// seed title even though they do not fully agree.
	TitleAdopt = 0.75
)

// now is the clock used for the year sanity range. Tests replace it.
var now = time.Now

// merger holds the accumulator of one Merge call.
type merger struct {
	rec   types.MergedRecord
	held  map[string]types.SourceID
	notes []types.ValidationNote

	declared     types.EntryType
	declaredRank int
}

// Merge reconciles the inputs into one record. The model output and the
// candidate seed the record; provider records are then folded in descending
// reliability order, so the outcome does not depend on the order of hits.
// model may be nil.
func Merge(candidate types.CandidateRecord, model *types.ModelExtraction, hits []types.ProviderRecord) (types.MergedRecord, []types.ValidationNote) {
	m := &merger{held: make(map[string]types.SourceID)}

	if model != nil && !model.Degraded {
		m.seedModel(*model)
	}
	m.seedCandidate(candidate)

	sorted := make([]types.ProviderRecord, len(hits))
	copy(sorted, hits)
	provider.SortByRank(sorted)
	for _, r := range sorted {
		if r.Source == types.SourceExa {
			r = webHit(r)
		}
		m.fold(r)
	}

	m.clean()
	m.rec.BibtexType = InferEntryType(m.rec, m.declared)
	if m.rec.BibtexType == types.EntryMisc && (strings.Contains(strings.ToLower(m.rec.Venue), "arxiv") || arxivIdentifier(m.rec)) {
		m.rec.Note = "Preprint"
	}
	return m.rec, m.notes
}

// webHit keeps the fields a web search result identifies reliably: the
// title, the landing page, and what the URL reveals (DOI, arXiv venue).
func webHit(r types.ProviderRecord) types.ProviderRecord {
	return types.ProviderRecord{
		Source:    r.Source,
		Title:     r.Title,
		URL:       r.URL,
		DOI:       r.DOI,
		Venue:     r.Venue,
		EntryType: r.EntryType,
	}
}

func (m *merger) note(field string, kind types.NoteKind, src types.SourceID, detail string) {
	m.notes = append(m.notes, types.ValidationNote{Field: field, Kind: kind, Source: src, Detail: detail})
}

// fill sets an empty field from a seed source.
func (m *merger) fill(field string, has bool, src types.SourceID, apply func()) {
	if !has || m.held[field] != "" {
		return
	}
	apply()
	m.held[field] = src
	m.note(field, types.NoteFilled, src, "")
}

func (m *merger) seedModel(x types.ModelExtraction) {
	src := types.SourceLLM
	m.fill(types.FieldTitle, x.Title != "", src, func() { m.rec.Title = x.Title })
	m.fill(types.FieldAuthors, x.Authors != "", src, func() { m.rec.Authors = x.Authors })
	m.fill(types.FieldYear, validYear(x.Year), src, func() { m.rec.Year = x.Year })
	m.fill(types.FieldVenue, x.Journal != "", src, func() { m.rec.Venue = x.Journal })
	m.fill(types.FieldDOI, normalize.ValidDOI(x.DOI), src, func() { m.rec.DOI = normalize.DOI(x.DOI) })
	m.fill(types.FieldAbstract, x.Abstract != "", src, func() { m.rec.Abstract = x.Abstract })
	m.rec.Keywords = x.Keywords
}

func (m *merger) seedCandidate(c types.CandidateRecord) {
	src := types.SourceCandidate
	m.fill(types.FieldTitle, c.Title != "", src, func() { m.rec.Title = normalize.Squash(c.Title) })
	m.fill(types.FieldAuthors, c.Authors != "", src, func() { m.rec.Authors = normalize.Squash(c.Authors) })
	m.fill(types.FieldDOI, normalize.ValidDOI(c.DOI), src, func() { m.rec.DOI = normalize.DOI(c.DOI) })
}

// fold merges one provider record.
func (m *merger) fold(r types.ProviderRecord) {
	src := r.Source
	doi := normalize.DOI(r.DOI)

	m.title(r)
	m.authors(r)

	m.scalar(types.FieldYear, src, validYear(r.Year), r.Year == m.rec.Year,
		strconv.Itoa(r.Year), func() { m.rec.Year = r.Year })
	m.scalar(types.FieldVenue, src, r.Venue != "", normalize.Compatible(m.rec.Venue, r.Venue),
		r.Venue, func() { m.rec.Venue = normalize.Squash(r.Venue) })
	m.scalar(types.FieldDOI, src, normalize.ValidDOI(doi), doi == m.rec.DOI,
		doi, func() { m.rec.DOI = doi })
	m.abstract(r)

	// Landing pages legitimately differ between providers.
	m.fillOnly(types.FieldURL, src, r.URL, &m.rec.URL)
	m.fillOnly(types.FieldVolume, src, r.Volume, &m.rec.Volume)
	m.fillOnly(types.FieldIssue, src, r.Issue, &m.rec.Issue)
	m.fillOnly(types.FieldPages, src, r.Pages, &m.rec.Pages)
	m.fillOnly(types.FieldPublisher, src, r.Publisher, &m.rec.Publisher)
	if r.CitationCount != nil && m.rec.CitationCount == nil {
		n := *r.CitationCount
		m.rec.CitationCount = &n
		m.held[types.FieldCitationCount] = src
		m.note(types.FieldCitationCount, types.NoteFilled, src, "")
	}

	if provider.HighTier(src) && r.EntryType != "" && provider.Rank(src) > m.declaredRank {
		m.declared = r.EntryType
		m.declaredRank = provider.Rank(src)
	}
}

// outranks reports whether src is strictly more reliable than the current
// holder of field.
func (m *merger) outranks(src types.SourceID, field string) bool {
	return provider.Rank(src) > provider.Rank(m.held[field])
}

// scalar reconciles a single-valued field. Unset fields are filled by any
// source. Set fields are only touched by high-tier sources: compatible values
// validate and adopt the more reliable spelling; incompatible values override
// a less reliable holder or are logged as a mismatch.
func (m *merger) scalar(field string, src types.SourceID, has, compatible bool, value string, apply func()) {
	if !has {
		return
	}
	if m.held[field] == "" {
		apply()
		m.held[field] = src
		m.note(field, types.NoteFilled, src, "")
		return
	}
	if !provider.HighTier(src) {
		return
	}
	if compatible {
		m.note(field, types.NoteValidated, src, "")
		if m.outranks(src, field) {
			apply()
			m.held[field] = src
		}
		return
	}
	if m.outranks(src, field) {
		prev := m.held[field]
		apply()
		m.held[field] = src
		m.note(field, types.NoteOverridden, src, fmt.Sprintf("replaced value from %s", prev))
		if field == types.FieldDOI {
			m.note(field, types.NoteMismatch, src, fmt.Sprintf("%s disagreed", prev))
		}
		return
	}
	m.note(field, types.NoteMismatch, src, fmt.Sprintf("%s kept, %s reported %q", m.held[field], src, value))
}

// title reconciles the title by sequence similarity.
func (m *merger) title(r types.ProviderRecord) {
	if r.Title == "" {
		return
	}
	src := r.Source
	if m.held[types.FieldTitle] == "" {
		m.rec.Title = r.Title
		m.held[types.FieldTitle] = src
		m.note(types.FieldTitle, types.NoteFilled, src, "")
		return
	}
	if !provider.HighTier(src) {
		return
	}

	holder := m.held[types.FieldTitle]
	sim := normalize.TitleSimilarity(m.rec.Title, r.Title)
	detail := fmt.Sprintf("similarity %.2f", sim)
	switch {
	case sim >= TitleValidated:
		m.note(types.FieldTitle, types.NoteValidated, src, detail)
		if m.outranks(src, types.FieldTitle) {
			m.rec.Title = r.Title
			m.held[types.FieldTitle] = src
		}
	case sim > TitleAdopt && !provider.Structured(holder):
		m.rec.Title = r.Title
		m.held[types.FieldTitle] = src
		m.note(types.FieldTitle, types.NoteAdopted, src, detail+", low similarity, provider title adopted")
	default:
		m.note(types.FieldTitle, types.NoteMismatch, src, detail)
	}
}

// authors reconciles the author list with AuthorsMatch.
func (m *merger) authors(r types.ProviderRecord) {
	incoming := r.Authors
	if incoming == "" && len(r.AuthorList) > 0 {
		incoming = JoinAuthors(r.AuthorList)
	}
	if incoming == "" {
		return
	}
	src := r.Source
	if m.held[types.FieldAuthors] == "" {
		m.rec.Authors = incoming
		m.held[types.FieldAuthors] = src
		m.note(types.FieldAuthors, types.NoteFilled, src, "")
		return
	}
	if !provider.HighTier(src) {
		return
	}
	if AuthorsMatch(m.rec.Authors, incoming) {
		m.note(types.FieldAuthors, types.NoteValidated, src, "")
		if m.outranks(src, types.FieldAuthors) {
			m.rec.Authors = incoming
			m.held[types.FieldAuthors] = src
		}
		return
	}
	m.note(types.FieldAuthors, types.NoteMismatch, src, fmt.Sprintf("%s kept", m.held[types.FieldAuthors]))
}

// abstract treats the presence of an abstract from a high-tier source as
// soft validation.
func (m *merger) abstract(r types.ProviderRecord) {
	if r.Abstract == "" {
		return
	}
	src := r.Source
	if m.held[types.FieldAbstract] == "" {
		m.rec.Abstract = r.Abstract
		m.held[types.FieldAbstract] = src
		m.note(types.FieldAbstract, types.NoteFilled, src, "")
		return
	}
	if !provider.HighTier(src) {
		return
	}
	m.note(types.FieldAbstract, types.NoteValidated, src, "present")
	if m.outranks(src, types.FieldAbstract) {
		m.rec.Abstract = r.Abstract
		m.held[types.FieldAbstract] = src
	}
}

func (m *merger) fillOnly(field string, src types.SourceID, value string, dst *string) {
	value = normalize.Squash(value)
	if value == "" || *dst != "" {
		return
	}
	*dst = value
	m.held[field] = src
	m.note(field, types.NoteFilled, src, "")
}

// clean normalizes the final field values.
func (m *merger) clean() {
	m.rec.Title = strings.TrimRight(normalize.Squash(m.rec.Title), ". ")
	if names := SplitAuthors(m.rec.Authors); len(names) > 0 {
		m.rec.Authors = JoinAuthors(names)
	}
	if !validYear(m.rec.Year) {
		m.rec.Year = 0
	}
	m.rec.DOI = normalize.DOI(m.rec.DOI)
	m.rec.Venue = normalize.Squash(m.rec.Venue)
}

func validYear(y int) bool {
	return normalize.ValidYear(y, now())
}
