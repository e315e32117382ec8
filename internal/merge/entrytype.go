// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/bibresolve/internal/provider"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// entryRule maps venue/publisher keywords, title phrases, or a venue
// predicate to one entry type. Title phrases match whole words only.
type entryRule struct {
	entry    types.EntryType
	keywords []string
	title    []string
	venue    func(string) bool
}

// entryTypeRules are checked in order; the first matching rule decides the
// entry type.
var entryTypeRules = []entryRule{
	{
		entry:    types.EntryMastersThesis,
		keywords: []string{"master's thesis", "masters thesis", "master thesis", "msc thesis", "m.sc. thesis"},
		title:    []string{"master's thesis", "masters thesis", "master thesis", "msc thesis"},
	},
	{
		entry:    types.EntryPhDThesis,
		keywords: []string{"phd thesis", "ph.d. thesis", "doctoral", "dissertation", "thesis"},
		title:    []string{"phd thesis", "ph.d. thesis", "doctoral thesis", "doctoral dissertation", "phd dissertation"},
	},
	{
		entry:    types.EntryTechReport,
		keywords: []string{"technical report", "tech report", "tech. rep", "working paper", "white paper"},
		title:    []string{"technical report", "tech report", "working paper", "white paper"},
	},
	{entry: types.EntryInProceedings, keywords: []string{"lecture notes in"}, venue: provider.IsConferenceVenue},
	{entry: types.EntryInCollection, keywords: []string{"handbook of", "encyclopedia", "chapter"}},
	{
		entry:    types.EntryBook,
		keywords: []string{"monograph", "textbook"},
		title:    []string{"a textbook", "a monograph"},
	},
	{entry: types.EntryMisc, keywords: []string{"arxiv", "biorxiv", "medrxiv", "preprint", "ssrn"}},
}

// arxivDOIPrefix is the DataCite prefix arXiv assigns to every preprint.
const arxivDOIPrefix = "10.48550/arxiv."

// InferEntryType picks the BibTeX type for a merged record. Keyword rules on
// the venue and title win, then an arXiv identifier, then the type declared
// by the most reliable provider, then article when a venue exists and misc
// otherwise.
func InferEntryType(rec types.MergedRecord, declared types.EntryType) types.EntryType {
	text := strings.ToLower(rec.Venue + " " + rec.Publisher)
	title := strings.ToLower(rec.Title)
	for _, rule := range entryTypeRules {
		if rule.venue != nil && rule.venue(rec.Venue) {
			return rule.entry
		}
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.entry
			}
		}
		for _, phrase := range rule.title {
			if containsWord(title, phrase) {
				return rule.entry
			}
		}
	}
	if arxivIdentifier(rec) {
		return types.EntryMisc
	}
	if types.ValidEntryType(declared) {
		return declared
	}
	if rec.Venue != "" {
		return types.EntryArticle
	}
	return types.EntryMisc
}

// arxivIdentifier reports whether the DOI or URL identifies an arXiv preprint.
func arxivIdentifier(rec types.MergedRecord) bool {
	return strings.HasPrefix(strings.ToLower(rec.DOI), arxivDOIPrefix) ||
		strings.Contains(strings.ToLower(rec.URL), "arxiv.org")
}

// containsWord reports whether phrase occurs in text bounded by non-letters
// on both sides, so "thesis" does not match "hypothesis".
func containsWord(text, phrase string) bool {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
