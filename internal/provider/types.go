// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"strings"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// crossrefTypes maps CrossRef work types to BibTeX entry types.
var crossrefTypes = map[string]types.EntryType{
	"journal-article":     types.EntryArticle,
	"proceedings-article": types.EntryInProceedings,
	"book":                types.EntryBook,
	"monograph":           types.EntryBook,
	"edited-book":         types.EntryBook,
	"reference-book":      types.EntryBook,
	"book-chapter":        types.EntryInCollection,
	"book-section":        types.EntryInCollection,
	"book-part":           types.EntryInBook,
	"reference-entry":     types.EntryInCollection,
	"dissertation":        types.EntryPhDThesis,
	"report":              types.EntryTechReport,
	"standard":            types.EntryTechReport,
	"posted-content":      types.EntryMisc,
	"dataset":             types.EntryMisc,
}

// openAlexTypes maps OpenAlex work types to BibTeX entry types.
var openAlexTypes = map[string]types.EntryType{
	"article":      types.EntryArticle,
	"review":       types.EntryArticle,
	"letter":       types.EntryArticle,
	"book":         types.EntryBook,
	"book-chapter": types.EntryInCollection,
	"dissertation": types.EntryPhDThesis,
	"report":       types.EntryTechReport,
	"standard":     types.EntryTechReport,
	"preprint":     types.EntryMisc,
	"dataset":      types.EntryMisc,
}

// semanticTypes maps Semantic Scholar publicationTypes to BibTeX entry
// types. Earlier entries win when a paper carries several.
var semanticTypes = []struct {
	name  string
	entry types.EntryType
}{
	{"Conference", types.EntryInProceedings},
	{"Book", types.EntryBook},
	{"BookSection", types.EntryInCollection},
	{"JournalArticle", types.EntryArticle},
	{"Review", types.EntryArticle},
	{"Dataset", types.EntryMisc},
}

// conferenceKeywords mark a venue as a conference or workshop.
var conferenceKeywords = []string{
	"conference", "proceedings", "workshop", "symposium",
	"icml", "neurips", "nips", "iclr", "cvpr", "acl ", "emnlp", "aaai", "ijcai",
}

// IsConferenceVenue reports whether venue names a conference or workshop.
func IsConferenceVenue(venue string) bool {
	v := strings.ToLower(venue) + " "
	for _, kw := range conferenceKeywords {
		if strings.Contains(v, kw) {
			return true
		}
	}
	return false
}

// inferType resolves the entry type of a provider record from the declared
// native type and the venue. A declared type wins unless it is article and
// the venue is a conference.
func inferType(declared types.EntryType, venue string) types.EntryType {
	if declared != "" {
		if declared == types.EntryArticle && IsConferenceVenue(venue) {
			return types.EntryInProceedings
		}
		return declared
	}
	switch {
	case IsConferenceVenue(venue):
		return types.EntryInProceedings
	case strings.Contains(strings.ToLower(venue), "arxiv"):
		return types.EntryMisc
	}
	return ""
}

// joinAuthors renders a structured author list the way every record stores it.
func joinAuthors(names []string) string {
	return strings.Join(names, "; ")
}
