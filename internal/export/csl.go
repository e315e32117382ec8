// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibresolve/internal/merge"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	Volume         string    `yaml:"volume,omitempty"`
	Issue          string    `yaml:"issue,omitempty"`
	Page           string    `yaml:"page,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL date-parts form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

var cslTypes = map[types.EntryType]string{
	types.EntryArticle:       "article-journal",
	types.EntryInProceedings: "paper-conference",
	types.EntryBook:          "book",
	types.EntryInBook:        "chapter",
	types.EntryInCollection:  "chapter",
	types.EntryPhDThesis:     "thesis",
	types.EntryMastersThesis: "thesis",
	types.EntryTechReport:    "report",
	types.EntryMisc:          "article",
}

// CSL converts rec to a CSL item with the given id; an empty id uses
// CiteKey.
func CSL(rec types.MergedRecord, id string) CSLItem {
	if id == "" {
		id = CiteKey(rec)
	}
	typ, ok := cslTypes[rec.BibtexType]
	if !ok {
		typ = "article"
	}
	item := CSLItem{
		ID:             id,
		Type:           typ,
		Title:          rec.Title,
		ContainerTitle: rec.Venue,
		Volume:         rec.Volume,
		Issue:          rec.Issue,
		Page:           strings.ReplaceAll(rec.Pages, "--", "-"),
		Publisher:      rec.Publisher,
		DOI:            rec.DOI,
		URL:            rec.URL,
		Abstract:       rec.Abstract,
		Note:           rec.Note,
	}
	for _, a := range merge.SplitAuthors(rec.Authors) {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	if rec.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{rec.Year}}}
	}
	return item
}

// WriteCSL writes items as a CSL-YAML list to w.
func WriteCSL(w io.Writer, items []CSLItem) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// parseAuthorName splits a name into CSL family and given parts. "Last,
// First" is honoured; otherwise the last token is the family name.
// Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i >= 0 {
		return CSLName{Family: strings.TrimSpace(name[:i]), Given: strings.TrimSpace(name[i+1:])}
	}
	i := strings.LastIndex(name, " ")
	if i < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{Given: name[:i], Family: name[i+1:]}
}
