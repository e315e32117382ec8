// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders merged records as BibTeX, CSL-YAML, and Parquet.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/bibresolve/internal/merge"
	"github.com/pdiddy/bibresolve/pkg/types"
)

var latexEscaper = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

var keyStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "of": true, "in": true,
	"for": true, "and": true, "to": true, "with": true, "towards": true,
}

// BibTeX renders rec as one BibTeX entry. An empty key is replaced by
// CiteKey(rec).
func BibTeX(rec types.MergedRecord, key string) string {
	if key == "" {
		key = CiteKey(rec)
	}
	entry := rec.BibtexType
	if !types.ValidEntryType(entry) {
		entry = types.EntryMisc
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", entry, key)
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %s = {%s},\n", name, value)
		}
	}

	field("author", escapeLatex(formatAuthors(rec.Authors)))
	field("title", escapeLatex(rec.Title))
	vf := venueField(entry)
	venue := rec.Venue
	if vf == "publisher" && venue == "" {
		venue = rec.Publisher
	}
	field(vf, escapeLatex(venue))
	if rec.Year > 0 {
		field("year", fmt.Sprint(rec.Year))
	}
	field("volume", rec.Volume)
	field("number", rec.Issue)
	field("pages", rec.Pages)
	if vf != "publisher" {
		field("publisher", escapeLatex(rec.Publisher))
	}
	field("doi", rec.DOI)
	field("url", rec.URL)
	field("keywords", escapeLatex(strings.Join(rec.Keywords, ", ")))
	field("note", escapeLatex(rec.Note))
	field("abstract", escapeLatex(rec.Abstract))
	b.WriteString("}\n")
	return b.String()
}

// venueField names the BibTeX field that carries the venue for an entry
// type.
func venueField(t types.EntryType) string {
	switch t {
	case types.EntryArticle:
		return "journal"
	case types.EntryInProceedings, types.EntryInCollection, types.EntryInBook:
		return "booktitle"
	case types.EntryPhDThesis, types.EntryMastersThesis:
		return "school"
	case types.EntryTechReport:
		return "institution"
	case types.EntryBook:
		return "publisher"
	}
	return "howpublished"
}

// CiteKey builds a key from the first author's surname, the year, and the
// first significant title word, e.g. "vaswani2017attention".
func CiteKey(rec types.MergedRecord) string {
	var key strings.Builder
	if names := merge.SplitAuthors(rec.Authors); len(names) > 0 {
		key.WriteString(keyPart(surname(names[0])))
	}
	if rec.Year > 0 {
		fmt.Fprint(&key, rec.Year)
	}
	for _, w := range strings.Fields(rec.Title) {
		if w = keyPart(w); w != "" && !keyStopWords[w] {
			key.WriteString(w)
			break
		}
	}
	if key.Len() == 0 {
		return "ref"
	}
	return key.String()
}

func keyPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// surname returns the family name of "Last, First" or "First Last".
func surname(name string) string {
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// formatAuthors renders "; "-joined names as "Last, First and Last, First".
func formatAuthors(authors string) string {
	var out []string
	for _, name := range merge.SplitAuthors(authors) {
		if strings.Contains(name, ",") {
			out = append(out, name)
			continue
		}
		i := strings.LastIndex(name, " ")
		if i < 0 {
			out = append(out, name)
			continue
		}
		out = append(out, fmt.Sprintf("%s, %s", name[i+1:], name[:i]))
	}
	return strings.Join(out, " and ")
}

func escapeLatex(s string) string {
	return latexEscaper.Replace(s)
}
