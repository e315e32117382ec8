// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext reads the text layer of a PDF and derives a seed
// candidate record from it.
package pdftext

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// Text-layer confidence levels.
const (
	// TextLayerConfidence is reported when the text layer holds real content.
	TextLayerConfidence = 0.9

	// SparseConfidence is reported for a text layer too thin to trust,
	// typically a scanned document.
	SparseConfidence = 0.3

	minUsefulChars = 100
)

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Extract reads the plain text of the first maxPages pages of the PDF at
// path. maxPages <= 0 reads every page. Pages that fail to decode are
// skipped.
func Extract(path string, maxPages int) (types.ExtractedText, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return types.ExtractedText{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	if maxPages <= 0 || maxPages > total {
		maxPages = total
	}

	var b strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	return types.ExtractedText{Text: text, PageCount: total, Confidence: textConfidence(text)}, nil
}

func textConfidence(text string) float64 {
	switch n := len(strings.TrimSpace(text)); {
	case n > minUsefulChars:
		return TextLayerConfidence
	case n > 0:
		return SparseConfidence
	}
	return 0
}

// Candidate derives a seed record from extracted text: the first DOI in the
// text, the first substantial non-header line as the title, and the line
// after it as authors when it reads like a name list.
func Candidate(text string) types.CandidateRecord {
	c := types.CandidateRecord{DOI: FindDOI(text)}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = normalize.Squash(line)
		if len(line) <= 20 || isHeaderLine(line) {
			continue
		}
		c.Title = line
		for _, next := range lines[i+1:] {
			next = normalize.Squash(next)
			if next == "" {
				continue
			}
			if looksLikeAuthors(next) {
				c.Authors = next
			}
			break
		}
		break
	}
	return c
}

// FindDOI returns the first well-formed DOI in text, normalized, or "".
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if normalize.ValidDOI(match) {
			return normalize.DOI(match)
		}
	}
	return ""
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"),
		strings.Contains(lower, "copyright"),
		strings.Contains(lower, "doi:"),
		strings.Contains(lower, "doi.org"),
		strings.Contains(lower, "arxiv:"),
		strings.Contains(lower, "volume") && strings.Contains(lower, "issue"),
		strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}

// looksLikeAuthors accepts a short line of capitalized words without digits,
// with at least two words.
func looksLikeAuthors(line string) bool {
	if len(line) > 300 {
		return false
	}
	words := 0
	for _, w := range strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	}) {
		if w == "and" || w == "&" {
			continue
		}
		first := []rune(w)[0]
		if unicode.IsDigit(first) || !unicode.IsUpper(first) {
			return false
		}
		words++
	}
	return words >= 2
}
