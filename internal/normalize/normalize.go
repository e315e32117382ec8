// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize holds the string normalization and similarity helpers
// shared by the provider adapters and the merge step.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	doiURLPrefix  = regexp.MustCompile(`(?i)^(?:https?://)?(?:dx\.)?doi\.org/`)
	doiPrefix     = regexp.MustCompile(`(?i)^doi:?\s*`)
	doiPattern    = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
	yearPattern   = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	spaceSequence = regexp.MustCompile(`\s+`)
)

// DOI strips resolver hosts, schemes and "doi:" prefixes, trims trailing
// punctuation, and lowercases. The result is empty when s is empty.
func DOI(s string) string {
	s = strings.TrimSpace(s)
	s = doiURLPrefix.ReplaceAllString(s, "")
	s = doiPrefix.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ".,;")
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidDOI reports whether s, once normalized, has the 10.NNNN/suffix shape.
func ValidDOI(s string) bool {
	return doiPattern.MatchString(DOI(s))
}

// Title lowercases, strips punctuation, and collapses whitespace so that
// titles from different sources compare cleanly.
func Title(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Squash trims s and collapses internal whitespace runs to single spaces.
func Squash(s string) string {
	return strings.TrimSpace(spaceSequence.ReplaceAllString(s, " "))
}

// Similarity returns the sequence-matching ratio of a and b over runes,
// in [0, 1]. Identical strings score 1, and an empty side scores 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(runeTokens(a), runeTokens(b))
	return m.Ratio()
}

// TitleSimilarity compares two titles after Title normalization.
func TitleSimilarity(a, b string) float64 {
	return Similarity(Title(a), Title(b))
}

func runeTokens(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Compatible reports whether two scalar values agree after normalization:
// equal, or one contained in the other.
func Compatible(a, b string) bool {
	na, nb := Title(a), Title(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Year returns the first plausible four-digit year found in s, or 0.
func Year(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// MinYear is the earliest publication year accepted as plausible.
const MinYear = 1900

// ValidYear reports whether y lies in [MinYear, now+2].
func ValidYear(y int, now time.Time) bool {
	return y >= MinYear && y <= now.Year()+2
}
