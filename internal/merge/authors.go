// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pdiddy/bibresolve/internal/normalize"
)

// surnameThreshold is the minimum surname similarity for two names with the
// same first initial to count as the same person.
const surnameThreshold = 0.60

var andSeparator = regexp.MustCompile(`(?i)\s+and\s+|\s*&\s*`)

// SplitAuthors splits an author string into names. Semicolons take
// precedence over commas so "Last, First; Last, First" lists survive. The
// word "and" separates in either form.
func SplitAuthors(s string) []string {
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	s = andSeparator.ReplaceAllString(s, sep)
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = normalize.Squash(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinAuthors renders names in the canonical "; "-separated form.
func JoinAuthors(names []string) string {
	return strings.Join(names, "; ")
}

// nameKey is the OCR-tolerant identity of one author.
type nameKey struct {
	initial rune
	surname string
}

// keyOf reduces a name to its first initial and surname. "Last, First" is
// reordered first. The surname is the last token, or the longest alphabetic
// token when the name has more than three tokens.
func keyOf(name string) (nameKey, bool) {
	if i := strings.Index(name, ","); i >= 0 {
		name = name[i+1:] + " " + name[:i]
	}
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '.'
	})
	if len(tokens) == 0 {
		return nameKey{}, false
	}

	surname := tokens[len(tokens)-1]
	if len(tokens) > 3 {
		longest := ""
		for _, tok := range tokens {
			if isAlpha(tok) && len([]rune(tok)) > len([]rune(longest)) {
				longest = tok
			}
		}
		if longest != "" {
			surname = longest
		}
	}

	var initial rune
	for _, r := range tokens[0] {
		initial = unicode.ToLower(r)
		break
	}
	return nameKey{initial: initial, surname: letters(surname)}, true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return s != ""
}

func letters(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keys(s string) []nameKey {
	var out []nameKey
	for _, name := range SplitAuthors(s) {
		if k, ok := keyOf(name); ok {
			out = append(out, k)
		}
	}
	return out
}

// countMatches pairs each name in a with at most one unused name in b.
func countMatches(a, b []nameKey) int {
	used := make([]bool, len(b))
	n := 0
	for _, x := range a {
		for j, y := range b {
			if used[j] || x.initial != y.initial {
				continue
			}
			if normalize.Similarity(x.surname, y.surname) > surnameThreshold {
				used[j] = true
				n++
				break
			}
		}
	}
	return n
}

// AuthorsMatch reports whether two author strings name the same set of
// people, tolerating OCR noise and formatting differences. Names match on
// first initial plus a fuzzy surname; the sets are equivalent when at least
// half of the shorter list (rounded up) matches. The relation is commutative.
func AuthorsMatch(a, b string) bool {
	ka, kb := keys(a), keys(b)
	if len(ka) == 0 || len(kb) == 0 {
		return false
	}
	matches := min(countMatches(ka, kb), countMatches(kb, ka))
	shorter := min(len(ka), len(kb))
	return matches >= (shorter+1)/2
}
