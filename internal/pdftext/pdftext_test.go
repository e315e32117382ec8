// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibresolve/pkg/types"
)

func TestFindDOI(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Available at https://doi.org/10.1038/Nature14539.", "10.1038/nature14539"},
		{"DOI: 10.1145/3292500.3330701; accepted", "10.1145/3292500.3330701"},
		{"(see 10.1000/xyz123)", "10.1000/xyz123"},
		{"version 10.1 of the software", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FindDOI(tt.text), tt.text)
	}
}

func TestCandidate(t *testing.T) {
	text := `Journal of Machine Learning Research 21 (2020)
Exploring the Limits of Transfer Learning with a Unified Text-to-Text Transformer
Colin Raffel, Noam Shazeer, Adam Roberts
Abstract
Transfer learning ... doi:10.5555/3455716.3455856`

	c := Candidate(text)
	assert.Equal(t, types.CandidateRecord{
		Title:   "Exploring the Limits of Transfer Learning with a Unified Text-to-Text Transformer",
		Authors: "Colin Raffel, Noam Shazeer, Adam Roberts",
		DOI:     "10.5555/3455716.3455856",
	}, c)
}

func TestCandidate_AuthorsOnlyWhenNameLike(t *testing.T) {
	c := Candidate("A Sufficiently Long Paper Title Here\nwe study the problem of 3 things\n")
	assert.Equal(t, "A Sufficiently Long Paper Title Here", c.Title)
	assert.Empty(t, c.Authors)
}

func TestCandidate_Empty(t *testing.T) {
	assert.True(t, Candidate("").Empty())
	assert.True(t, Candidate("short\nlines\nonly").Empty())
}

func TestTextConfidence(t *testing.T) {
	assert.Equal(t, 0.0, textConfidence("  "))
	assert.Equal(t, SparseConfidence, textConfidence("a few words"))
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	assert.Equal(t, TextLayerConfidence, textConfidence(string(long)))
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.pdf"), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.pdf")
}
