// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package confidence scores a merged record from its field completeness,
// the diversity of its sources, and the cross-validation log.
package confidence

import (
	"math"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// Score weights.
const (
	coreWeight     = 0.30
	extendedWeight = 0.10

	titleValidated   = 0.13
	titleAdopted     = 0.065
	authorsValidated = 0.13

	scalarValidated = 0.13
	scalarPresent   = 0.07
	scalarCap       = 0.19

	doiLookupBonus  = 0.05
	escalationBonus = 0.10
)

// diversity is indexed by the number of distinct provider sources.
var diversity = []float64{0, 0.08, 0.12, 0.15}

// Score returns a value in [0, 1] rounded to three decimals. It depends only
// on its arguments.
func Score(rec types.MergedRecord, sources []types.SourceID, notes []types.ValidationNote) float64 {
	idx := index(notes)

	core := count(rec.Title != "", rec.Authors != "", rec.Year != 0)
	extended := count(rec.DOI != "", rec.Venue != "", rec.Abstract != "")
	score := coreWeight*float64(core)/3 + extendedWeight*float64(extended)/3

	score += diversity[min(distinct(sources), len(diversity)-1)]

	switch {
	case idx.has(types.FieldTitle, types.NoteValidated):
		score += titleValidated
	case idx.has(types.FieldTitle, types.NoteAdopted):
		score += titleAdopted
	}
	if idx.has(types.FieldAuthors, types.NoteValidated) {
		score += authorsValidated
	}

	set := map[string]bool{
		types.FieldYear:  rec.Year != 0,
		types.FieldVenue: rec.Venue != "",
		types.FieldDOI:   rec.DOI != "",
	}
	var validated, present int
	for field, ok := range set {
		if !ok || idx.has(field, types.NoteMismatch) {
			continue
		}
		present++
		if idx.has(field, types.NoteValidated) {
			validated++
		}
	}
	score += math.Min(scalarCap, scalarValidated*float64(validated)/3+scalarPresent*float64(present)/3)

	if idx.has(types.BonusDOILookup, types.NoteBonus) {
		score += doiLookupBonus
	}
	if idx.has(types.BonusEscalation, types.NoteBonus) {
		score += escalationBonus
	}

	return math.Round(math.Min(score, 1)*1000) / 1000
}

type noteIndex map[string]map[types.NoteKind]bool

func index(notes []types.ValidationNote) noteIndex {
	idx := make(noteIndex)
	for _, n := range notes {
		if idx[n.Field] == nil {
			idx[n.Field] = make(map[types.NoteKind]bool)
		}
		idx[n.Field][n.Kind] = true
	}
	return idx
}

func (idx noteIndex) has(field string, kind types.NoteKind) bool {
	return idx[field][kind]
}

func count(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

// distinct counts provider sources, ignoring the seed sources.
func distinct(sources []types.SourceID) int {
	seen := make(map[types.SourceID]bool, len(sources))
	for _, s := range sources {
		if s == types.SourceLLM || s == types.SourceCandidate || s == "" {
			continue
		}
		seen[s] = true
	}
	return len(seen)
}
