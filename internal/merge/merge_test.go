// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibresolve/pkg/types"
)

func init() {
	now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
}

// --- Author matching ---

func TestAuthorsMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"initials against full names", "J.Smith, A. Doe", "John Smith; Anna Doe", true},
		{"last-first against and-joined", "Smith, John; Doe, Anna", "J. Smith and A. Doe", true},
		{"ocr noise in surname", "J0hn Smlth", "John Smith", true},
		{"half of shorter list suffices", "J. Smyth; A. Doe; B. Roe", "John Smith; Anna Doe; Bob Roe; C. Poe", true},
		{"comma list of four", "A. Vaswani, N. Shazeer, N. Parmar, J. Uszkoreit", "Ashish Vaswani; Noam Shazeer; Niki Parmar; Jakob Uszkoreit", true},
		{"different people", "John Smith", "Jane Doe", false},
		{"same surname different initial", "K. Smith", "John Smith", false},
		{"one of three is not enough", "A. One; B. Two; C. Three", "Alice One; Xavier Nobody; Yann Someone", false},
		{"empty side", "", "John Smith", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AuthorsMatch(tt.a, tt.b))
		})
	}
}

func TestAuthorsMatchIsCommutative(t *testing.T) {
	lists := []string{
		"J.Smith, A. Doe",
		"John Smith; Anna Doe",
		"Smith, J.; Doe, A.; Roe, B.",
		"Anna Doe",
		"A. Doe; J. Smith; K. Smith",
		"Jean Pierre van der Berg",
		"J. P. van der Berg; M. Curie",
		"",
	}
	for _, a := range lists {
		for _, b := range lists {
			assert.Equal(t, AuthorsMatch(a, b), AuthorsMatch(b, a), "%q vs %q", a, b)
		}
	}
}

func TestSplitAuthors(t *testing.T) {
	assert.Equal(t, []string{"J.Smith", "A. Doe"}, SplitAuthors("J.Smith, A. Doe"))
	assert.Equal(t, []string{"Smith, John", "Doe, Anna"}, SplitAuthors("Smith, John; Doe, Anna"))
	assert.Equal(t, []string{"A", "B", "C"}, SplitAuthors("A, B and C"))
	assert.Empty(t, SplitAuthors("  "))
}

func TestKeyOf(t *testing.T) {
	k, ok := keyOf("Smith, John")
	require.True(t, ok)
	assert.Equal(t, nameKey{initial: 'j', surname: "smith"}, k)

	k, _ = keyOf("Jean Pierre van der Berg")
	assert.Equal(t, nameKey{initial: 'j', surname: "pierre"}, k, "longest alphabetic token for long names")
}

// --- Scenario: author reconciliation adopts provider spelling ---

func TestMergeAdoptsProviderAuthorSpelling(t *testing.T) {
	cand := types.CandidateRecord{Title: "Deep Residual Learning for Image Recognition", Authors: "J.Smith, A. Doe"}
	hits := []types.ProviderRecord{{
		Source:  types.SourceCrossRef,
		Title:   "Deep Residual Learning for Image Recognition",
		Authors: "John Smith; Anna Doe",
	}}

	rec, notes := Merge(cand, nil, hits)
	assert.Equal(t, "John Smith; Anna Doe", rec.Authors)
	assert.Contains(t, notes, types.ValidationNote{Field: types.FieldAuthors, Kind: types.NoteValidated, Source: types.SourceCrossRef})
}

func TestMergeAuthorMismatchKeepsHolder(t *testing.T) {
	cand := types.CandidateRecord{Title: "T", Authors: "Zed Zulu"}
	hits := []types.ProviderRecord{{Source: types.SourceCrossRef, Title: "T", Authors: "John Smith"}}

	rec, notes := Merge(cand, nil, hits)
	assert.Equal(t, "Zed Zulu", rec.Authors)
	assert.True(t, hasNote(notes, types.FieldAuthors, types.NoteMismatch))
}

// --- Title reconciliation ---

func TestMergeTitle(t *testing.T) {
	const provTitle = "Deep residual learning for image recognition"
	tests := []struct {
		name      string
		candTitle string
		wantKind  types.NoteKind
		wantTitle string
	}{
		{"identical after normalization", "Deep Residual Learning for Image Recognition.", types.NoteValidated, provTitle},
		{"similar enough to adopt", "deep residual learning for image", types.NoteAdopted, provTitle},
		{"different paper", "Quantum error correction with surface codes", types.NoteMismatch, "Quantum error correction with surface codes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, notes := Merge(types.CandidateRecord{Title: tt.candTitle},
				nil, []types.ProviderRecord{{Source: types.SourceOpenAlex, Title: provTitle}})
			assert.Equal(t, tt.wantTitle, rec.Title)
			assert.True(t, hasNote(notes, types.FieldTitle, tt.wantKind), "notes: %v", notes)
		})
	}
}

func TestMergeExactTitleNeverAdopted(t *testing.T) {
	title := "Attention Is All You Need"
	_, notes := Merge(types.CandidateRecord{Title: title}, nil, []types.ProviderRecord{
		{Source: types.SourceCrossRef, Title: title},
		{Source: types.SourceSemanticScholarMatch, Title: title},
	})
	assert.False(t, hasNote(notes, types.FieldTitle, types.NoteAdopted))
	assert.Equal(t, 2, countNotes(notes, types.FieldTitle, types.NoteValidated))
}

func TestMergeLowSimilarityNotAdoptedOverProvider(t *testing.T) {
	rec, notes := Merge(types.CandidateRecord{}, nil, []types.ProviderRecord{
		{Source: types.SourceCrossRef, Title: "Deep residual learning for image recognition"},
		{Source: types.SourceOpenAlex, Title: "Deep residual learning for image"},
	})
	assert.Equal(t, "Deep residual learning for image recognition", rec.Title)
	assert.True(t, hasNote(notes, types.FieldTitle, types.NoteMismatch))
}

// --- Scalar fields ---

func TestMergeDOIDisagreementKeepsMoreReliable(t *testing.T) {
	hits := []types.ProviderRecord{
		{Source: types.SourceOpenAlex, Title: "T", DOI: "10.1000/bbb"},
		{Source: types.SourceCrossRef, Title: "T", DOI: "10.1000/AAA"},
	}
	rec, notes := Merge(types.CandidateRecord{Title: "T"}, nil, hits)

	assert.Equal(t, "10.1000/aaa", rec.DOI)
	assert.Contains(t, notes, types.ValidationNote{
		Field: types.FieldDOI, Kind: types.NoteMismatch, Source: types.SourceOpenAlex,
		Detail: `crossref kept, openalex reported "10.1000/bbb"`,
	})
	assert.False(t, hasNote(notes, types.FieldDOI, types.NoteValidated))
}

func TestMergeProviderOverridesSeedDOI(t *testing.T) {
	rec, notes := Merge(types.CandidateRecord{Title: "T", DOI: "10.1000/ocr-garbage"}, nil,
		[]types.ProviderRecord{{Source: types.SourceCrossRef, Title: "T", DOI: "10.1000/real"}})

	assert.Equal(t, "10.1000/real", rec.DOI)
	assert.True(t, hasNote(notes, types.FieldDOI, types.NoteOverridden))
	assert.True(t, hasNote(notes, types.FieldDOI, types.NoteMismatch))
}

func TestMergeYearAndVenueValidation(t *testing.T) {
	model := &types.ModelExtraction{Title: "T", Year: 2019, Journal: "Nature", Confidence: 0.8}
	hits := []types.ProviderRecord{
		{Source: types.SourceCrossRef, Title: "T", Year: 2019, Venue: "Nature"},
		{Source: types.SourceSemanticScholar, Title: "T", Year: 2020, Venue: "Science"},
	}
	rec, notes := Merge(types.CandidateRecord{}, model, hits)

	assert.Equal(t, 2019, rec.Year)
	assert.Equal(t, "Nature", rec.Venue)
	assert.True(t, hasNote(notes, types.FieldYear, types.NoteValidated))
	assert.True(t, hasNote(notes, types.FieldYear, types.NoteMismatch))
	assert.True(t, hasNote(notes, types.FieldVenue, types.NoteValidated))
}

func TestMergeProviderOverridesModelYear(t *testing.T) {
	model := &types.ModelExtraction{Title: "T", Year: 2018}
	rec, notes := Merge(types.CandidateRecord{}, model, []types.ProviderRecord{
		{Source: types.SourceCrossRef, Title: "T", Year: 2019},
	})
	assert.Equal(t, 2019, rec.Year)
	assert.True(t, hasNote(notes, types.FieldYear, types.NoteOverridden))
	assert.False(t, hasNote(notes, types.FieldYear, types.NoteMismatch))
}

func TestMergeLowTierNeverValidates(t *testing.T) {
	rec, notes := Merge(types.CandidateRecord{Title: "Some Title", Authors: "John Smith"}, nil,
		[]types.ProviderRecord{
			{Source: types.SourceArxiv, Title: "Some Title", Authors: "J. Smith", Year: 2020, Venue: "arXiv preprint"},
			{Source: types.SourceExa, Title: "Other", Year: 2001},
		})

	assert.Equal(t, "Some Title", rec.Title)
	assert.Equal(t, 2020, rec.Year, "unset fields are still filled")
	for _, n := range notes {
		assert.NotEqual(t, types.NoteValidated, n.Kind, "low tier produced %v", n)
		assert.NotEqual(t, types.NoteMismatch, n.Kind, "low tier produced %v", n)
	}
	assert.Equal(t, types.EntryMisc, rec.BibtexType)
	assert.Equal(t, "Preprint", rec.Note)
}

func TestMergeFillOnlyFields(t *testing.T) {
	n := 7
	rec, _ := Merge(types.CandidateRecord{Title: "T"}, nil, []types.ProviderRecord{
		{Source: types.SourceCrossRef, Title: "T", Volume: "1", Pages: "1-2"},
		{Source: types.SourceOpenAlex, Title: "T", Volume: "9", Issue: "3", Publisher: "ACM", CitationCount: &n},
	})
	assert.Equal(t, "1", rec.Volume)
	assert.Equal(t, "3", rec.Issue)
	assert.Equal(t, "1-2", rec.Pages)
	assert.Equal(t, "ACM", rec.Publisher)
	require.NotNil(t, rec.CitationCount)
	assert.Equal(t, 7, *rec.CitationCount)
}

func TestMergeSeedsFromModelBeforeCandidate(t *testing.T) {
	model := &types.ModelExtraction{Title: "Model Title", Authors: "A. B", Keywords: []string{"k"}}
	rec, notes := Merge(types.CandidateRecord{Title: "Cand Title", DOI: "doi:10.1000/X"}, model, nil)

	assert.Equal(t, "Model Title", rec.Title)
	assert.Equal(t, "10.1000/x", rec.DOI)
	assert.Equal(t, []string{"k"}, rec.Keywords)
	assert.Contains(t, notes, types.ValidationNote{Field: types.FieldTitle, Kind: types.NoteFilled, Source: types.SourceLLM})
	assert.Contains(t, notes, types.ValidationNote{Field: types.FieldDOI, Kind: types.NoteFilled, Source: types.SourceCandidate})
}

func TestMergeIgnoresDegradedModel(t *testing.T) {
	model := &types.ModelExtraction{Title: "Known", Degraded: true, Confidence: 0.2}
	_, notes := Merge(types.CandidateRecord{Title: "Known"}, model, nil)
	assert.Contains(t, notes, types.ValidationNote{Field: types.FieldTitle, Kind: types.NoteFilled, Source: types.SourceCandidate})
}

func TestMergeYearSanity(t *testing.T) {
	rec, _ := Merge(types.CandidateRecord{Title: "T"}, nil, []types.ProviderRecord{
		{Source: types.SourceCrossRef, Title: "T", Year: 3015},
		{Source: types.SourceOpenAlex, Title: "T", Year: 2015},
	})
	assert.Equal(t, 2015, rec.Year)
}

func TestMergeCleansOutput(t *testing.T) {
	rec, _ := Merge(types.CandidateRecord{Title: "  A   Title. ", Authors: "A. One, B. Two"}, nil, nil)
	assert.Equal(t, "A Title", rec.Title)
	assert.Equal(t, "A. One; B. Two", rec.Authors)
	assert.Equal(t, types.EntryMisc, rec.BibtexType)
}

// --- Properties ---

func completeness(r types.MergedRecord) int {
	n := 0
	for _, present := range []bool{r.Title != "", r.Authors != "", r.Year != 0, r.DOI != "", r.Venue != "", r.Abstract != ""} {
		if present {
			n++
		}
	}
	return n
}

func TestMergeNeverDecreasesCompleteness(t *testing.T) {
	cand := types.CandidateRecord{Title: "Graph Neural Networks", Authors: "J. Roe", DOI: "10.1000/gnn"}
	hitSets := [][]types.ProviderRecord{
		nil,
		{{Source: types.SourceCrossRef, Title: "Graph Neural Networks", DOI: "10.1000/other"}},
		{{Source: types.SourceExa, Title: "Unrelated"}},
		{{Source: types.SourceArxiv, Title: "Graph neural networks", Authors: "Jane Roe", Year: 2021, Venue: "arXiv preprint"}},
		{{Source: types.SourceOpenAlex, Title: "Totally different", Authors: "X Y", Year: 1999}},
	}
	seed, _ := Merge(cand, nil, nil)
	for i, hits := range hitSets {
		rec, _ := Merge(cand, nil, hits)
		assert.GreaterOrEqual(t, completeness(rec), completeness(seed), "hit set %d", i)
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	hits := []types.ProviderRecord{
		{Source: types.SourceArxiv, Title: "A study of things", Year: 2020, Venue: "arXiv preprint"},
		{Source: types.SourceSemanticScholar, Title: "A Study of Things", Year: 2021, Venue: "ICML"},
		{Source: types.SourceCrossRef, Title: "A study of things.", Year: 2021, DOI: "10.1000/x"},
		{Source: types.SourceOpenAlex, Title: "A study of things", Authors: "Ann Lee", Venue: "Proceedings of ICML"},
	}
	reversed := make([]types.ProviderRecord, len(hits))
	for i := range hits {
		reversed[len(hits)-1-i] = hits[i]
	}

	a, notesA := Merge(types.CandidateRecord{Title: "A study of thngs"}, nil, hits)
	b, notesB := Merge(types.CandidateRecord{Title: "A study of thngs"}, nil, reversed)
	assert.Equal(t, a, b)
	assert.Equal(t, notesA, notesB)
	assert.Equal(t, types.EntryInProceedings, a.BibtexType)
}

// --- Entry type ---

func TestInferEntryType(t *testing.T) {
	tests := []struct {
		name     string
		rec      types.MergedRecord
		declared types.EntryType
		want     types.EntryType
	}{
		{"phd thesis", types.MergedRecord{Venue: "PhD Thesis, MIT"}, "", types.EntryPhDThesis},
		{"masters thesis", types.MergedRecord{Venue: "Master's thesis, ETH"}, types.EntryArticle, types.EntryMastersThesis},
		{"report", types.MergedRecord{Venue: "Technical Report TR-12"}, "", types.EntryTechReport},
		{"conference", types.MergedRecord{Venue: "Proceedings of NeurIPS"}, types.EntryArticle, types.EntryInProceedings},
		{"lncs", types.MergedRecord{Venue: "Lecture Notes in Computer Science"}, "", types.EntryInProceedings},
		{"chapter", types.MergedRecord{Venue: "Handbook of Statistics"}, "", types.EntryInCollection},
		{"preprint", types.MergedRecord{Venue: "arXiv preprint"}, "", types.EntryMisc},
		{"declared type used", types.MergedRecord{Venue: "Springer"}, types.EntryBook, types.EntryBook},
		{"venue defaults to article", types.MergedRecord{Venue: "Nature"}, "", types.EntryArticle},
		{"nothing is misc", types.MergedRecord{}, "", types.EntryMisc},
		{"declared outside vocabulary ignored", types.MergedRecord{}, "manual", types.EntryMisc},

		{"phd thesis from title", types.MergedRecord{Title: "Learning to Rank: A PhD Thesis"}, "", types.EntryPhDThesis},
		{"report from title", types.MergedRecord{Title: "Efficient Indexing, Technical Report"}, "", types.EntryTechReport},
		{"masters thesis from title", types.MergedRecord{Title: "Graph Coloring (Master's Thesis)"}, "", types.EntryMastersThesis},
		{"title word must be whole", types.MergedRecord{Title: "Testing the PhD thesisometer hypothesis", Venue: "Nature"}, "", types.EntryArticle},

		{"arxiv doi", types.MergedRecord{Venue: "Journal of Things", DOI: "10.48550/arxiv.1706.03762"}, "", types.EntryMisc},
		{"arxiv doi beats declared", types.MergedRecord{DOI: "10.48550/arxiv.1706.03762"}, types.EntryArticle, types.EntryMisc},
		{"arxiv url", types.MergedRecord{Venue: "Journal of Things", URL: "https://arxiv.org/abs/1706.03762"}, "", types.EntryMisc},
		{"conference beats arxiv url", types.MergedRecord{Venue: "Proceedings of ICML", URL: "https://arxiv.org/abs/1706.03762"}, "", types.EntryInProceedings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferEntryType(tt.rec, tt.declared))
		})
	}
}

func TestMergeWebHitKeepsOnlyIdentifyingFields(t *testing.T) {
	rec, notes := Merge(types.CandidateRecord{Title: "Neural Ranking Models"}, nil, []types.ProviderRecord{{
		Source: types.SourceExa, Title: "Neural ranking models", Authors: "Jane Roe", Year: 2021,
		Abstract: "Page summary.", URL: "https://doi.org/10.1000/xyz", DOI: "10.1000/xyz",
	}})
	assert.Empty(t, rec.Authors)
	assert.Zero(t, rec.Year)
	assert.Empty(t, rec.Abstract)
	assert.Equal(t, "10.1000/xyz", rec.DOI)
	assert.Equal(t, "https://doi.org/10.1000/xyz", rec.URL)
	assert.False(t, hasNote(notes, types.FieldAuthors, types.NoteFilled))
	assert.False(t, hasNote(notes, types.FieldYear, types.NoteFilled))
}

func TestMergeArxivIdentifierMarksPreprint(t *testing.T) {
	rec, _ := Merge(types.CandidateRecord{}, nil, []types.ProviderRecord{{
		Source: types.SourceOpenAlex, Title: "Attention is all you need", Year: 2017,
		Venue: "Journal of Things", DOI: "10.48550/arXiv.1706.03762", EntryType: types.EntryArticle,
	}})
	assert.Equal(t, types.EntryMisc, rec.BibtexType)
	assert.Equal(t, "Preprint", rec.Note)
}

func TestMergeDeclaredStandardStaysInVocabulary(t *testing.T) {
	rec, _ := Merge(types.CandidateRecord{}, nil, []types.ProviderRecord{{
		Source: types.SourceCrossRef, Title: "ISO 8601 date format", EntryType: types.EntryTechReport,
	}})
	assert.True(t, types.ValidEntryType(rec.BibtexType))
	assert.Equal(t, types.EntryTechReport, rec.BibtexType)
}

func hasNote(notes []types.ValidationNote, field string, kind types.NoteKind) bool {
	return countNotes(notes, field, kind) > 0
}

func countNotes(notes []types.ValidationNote, field string, kind types.NoteKind) int {
	n := 0
	for _, note := range notes {
		if note.Field == field && note.Kind == kind {
			n++
		}
	}
	return n
}
