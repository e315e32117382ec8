// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibresolve/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{DataDir: filepath.Join(t.TempDir(), "data")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(id string, conf float64, escalated bool) types.ResolutionResult {
	return types.ResolutionResult{
		ID:         id,
		Status:     types.StatusCompleted,
		Confidence: conf,
		Escalated:  escalated,
		Metadata:   types.MergedRecord{Title: "Paper " + id, DOI: "10.1000/" + id},
		Sources:    []types.SourceID{types.SourceCrossRef},
		Notes:      []types.ValidationNote{{Field: types.FieldTitle, Kind: types.NoteFilled, Source: types.SourceCrossRef}},
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := Open(types.StoreConfig{DataDir: dir})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, dbFile))
	assert.NoError(t, err)
}

func TestSaveAndLatest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "doi:10.1000/a", result("r1", 0.5, false)))
	require.NoError(t, s.Save(ctx, "doi:10.1000/a", result("r2", 0.9, true)))
	require.NoError(t, s.Save(ctx, "doi:10.1000/b", result("r3", 0.7, false)))

	e, err := s.Latest(ctx, "doi:10.1000/a")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "doi:10.1000/a", e.DocKey)
	assert.Equal(t, "r2", e.Result.ID)
	assert.Equal(t, 0.9, e.Result.Confidence)
	assert.True(t, e.Result.Escalated)
	assert.Equal(t, "Paper r2", e.Result.Metadata.Title)
	assert.Equal(t, []types.SourceID{types.SourceCrossRef}, e.Result.Sources)
	assert.False(t, e.ResolvedAt.IsZero())
}

func TestLatestMissing(t *testing.T) {
	e, err := testStore(t).Latest(context.Background(), "doi:10.1000/none")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestSaveDuplicateID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "k", result("same", 0.5, false)))
	assert.Error(t, s.Save(ctx, "k", result("same", 0.5, false)))
}

func TestList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(ctx, "key-"+id, result(id, 0.5, false)))
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Result.ID)
	assert.Equal(t, "a", all[2].Result.ID)

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestShouldForceEscalation(t *testing.T) {
	low := &Entry{Result: result("x", 0.4, false)}
	high := &Entry{Result: result("x", 0.9, false)}
	tried := &Entry{Result: result("x", 0.4, true)}
	failed := &Entry{Result: types.ResolutionResult{Status: types.StatusFailed}}

	assert.True(t, ShouldForceEscalation(low, 0.8))
	assert.False(t, ShouldForceEscalation(high, 0.8))
	assert.False(t, ShouldForceEscalation(tried, 0.8))
	assert.False(t, ShouldForceEscalation(failed, 0.8))
	assert.False(t, ShouldForceEscalation(nil, 0.8))
}

func TestDocKey(t *testing.T) {
	assert.Equal(t, "doi:10.1000/abc", DocKey(types.CandidateRecord{Title: "T", DOI: "https://doi.org/10.1000/ABC"}, "x.pdf"))

	a := DocKey(types.CandidateRecord{Title: "Attention Is All You Need"}, "")
	b := DocKey(types.CandidateRecord{Title: "attention is all you need."}, "other.pdf")
	assert.Equal(t, a, b, "normalized titles share a key")
	assert.Regexp(t, `^title:[0-9a-f]{16}$`, a)

	assert.Regexp(t, `^file:[0-9a-f]{16}$`, DocKey(types.CandidateRecord{}, "paper.pdf"))
	assert.Empty(t, DocKey(types.CandidateRecord{}, ""))
}
