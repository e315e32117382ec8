// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve runs the resolution pipeline: DOI-first lookup, parallel
// title search, optional model escalation, merge, and scoring.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/bibresolve/internal/confidence"
	"github.com/pdiddy/bibresolve/internal/llm"
	"github.com/pdiddy/bibresolve/internal/merge"
	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/internal/provider"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// ErrNoInput fails a resolution that has nothing to work with.
var ErrNoInput = errors.New("no usable input: candidate has no title or DOI and the extracted text is empty")

// Options configures an Engine.
type Options struct {
	Providers   provider.Set
	Completer   llm.Completer
	Config      types.ResolverConfig
	SearchLimit int
	Logger      *slog.Logger
}

// Engine resolves candidate records. It is safe for concurrent use when its
// providers and completer are.
type Engine struct {
	providers provider.Set
	gate      Gate
	limit     int
	logger    *slog.Logger
}

// New builds an Engine. Zero options take the defaults of
// types.DefaultConfig.
func New(opts Options) *Engine {
	def := types.DefaultConfig()
	cfg := opts.Config
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = def.Resolver.MaxTextChars
	}
	limit := opts.SearchLimit
	if limit <= 0 {
		limit = def.Providers.SearchLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		providers: opts.Providers,
		gate:      Gate{Completer: opts.Completer, MaxTextChars: cfg.MaxTextChars},
		limit:     limit,
		logger:    logger,
	}
}

// Resolve produces the merged record and its confidence for one document.
// Provider and model failures degrade the result; only a candidate with no
// title, no DOI, and no text fails it. forceEscalation runs the model even
// when the search yield is good.
func (e *Engine) Resolve(ctx context.Context, candidate types.CandidateRecord, text types.ExtractedText, forceEscalation bool) types.ResolutionResult {
	res := types.ResolutionResult{ID: uuid.NewString(), Status: types.StatusCompleted}
	log := e.logger.With("resolution", res.ID)

	if strings.TrimSpace(candidate.Title) == "" && !normalize.ValidDOI(candidate.DOI) && strings.TrimSpace(text.Text) == "" {
		log.Warn("nothing to resolve")
		res.Status = types.StatusFailed
		res.Errors = []string{ErrNoInput.Error()}
		return res
	}

	log.Debug("phase", "name", "doi_first", "doi", normalize.DOI(candidate.DOI))
	doiRecords, errs := DOIFirst(ctx, e.providers.DOI, candidate.DOI)
	res.Errors = append(res.Errors, errs...)
	res.DOIHit = len(doiRecords) > 0

	if !res.DOIHit {
		log.Debug("phase", "name", "title_search")
	}
	hits := SearchTitles(ctx, e.providers, provider.Query{Title: candidate.Title, Authors: candidate.Authors}, e.limit, doiRecords)

	var model *types.ModelExtraction
	if e.gate.ShouldEscalate(hits.Good, forceEscalation, text.Text) {
		log.Info("phase", "name", "escalation", "forced", forceEscalation, "good_yield", hits.Good)
		res.Escalated = true

		ext, err := e.gate.Extract(ctx, text.Text, candidate)
		if err != nil {
			log.Warn("model extraction degraded", "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", types.SourceLLM, err))
		}
		model = &ext
		if !ext.Degraded {
			hits = union(hits, e.searchModel(ctx, candidate, ext))
		}
	}
	res.Errors = append(res.Errors, hits.Errors...)

	log.Debug("phase", "name", "merge", "hits", len(hits.Records))
	rec, notes := merge.Merge(candidate, model, hits.Records)
	if res.DOIHit {
		notes = append(notes, types.ValidationNote{
			Field: types.BonusDOILookup, Kind: types.NoteBonus, Source: doiRecords[0].Source,
		})
	}
	if forceEscalation && model != nil && !model.Degraded {
		notes = append(notes, types.ValidationNote{
			Field: types.BonusEscalation, Kind: types.NoteBonus, Source: types.SourceLLM,
		})
	}

	res.Metadata = rec
	res.Notes = notes
	res.Sources = sources(hits.Records)
	res.Confidence = confidence.Score(rec, res.Sources, notes)
	log.Info("resolved", "confidence", res.Confidence, "sources", len(res.Sources), "escalated", res.Escalated)
	return res
}

// searchModel searches again with what the model found. A new DOI is looked
// up directly; otherwise the model's title drives a title search.
func (e *Engine) searchModel(ctx context.Context, candidate types.CandidateRecord, ext types.ModelExtraction) Hits {
	var doiRecords []types.ProviderRecord
	var errs []string
	if ext.DOI != "" && ext.DOI != normalize.DOI(candidate.DOI) {
		doiRecords, errs = DOIFirst(ctx, e.providers.DOI, ext.DOI)
	}
	hits := SearchTitles(ctx, e.providers, provider.Query{Title: ext.Title, Authors: ext.Authors}, e.limit, doiRecords)
	hits.Errors = append(errs, hits.Errors...)
	return hits
}

// sources returns the sorted set of provider sources behind records.
func sources(records []types.ProviderRecord) []types.SourceID {
	var out []types.SourceID
	for _, r := range records {
		if !slices.Contains(out, r.Source) {
			out = append(out, r.Source)
		}
	}
	slices.Sort(out)
	return out
}
