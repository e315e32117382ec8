// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch resolves documents described by candidate fields, a PDF, or
// a text file, records them in the history store, and runs whole batches
// read from YAML.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdiddy/bibresolve/internal/pdftext"
	"github.com/pdiddy/bibresolve/internal/store"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// Resolver is the engine entry point.
type Resolver interface {
	Resolve(ctx context.Context, candidate types.CandidateRecord, text types.ExtractedText, force bool) types.ResolutionResult
}

// History is the part of the store a Runner uses.
type History interface {
	Latest(ctx context.Context, docKey string) (*store.Entry, error)
	Save(ctx context.Context, docKey string, res types.ResolutionResult) error
}

// Item describes one document to resolve.
type Item struct {
	Title    string `yaml:"title,omitempty"`
	Authors  string `yaml:"authors,omitempty"`
	DOI      string `yaml:"doi,omitempty"`
	PDF      string `yaml:"pdf,omitempty"`
	TextFile string `yaml:"text_file,omitempty"`
	Force    bool   `yaml:"force_escalation,omitempty"`
}

// Runner wires the engine to its inputs and the history store.
type Runner struct {
	Resolver Resolver

	// History may be nil, in which case nothing is recorded.
	History History

	Config types.ResolverConfig
}

// Resolve prepares the inputs of item and resolves it. Explicit candidate
// fields take precedence over those derived from the PDF. A low-confidence
// prior run that never escalated forces escalation.
func (r *Runner) Resolve(ctx context.Context, item Item) (types.ResolutionResult, error) {
	text, derived, err := r.load(item)
	if err != nil {
		return types.ResolutionResult{}, err
	}
	candidate := types.CandidateRecord{
		Title:   firstNonEmpty(item.Title, derived.Title),
		Authors: firstNonEmpty(item.Authors, derived.Authors),
		DOI:     firstNonEmpty(item.DOI, derived.DOI),
	}

	docKey := store.DocKey(candidate, item.PDF)
	force := item.Force
	if r.History != nil && docKey != "" {
		prior, err := r.History.Latest(ctx, docKey)
		if err != nil {
			return types.ResolutionResult{}, err
		}
		force = force || store.ShouldForceEscalation(prior, r.Config.EscalationThreshold)
	}

	res := r.Resolver.Resolve(ctx, candidate, text, force)

	if r.History != nil && docKey != "" && res.Status == types.StatusCompleted {
		if err := r.History.Save(ctx, docKey, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *Runner) load(item Item) (types.ExtractedText, types.CandidateRecord, error) {
	switch {
	case item.PDF != "":
		text, err := pdftext.Extract(item.PDF, r.Config.MaxPDFPages)
		if err != nil {
			return types.ExtractedText{}, types.CandidateRecord{}, fmt.Errorf("extracting text: %w", err)
		}
		return text, pdftext.Candidate(text.Text), nil
	case item.TextFile != "":
		data, err := os.ReadFile(item.TextFile)
		if err != nil {
			return types.ExtractedText{}, types.CandidateRecord{}, fmt.Errorf("reading text file: %w", err)
		}
		text := types.ExtractedText{Text: string(data), PageCount: 1, Confidence: pdftext.TextLayerConfidence}
		return text, pdftext.Candidate(text.Text), nil
	}
	return types.ExtractedText{}, types.CandidateRecord{}, nil
}

// Summary counts the outcomes of a batch.
type Summary struct {
	Completed int
	Failed    int
	Results   []Outcome
}

// HasFailures reports whether any item failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Outcome pairs an item with its result.
type Outcome struct {
	Item   Item                    `yaml:"item"`
	Result *types.ResolutionResult `yaml:"result,omitempty"`
	Error  string                  `yaml:"error,omitempty"`
}

// Run resolves items sequentially, pausing Config.BatchDelay between them,
// and writes one progress line per item to w.
func (r *Runner) Run(ctx context.Context, items []Item, w io.Writer) Summary {
	var s Summary
	for i, item := range items {
		if i > 0 && r.Config.BatchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.Config.BatchDelay):
			}
		}
		label := describe(item)

		if ctx.Err() != nil {
			fmt.Fprintf(w, "failed:    %s (%v)\n", label, ctx.Err())
			s.Failed++
			s.Results = append(s.Results, Outcome{Item: item, Error: ctx.Err().Error()})
			continue
		}

		res, err := r.Resolve(ctx, item)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:    %s (%v)\n", label, err)
			s.Failed++
			s.Results = append(s.Results, Outcome{Item: item, Error: err.Error()})
		case res.Status == types.StatusFailed:
			fmt.Fprintf(w, "failed:    %s (%s)\n", label, joinErrors(res.Errors))
			s.Failed++
			s.Results = append(s.Results, Outcome{Item: item, Result: &res})
		default:
			fmt.Fprintf(w, "resolved:  %s (confidence %.3f)\n", label, res.Confidence)
			s.Completed++
			s.Results = append(s.Results, Outcome{Item: item, Result: &res})
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d completed, %d failed\n", s.Completed, s.Failed)
	return s
}

func describe(item Item) string {
	return firstNonEmpty(item.DOI, item.Title, item.PDF, item.TextFile, "(empty item)")
}

func joinErrors(errs []string) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	return errs[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
