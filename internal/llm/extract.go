// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// Extract asks the completer for the metadata of text, truncated to
// maxChars characters. On any failure it returns a degraded record built
// from known together with the error; the record is always usable.
func Extract(ctx context.Context, c Completer, text string, known types.CandidateRecord, maxChars int) (types.ModelExtraction, error) {
	if c == nil {
		return Degraded(known), fmt.Errorf("no model configured")
	}

	prompt, err := renderPrompt(Truncate(text, maxChars), known)
	if err != nil {
		return Degraded(known), fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := c.Complete(ctx, systemPrompt, prompt, MetadataSchema)
	if err != nil {
		return Degraded(known), fmt.Errorf("calling model: %w", err)
	}

	ext, err := Parse(raw)
	if err != nil {
		return Degraded(known), err
	}
	return ext, nil
}

// Degraded builds the fallback record from the locally known fields.
func Degraded(known types.CandidateRecord) types.ModelExtraction {
	return types.ModelExtraction{
		Title:      known.Title,
		Authors:    known.Authors,
		DOI:        normalize.DOI(known.DOI),
		Confidence: DegradedConfidence,
		Degraded:   true,
	}
}

// Parse decodes a model response. It tolerates Markdown code fences and
// prose around the object, authors and keywords given as a string or a list,
// and years given as a number or a string. Fields of the wrong type are
// dropped rather than failing the whole record.
func Parse(raw []byte) (types.ModelExtraction, error) {
	obj := jsonObject(raw)
	if obj == nil {
		return types.ModelExtraction{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedOutput)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return types.ModelExtraction{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	ext := types.ModelExtraction{
		Title:    normalize.Squash(asString(fields["title"])),
		Abstract: normalize.Squash(asString(fields["abstract"])),
		Journal:  normalize.Squash(asString(fields["journal"])),
		DOI:      normalize.DOI(asString(fields["doi"])),
		Authors:  strings.Join(asList(fields["authors"]), "; "),
		Keywords: asList(fields["keywords"]),
		Year:     asYear(fields["year"]),
	}
	if c, ok := asNumber(fields["confidence"]); ok {
		ext.Confidence = clamp01(c)
	}
	if ext.Title == "" && ext.Authors == "" && ext.DOI == "" && ext.Year == 0 {
		return types.ModelExtraction{}, fmt.Errorf("%w: response has no usable fields", ErrMalformedOutput)
	}
	return ext, nil
}

// jsonObject returns the outermost {...} span of raw, or nil.
func jsonObject(raw []byte) []byte {
	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil
	}
	return raw[start : end+1]
}

func asString(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	return ""
}

func asNumber(v json.RawMessage) (float64, bool) {
	var f float64
	if json.Unmarshal(v, &f) == nil {
		return f, true
	}
	if s := asString(v); s != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func asYear(v json.RawMessage) int {
	if f, ok := asNumber(v); ok && f > 0 {
		return int(f)
	}
	return normalize.Year(asString(v))
}

// asList accepts ["a", "b"], "a; b", or "a, b".
func asList(v json.RawMessage) []string {
	var list []string
	if json.Unmarshal(v, &list) != nil {
		s := asString(v)
		if s == "" {
			return nil
		}
		sep := ","
		if strings.Contains(s, ";") {
			sep = ";"
		}
		list = strings.Split(s, sep)
	}
	var out []string
	for _, item := range list {
		if item = normalize.Squash(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
