// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm reads bibliographic metadata out of document text with a
// generative model. Model backends implement Completer (Strategy pattern);
// Extract renders the prompt, calls the backend, and tolerantly parses the
// JSON it returns.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// ErrMalformedOutput is returned when the model response is not the
// expected JSON object.
var ErrMalformedOutput = errors.New("malformed model output")

// DegradedConfidence is the confidence assigned to a record rebuilt from
// known fields after a model failure.
const DegradedConfidence = 0.2

// Completer sends one prompt to a generative model and returns the raw
// response text. Implementations should ask the model for JSON matching
// schema when they can enforce it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, schema Schema) ([]byte, error)
}

// FieldType is the JSON type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeArray   FieldType = "array"
)

// Field describes one property of the response object.
type Field struct {
	Name        string
	Type        FieldType
	Description string
}

// Schema is the flat JSON object a model is asked to return.
type Schema struct {
	Name   string
	Fields []Field
}

// MetadataSchema is the fixed response shape for metadata extraction.
var MetadataSchema = Schema{
	Name: "paper_metadata",
	Fields: []Field{
		{"title", TypeString, "full paper title"},
		{"authors", TypeArray, "author names in document order"},
		{"abstract", TypeString, "abstract text"},
		{"year", TypeInteger, "publication year"},
		{"journal", TypeString, "journal or conference name"},
		{"doi", TypeString, "DOI without resolver prefix"},
		{"keywords", TypeArray, "author keywords"},
		{"confidence", TypeNumber, "certainty between 0 and 1"},
	},
}

// New selects the completer named by cfg.Backend. An empty backend disables
// escalation and returns nil.
func New(cfg types.AIConfig, logger *slog.Logger) (Completer, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case types.AIBackendClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude backend requires an API key (anthropic-api-key)")
		}
		return NewClaude(cfg, logger), nil
	case types.AIBackendGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini backend requires an API key (gemini-api-key)")
		}
		return NewGemini(cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown AI backend %q (use claude or gemini)", cfg.Backend)
}
