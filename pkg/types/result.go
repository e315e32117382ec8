// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// NoteKind classifies a validation note.
type NoteKind string

const (
	// NoteFilled means the field was empty and the source supplied it.
	NoteFilled NoteKind = "filled"

	// NoteValidated means an independent source agreed with the held value.
	NoteValidated NoteKind = "validated"

	// NoteOverridden means a more reliable source replaced a disagreeing value.
	NoteOverridden NoteKind = "overridden"

	// NoteMismatch means a source disagreed and the held value was kept.
	NoteMismatch NoteKind = "mismatch"

	// NoteAdopted means a provider title was adopted at low similarity.
	NoteAdopted NoteKind = "adopted"

	// NoteBonus records a scoring bonus earned by the pipeline path.
	NoteBonus NoteKind = "bonus"
)

// Field names used in validation notes.
const (
	FieldTitle         = "title"
	FieldAuthors       = "authors"
	FieldYear          = "year"
	FieldVenue         = "venue"
	FieldDOI           = "doi"
	FieldURL           = "url"
	FieldAbstract      = "abstract"
	FieldVolume        = "volume"
	FieldIssue         = "issue"
	FieldPages         = "pages"
	FieldPublisher     = "publisher"
	FieldCitationCount = "citation_count"
	FieldEntryType     = "entry_type"

	// BonusDOILookup is the note field for a successful direct DOI lookup.
	BonusDOILookup = "doi_lookup"

	// BonusEscalation is the note field for a deliberate, forced model re-run.
	BonusEscalation = "escalation"
)

// ValidationNote is one entry of the append-only merge log.
type ValidationNote struct {
	Field  string   `json:"field" yaml:"field"`
	Kind   NoteKind `json:"kind" yaml:"kind"`
	Source SourceID `json:"source" yaml:"source"`
	Detail string   `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (n ValidationNote) String() string {
	if n.Detail == "" {
		return fmt.Sprintf("%s %s by %s", n.Kind, n.Field, n.Source)
	}
	return fmt.Sprintf("%s %s by %s: %s", n.Kind, n.Field, n.Source, n.Detail)
}

// Status is the terminal state of a resolution.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ResolutionResult is the output of one call to the resolution engine.
type ResolutionResult struct {
	// ID uniquely identifies this resolution run.
	ID string `json:"id" yaml:"id"`

	Metadata   MergedRecord `json:"metadata" yaml:"metadata"`
	Confidence float64      `json:"confidence" yaml:"confidence"`

	// Sources is the sorted set of providers that contributed at least one record.
	Sources []SourceID `json:"sources" yaml:"sources"`

	Status Status   `json:"status" yaml:"status"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	Notes []ValidationNote `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Escalated is true when the generative model was called.
	Escalated bool `json:"escalated" yaml:"escalated"`

	// DOIHit is true when the direct DOI lookup returned at least one record.
	DOIHit bool `json:"doi_hit" yaml:"doi_hit"`
}
