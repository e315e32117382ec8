// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ModelExtraction is the metadata a generative model read from the document
// text. Absent fields are zero.
type ModelExtraction struct {
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors  string   `json:"authors,omitempty" yaml:"authors,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Journal  string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	DOI      string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Confidence is the model's self-reported certainty, or 0.2 for a
	// degraded record built after a model failure.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Degraded is true when the record was rebuilt from known fields
	// because the model call or its output failed.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}
