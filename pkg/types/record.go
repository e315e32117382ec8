// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SourceID identifies where a metadata record came from.
type SourceID string

const (
	SourceCrossRef             SourceID = "crossref"
	SourceSemanticScholarMatch SourceID = "semantic_scholar_match"
	SourceOpenAlex             SourceID = "openalex"
	SourceSemanticScholar      SourceID = "semantic_scholar"
	SourceArxiv                SourceID = "arxiv"
	SourceExa                  SourceID = "exa"

	// SourceLLM marks fields taken from generative-model output.
	SourceLLM SourceID = "llm"

	// SourceCandidate marks fields taken from the locally extracted candidate.
	SourceCandidate SourceID = "pdf_extraction"
)

// EntryType is a BibTeX entry type.
type EntryType string

const (
	EntryArticle       EntryType = "article"
	EntryInProceedings EntryType = "inproceedings"
	EntryBook          EntryType = "book"
	EntryInBook        EntryType = "inbook"
	EntryInCollection  EntryType = "incollection"
	EntryPhDThesis     EntryType = "phdthesis"
	EntryMastersThesis EntryType = "mastersthesis"
	EntryTechReport    EntryType = "techreport"
	EntryMisc          EntryType = "misc"
)

// ValidEntryType reports whether t belongs to the fixed BibTeX vocabulary.
func ValidEntryType(t EntryType) bool {
	switch t {
	case EntryArticle, EntryInProceedings, EntryBook, EntryInBook, EntryInCollection,
		EntryPhDThesis, EntryMastersThesis, EntryTechReport, EntryMisc:
		return true
	}
	return false
}

// CandidateRecord is the noisy metadata extracted locally from a document.
// Empty strings mean the field is absent.
type CandidateRecord struct {
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Authors string `json:"authors,omitempty" yaml:"authors,omitempty"`
	DOI     string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// Empty reports whether the candidate carries neither a title nor a DOI.
func (c CandidateRecord) Empty() bool {
	return c.Title == "" && c.DOI == ""
}

// ExtractedText is the output of the document text extraction collaborator.
type ExtractedText struct {
	Text       string  `json:"text" yaml:"text"`
	PageCount  int     `json:"page_count" yaml:"page_count"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ProviderRecord is one bibliographic record returned by an external provider,
// mapped onto the common field set.
type ProviderRecord struct {
	Source SourceID `json:"source" yaml:"source"`

	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Authors is the "; "-joined author list.
	Authors string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// AuthorList holds the structured author names when the provider returns them.
	AuthorList []string `json:"author_list,omitempty" yaml:"author_list,omitempty"`

	Year          int       `json:"year,omitempty" yaml:"year,omitempty"`
	Venue         string    `json:"venue,omitempty" yaml:"venue,omitempty"`
	DOI           string    `json:"doi,omitempty" yaml:"doi,omitempty"`
	Volume        string    `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue         string    `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages         string    `json:"pages,omitempty" yaml:"pages,omitempty"`
	Publisher     string    `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Abstract      string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	URL           string    `json:"url,omitempty" yaml:"url,omitempty"`
	CitationCount *int      `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`
	EntryType     EntryType `json:"entry_type,omitempty" yaml:"entry_type,omitempty"`
}

// Empty reports whether the record carries no title and no DOI.
func (r ProviderRecord) Empty() bool {
	return r.Title == "" && r.DOI == ""
}

// MergedRecord is the single reconciled record produced by one resolution.
type MergedRecord struct {
	Title         string    `json:"title,omitempty" yaml:"title,omitempty"`
	Authors       string    `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year          int       `json:"year,omitempty" yaml:"year,omitempty"`
	Venue         string    `json:"venue,omitempty" yaml:"venue,omitempty"`
	DOI           string    `json:"doi,omitempty" yaml:"doi,omitempty"`
	Volume        string    `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue         string    `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages         string    `json:"pages,omitempty" yaml:"pages,omitempty"`
	Publisher     string    `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Abstract      string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	URL           string    `json:"url,omitempty" yaml:"url,omitempty"`
	CitationCount *int      `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`
	BibtexType    EntryType `json:"bibtex_type" yaml:"bibtex_type"`
	Keywords      []string  `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Note          string    `json:"note,omitempty" yaml:"note,omitempty"`
}
