// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// systemPrompt frames every extraction call.
const systemPrompt = `You are a bibliographic metadata extraction system. You read the opening pages of a scientific document and return its citation metadata as a single JSON object. Never invent values: use null for anything the text does not state.`

// metadataPromptTmpl is the user prompt for one document.
var metadataPromptTmpl = template.Must(template.New("metadata").Parse(`Extract the bibliographic metadata of the document below.

Return a JSON object with exactly these fields:
{{- range .Schema.Fields}}
- {{.Name}} ({{.Type}}): {{.Description}}
{{- end}}

Do not include any text outside the JSON object.
{{- if or .Known.Title .Known.Authors .Known.DOI}}

Partial metadata recovered locally (may contain OCR errors):
{{- if .Known.Title}}
- title: {{.Known.Title}}
{{- end}}
{{- if .Known.Authors}}
- authors: {{.Known.Authors}}
{{- end}}
{{- if .Known.DOI}}
- doi: {{.Known.DOI}}
{{- end}}
{{- end}}

Document text:
{{.Text}}
`))

// renderPrompt executes the metadata prompt template.
func renderPrompt(text string, known types.CandidateRecord) (string, error) {
	var buf bytes.Buffer
	err := metadataPromptTmpl.Execute(&buf, struct {
		Schema Schema
		Known  types.CandidateRecord
		Text   string
	}{MetadataSchema, known, text})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Truncate returns the first max characters of text without splitting a
// multi-byte rune. A non-positive max returns text unchanged.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	var b strings.Builder
	n := 0
	for _, r := range text {
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
