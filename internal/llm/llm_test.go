// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/pdiddy/bibresolve/internal/httputil"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// fakeCompleter returns a fixed response and records the prompt it saw.
type fakeCompleter struct {
	resp   string
	err    error
	prompt string
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string, _ Schema) ([]byte, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.resp), nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want types.ModelExtraction
	}{
		{
			name: "well formed",
			raw:  `{"title":"Deep Learning","authors":["Yann LeCun","Yoshua Bengio"],"abstract":"A","year":2015,"journal":"Nature","doi":"https://doi.org/10.1038/NATURE14539","keywords":["dl"],"confidence":0.9}`,
			want: types.ModelExtraction{
				Title: "Deep Learning", Authors: "Yann LeCun; Yoshua Bengio", Abstract: "A", Year: 2015,
				Journal: "Nature", DOI: "10.1038/nature14539", Keywords: []string{"dl"}, Confidence: 0.9,
			},
		},
		{
			name: "code fence and string fields",
			raw:  "```json\n{\"title\":\"T\",\"authors\":\"A. One, B. Two\",\"year\":\"2019\",\"keywords\":\"x; y\",\"confidence\":\"0.5\"}\n```",
			want: types.ModelExtraction{
				Title: "T", Authors: "A. One; B. Two", Year: 2019, Keywords: []string{"x", "y"}, Confidence: 0.5,
			},
		},
		{
			name: "nulls and wrong types are dropped",
			raw:  `{"title":"T","authors":null,"year":{"bad":1},"doi":null,"journal":7,"confidence":3}`,
			want: types.ModelExtraction{Title: "T", Confidence: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"no json here", `{"title": `, `{"abstract":"only abstract"}`} {
		_, err := Parse([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedOutput, raw)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 8000))
	assert.Equal(t, "héł", Truncate("héłło", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestExtract_Success(t *testing.T) {
	f := &fakeCompleter{resp: `{"title":"Model Title","authors":["A B"],"year":2020,"confidence":0.8}`}
	text := strings.Repeat("x", 9000) + "TAIL"
	known := types.CandidateRecord{Title: "Candidate Title", Authors: "A. B."}

	ext, err := Extract(context.Background(), f, text, known, 8000)
	require.NoError(t, err)
	assert.Equal(t, "Model Title", ext.Title)
	assert.False(t, ext.Degraded)

	assert.Equal(t, 1, f.calls)
	assert.NotContains(t, f.prompt, "TAIL", "text beyond the limit is not sent")
	assert.Contains(t, f.prompt, strings.Repeat("x", 8000))
	assert.Contains(t, f.prompt, "- title: Candidate Title")
	assert.Contains(t, f.prompt, "- confidence (number)")
}

func TestExtract_FailuresDegrade(t *testing.T) {
	known := types.CandidateRecord{Title: "Known", Authors: "K. Author", DOI: "doi:10.1000/ABC"}
	tests := []struct {
		name    string
		c       Completer
		wantErr error
	}{
		{"completer error", &fakeCompleter{err: errors.New("boom")}, nil},
		{"malformed output", &fakeCompleter{resp: "I cannot help"}, ErrMalformedOutput},
		{"no completer", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := Extract(context.Background(), tt.c, "text", known, 8000)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.True(t, ext.Degraded)
			assert.Equal(t, DegradedConfidence, ext.Confidence)
			assert.Equal(t, "Known", ext.Title)
			assert.Equal(t, "K. Author", ext.Authors)
			assert.Equal(t, "10.1000/abc", ext.DOI)
		})
	}
}

func TestClaudeComplete(t *testing.T) {
	var got claudeRequest
	var headers http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"{\"title\":\"X\"}"}]}`)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	c := NewClaude(types.AIConfig{APIKey: "key", Model: "m"}, nil)
	c.Client = ts.Client()

	out, err := c.Complete(context.Background(), "sys", "user prompt", MetadataSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"X"}`, string(out))
	assert.Equal(t, "key", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, 2048, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user prompt", got.Messages[0].Content)
}

func TestClaudeComplete_RetriesOverload(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(529)
			return
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"{}"}]}`)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	c := NewClaude(types.AIConfig{APIKey: "key"}, nil)
	c.Client = ts.Client()
	c.Policy = httputil.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffBase: 2, MaxDelay: time.Millisecond}

	_, err := c.Complete(context.Background(), "s", "p", MetadataSchema)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(MetadataSchema)
	assert.Equal(t, genai.TypeObject, s.Type)
	require.Len(t, s.Properties, 8)
	assert.Equal(t, genai.TypeArray, s.Properties["authors"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["authors"].Items.Type)
	assert.Equal(t, genai.TypeInteger, s.Properties["year"].Type)
	assert.True(t, s.Properties["doi"].Nullable)
}

func geminiText(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
	}}}
}

func fastGemini() *Gemini {
	g := NewGemini(types.AIConfig{APIKey: "k"}, nil)
	g.Policy = httputil.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffBase: 2, MaxDelay: time.Millisecond}
	return g
}

func TestGeminiComplete_RetriesServerError(t *testing.T) {
	g := fastGemini()
	calls := 0
	g.generate = func(_ context.Context, system, prompt string, _ Schema) (*genai.GenerateContentResponse, error) {
		calls++
		assert.Equal(t, "sys", system)
		assert.Equal(t, "p", prompt)
		if calls == 1 {
			return nil, &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "overloaded"}
		}
		return geminiText(`{"title":"X"}`), nil
	}

	out, err := g.Complete(context.Background(), "sys", "p", MetadataSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"X"}`, string(out))
	assert.Equal(t, 2, calls)
}

func TestGeminiComplete_ClientErrorNotRetried(t *testing.T) {
	g := fastGemini()
	calls := 0
	g.generate = func(context.Context, string, string, Schema) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, &googleapi.Error{Code: http.StatusBadRequest, Message: "bad schema"}
	}

	_, err := g.Complete(context.Background(), "s", "p", MetadataSchema)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGeminiComplete_NetworkErrorRetriedUntilExhausted(t *testing.T) {
	g := fastGemini()
	calls := 0
	g.generate = func(context.Context, string, string, Schema) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, errors.New("connection reset by peer")
	}

	_, err := g.Complete(context.Background(), "s", "p", MetadataSchema)
	require.Error(t, err)
	assert.ErrorIs(t, err, httputil.ErrTransient)
	assert.Equal(t, 3, calls)
}

func TestGeminiComplete_EmptyCandidates(t *testing.T) {
	g := fastGemini()
	g.generate = func(context.Context, string, string, Schema) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	}
	_, err := g.Complete(context.Background(), "s", "p", MetadataSchema)
	assert.Error(t, err)
}

func TestGeminiCloseWithoutClient(t *testing.T) {
	assert.NoError(t, NewGemini(types.AIConfig{APIKey: "k"}, nil).Close())
}

func TestNew(t *testing.T) {
	c, err := New(types.AIConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(types.AIConfig{Backend: types.AIBackendClaude, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Claude{}, c)

	c, err = New(types.AIConfig{Backend: types.AIBackendGemini, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, c)

	_, err = New(types.AIConfig{Backend: types.AIBackendGemini}, nil)
	assert.Error(t, err)

	_, err = New(types.AIConfig{Backend: "other", APIKey: "k"}, nil)
	assert.Error(t, err)
}
