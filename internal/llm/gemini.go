// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pdiddy/bibresolve/internal/httputil"
	"github.com/pdiddy/bibresolve/pkg/types"
)

const defaultGeminiModel = "gemini-1.5-flash"

// errGeminiClient marks a failure to construct the client. It is not retried.
var errGeminiClient = errors.New("failed to create new gemini client")

// Gemini calls Google Gemini with a JSON response schema. The underlying
// client is created on first use and reused until Close.
type Gemini struct {
	APIKey    string
	Model     string
	MaxTokens int
	Policy    httputil.Policy
	logger    *slog.Logger

	mu     sync.Mutex
	client *genai.Client

	// generate performs one attempt. Tests replace it.
	generate func(ctx context.Context, system, prompt string, schema Schema) (*genai.GenerateContentResponse, error)
}

// NewGemini builds a Gemini completer from configuration.
func NewGemini(cfg types.AIConfig, logger *slog.Logger) *Gemini {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	g := &Gemini{
		APIKey:    cfg.APIKey,
		Model:     model,
		MaxTokens: cfg.MaxTokens,
		Policy:    httputil.PolicyFromConfig(cfg.Retry),
		logger:    logger.With("model", model),
	}
	g.generate = g.generateContent
	return g
}

// Close releases the client, if one was created.
func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func (g *Gemini) clientFor(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errGeminiClient, err)
	}
	g.client = client
	return client, nil
}

func (g *Gemini) generateContent(ctx context.Context, system, prompt string, schema Schema) (*genai.GenerateContentResponse, error) {
	client, err := g.clientFor(ctx)
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(g.Model)
	model.SetTemperature(0)
	if g.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.MaxTokens))
	}
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = geminiSchema(schema)
	return model.GenerateContent(ctx, genai.Text(prompt))
}

// Complete generates one response constrained to schema, retrying
// throttling and server errors.
func (g *Gemini) Complete(ctx context.Context, system, prompt string, schema Schema) ([]byte, error) {
	p := g.Policy
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		g.logger.Warn("model call failed, retrying", "attempt", attempt, "delay", delay,
			"rate_limited", httputil.IsRateLimited(err), "error", err)
	}

	var resp *genai.GenerateContentResponse
	err := httputil.Retry(ctx, p, func(ctx context.Context) error {
		r, err := g.generate(ctx, system, prompt, schema)
		if err != nil {
			return classifyGemini(ctx, err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}
	return []byte(b.String()), nil
}

// classifyGemini maps API errors onto the httputil failure classes. Errors
// carrying an HTTP status become a StatusError; cancellation passes through;
// anything else is a network-level failure and is retried.
func classifyGemini(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, errGeminiClient) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &httputil.StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return &httputil.StatusError{StatusCode: coded.HTTPCode(), Body: err.Error()}
	}
	return fmt.Errorf("%w: %v", httputil.ErrTransient, err)
}

// geminiSchema converts a Schema into the genai response schema. Every
// field is nullable so the model can report absent metadata.
func geminiSchema(s Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Fields)),
	}
	for _, f := range s.Fields {
		prop := &genai.Schema{Description: f.Description, Nullable: true}
		switch f.Type {
		case TypeString:
			prop.Type = genai.TypeString
		case TypeInteger:
			prop.Type = genai.TypeInteger
		case TypeNumber:
			prop.Type = genai.TypeNumber
		case TypeArray:
			prop.Type = genai.TypeArray
			prop.Items = &genai.Schema{Type: genai.TypeString}
		}
		out.Properties[f.Name] = prop
	}
	return out
}
