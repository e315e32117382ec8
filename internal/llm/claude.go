// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/bibresolve/internal/httputil"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const defaultClaudeModel = "claude-sonnet-4-5-20250929"

// Claude calls the Anthropic Messages API over plain HTTP.
type Claude struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
	Policy    httputil.Policy
	logger    *slog.Logger
}

// NewClaude builds a Claude completer from configuration.
func NewClaude(cfg types.AIConfig, logger *slog.Logger) *Claude {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	return &Claude{
		APIKey:    cfg.APIKey,
		Model:     model,
		MaxTokens: cfg.MaxTokens,
		Client:    &http.Client{Timeout: 120 * time.Second},
		Policy:    httputil.PolicyFromConfig(cfg.Retry),
		logger:    logger.With("model", model),
	}
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends one user prompt and returns the first text block. The
// Messages API cannot enforce a schema, so the prompt carries it.
func (c *Claude) Complete(ctx context.Context, system, prompt string, _ Schema) ([]byte, error) {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	body, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	p := c.Policy
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("model call failed, retrying", "attempt", attempt, "delay", delay,
			"rate_limited", httputil.IsRateLimited(err), "error", err)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, p)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return nil, fmt.Errorf("decoding Claude response: %w", err)
	}
	for _, block := range cResp.Content {
		if block.Type == "text" {
			return []byte(block.Text), nil
		}
	}
	return nil, fmt.Errorf("no text content in Claude API response")
}
