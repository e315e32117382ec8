// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every provider adapter.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibresolve/1.0").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetryConfig controls exponential backoff for transient provider failures.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// InitialDelay is the wait before the first retry (default 1s).
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`

	// BackoffBase multiplies the delay after each retry (default 2).
	BackoffBase float64 `json:"backoff_base" yaml:"backoff_base"`

	// MaxDelay caps any single wait (default 60s).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
}

// ProviderConfig holds contact details and credentials for the providers.
// None of them are required; they only raise throughput.
type ProviderConfig struct {
	HTTPConfig `yaml:",inline"`

	// ContactEmail is sent to CrossRef and OpenAlex for their polite pools.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// ExaAPIKey enables the semantic-web fallback search.
	ExaAPIKey string `json:"exa_api_key,omitempty" yaml:"exa_api_key,omitempty"`

	// RequestsPerSecond bounds the request rate of each adapter (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// SearchLimit is the number of records requested per title search (default 3).
	SearchLimit int `json:"search_limit" yaml:"search_limit"`

	Retry RetryConfig `json:"retry" yaml:"retry"`
}

// AIBackendName selects the generative model provider.
type AIBackendName string

const (
	AIBackendClaude AIBackendName = "claude"
	AIBackendGemini AIBackendName = "gemini"
)

// AIConfig holds settings for the generative-model escalation.
type AIConfig struct {
	// Backend selects claude or gemini. Empty disables escalation.
	Backend AIBackendName `json:"backend" yaml:"backend"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens bounds the response length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	Retry RetryConfig `json:"retry" yaml:"retry"`
}

// ResolverConfig holds the engine thresholds.
type ResolverConfig struct {
	// EscalationThreshold is the prior confidence below which a re-run
	// forces model escalation (default 0.80).
	EscalationThreshold float64 `json:"escalation_threshold" yaml:"escalation_threshold"`

	// MaxTextChars is the maximum number of characters forwarded to the model (default 8000).
	MaxTextChars int `json:"max_text_chars" yaml:"max_text_chars"`

	// MaxPDFPages bounds how many pages the PDF adapter reads (default 3).
	MaxPDFPages int `json:"max_pdf_pages" yaml:"max_pdf_pages"`

	// BatchDelay is the pause between documents in a batch (default 1s).
	BatchDelay time.Duration `json:"batch_delay" yaml:"batch_delay"`
}

// StoreConfig locates the resolution history database.
type StoreConfig struct {
	// DataDir holds bibresolve.db.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Config groups every configuration section.
type Config struct {
	Providers ProviderConfig `json:"providers" yaml:"providers"`
	AI        AIConfig       `json:"ai" yaml:"ai"`
	Resolver  ResolverConfig `json:"resolver" yaml:"resolver"`
	Store     StoreConfig    `json:"store" yaml:"store"`
}

// DefaultRetryConfig returns the backoff defaults: 3 retries, 1s initial
// delay, base 2, 60s cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		BackoffBase:  2.0,
		MaxDelay:     60 * time.Second,
	}
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		Providers: ProviderConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "bibresolve/1.0",
			},
			RequestsPerSecond: 2,
			SearchLimit:       3,
			Retry:             DefaultRetryConfig(),
		},
		AI: AIConfig{
			MaxTokens: 2048,
			Retry:     DefaultRetryConfig(),
		},
		Resolver: ResolverConfig{
			EscalationThreshold: 0.80,
			MaxTextChars:        8000,
			MaxPDFPages:         3,
			BatchDelay:          time.Second,
		},
		Store: StoreConfig{
			DataDir: ".bibresolve",
		},
	}
}
