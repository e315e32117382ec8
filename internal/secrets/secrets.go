// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and contact addresses from a directory of
// plain-text files. Each file is one secret: the filename is the key and the
// trimmed contents are the value. Keys missing from the directory fall back
// to environment variables, which may come from a .env file.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// Key file names.
const (
	KeyCrossRefEmail         = "crossref-email"
	KeyOpenAlexEmail         = "openalex-email"
	KeySemanticScholarAPIKey = "semantic-scholar-api-key"
	KeyExaAPIKey             = "exa-api-key"
	KeyAnthropicAPIKey       = "anthropic-api-key"
	KeyGeminiAPIKey          = "gemini-api-key"
)

// envNames maps each key to its environment variable.
var envNames = map[string]string{
	KeyCrossRefEmail:         "CROSSREF_EMAIL",
	KeyOpenAlexEmail:         "OPENALEX_EMAIL",
	KeySemanticScholarAPIKey: "SEMANTIC_SCHOLAR_API_KEY",
	KeyExaAPIKey:             "EXA_API_KEY",
	KeyAnthropicAPIKey:       "ANTHROPIC_API_KEY",
	KeyGeminiAPIKey:          "GEMINI_API_KEY",
}

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are logged
// and skipped.
func Load(dir string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", "key", name, "error", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Lookup returns the secret for key, falling back to its environment
// variable.
func Lookup(secrets map[string]string, key string) string {
	if v := secrets[key]; v != "" {
		return v
	}
	if env, ok := envNames[key]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// Apply fills the empty credential fields of cfg. When no model backend is
// configured, the first backend with a key is selected.
func Apply(cfg *types.Config, secrets map[string]string) {
	p := &cfg.Providers
	if p.ContactEmail == "" {
		p.ContactEmail = Lookup(secrets, KeyCrossRefEmail)
	}
	if p.ContactEmail == "" {
		p.ContactEmail = Lookup(secrets, KeyOpenAlexEmail)
	}
	if p.SemanticScholarAPIKey == "" {
		p.SemanticScholarAPIKey = Lookup(secrets, KeySemanticScholarAPIKey)
	}
	if p.ExaAPIKey == "" {
		p.ExaAPIKey = Lookup(secrets, KeyExaAPIKey)
	}

	ai := &cfg.AI
	anthropic := Lookup(secrets, KeyAnthropicAPIKey)
	gemini := Lookup(secrets, KeyGeminiAPIKey)
	if ai.Backend == "" {
		switch {
		case anthropic != "":
			ai.Backend = types.AIBackendClaude
		case gemini != "":
			ai.Backend = types.AIBackendGemini
		}
	}
	if ai.APIKey == "" {
		switch ai.Backend {
		case types.AIBackendClaude:
			ai.APIKey = anthropic
		case types.AIBackendGemini:
			ai.APIKey = gemini
		}
	}
}
