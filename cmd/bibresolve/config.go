// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/bibresolve/internal/batch"
	"github.com/pdiddy/bibresolve/internal/llm"
	"github.com/pdiddy/bibresolve/internal/provider"
	"github.com/pdiddy/bibresolve/internal/resolve"
	"github.com/pdiddy/bibresolve/internal/secrets"
	"github.com/pdiddy/bibresolve/internal/store"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// loadConfig starts from the defaults, applies the config file and
// BIBRESOLVE_* environment variables, then fills credentials from secrets.
func loadConfig() types.Config {
	cfg := types.DefaultConfig()

	p := &cfg.Providers
	setDuration("providers.timeout", &p.Timeout)
	setString("providers.user_agent", &p.UserAgent)
	setString("providers.contact_email", &p.ContactEmail)
	setString("providers.semantic_scholar_api_key", &p.SemanticScholarAPIKey)
	setString("providers.exa_api_key", &p.ExaAPIKey)
	setFloat("providers.requests_per_second", &p.RequestsPerSecond)
	setInt("providers.search_limit", &p.SearchLimit)
	setRetry("providers.retry", &p.Retry)

	ai := &cfg.AI
	if viper.IsSet("ai.backend") {
		ai.Backend = types.AIBackendName(viper.GetString("ai.backend"))
	}
	setString("ai.model", &ai.Model)
	setString("ai.api_key", &ai.APIKey)
	setInt("ai.max_tokens", &ai.MaxTokens)
	setRetry("ai.retry", &ai.Retry)

	r := &cfg.Resolver
	setFloat("resolver.escalation_threshold", &r.EscalationThreshold)
	setInt("resolver.max_text_chars", &r.MaxTextChars)
	setInt("resolver.max_pdf_pages", &r.MaxPDFPages)
	setDuration("resolver.batch_delay", &r.BatchDelay)

	setString("store.data_dir", &cfg.Store.DataDir)

	secrets.Apply(&cfg, loadedSecrets)
	return cfg
}

func setString(key string, dst *string) {
	if viper.IsSet(key) {
		*dst = viper.GetString(key)
	}
}

func setInt(key string, dst *int) {
	if viper.IsSet(key) {
		*dst = viper.GetInt(key)
	}
}

func setFloat(key string, dst *float64) {
	if viper.IsSet(key) {
		*dst = viper.GetFloat64(key)
	}
}

func setDuration(key string, dst *time.Duration) {
	if viper.IsSet(key) {
		*dst = viper.GetDuration(key)
	}
}

func setRetry(prefix string, dst *types.RetryConfig) {
	setInt(prefix+".max_retries", &dst.MaxRetries)
	setDuration(prefix+".initial_delay", &dst.InitialDelay)
	setFloat(prefix+".backoff_base", &dst.BackoffBase)
	setDuration(prefix+".max_delay", &dst.MaxDelay)
}

// newRunner builds the engine and, unless noStore, opens the history store.
// The returned function releases the store and the model client.
func newRunner(cfg types.Config, noStore bool) (*batch.Runner, func(), error) {
	completer, err := llm.New(cfg.AI, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring model: %w", err)
	}
	engine := resolve.New(resolve.Options{
		Providers:   provider.NewSet(cfg.Providers, logger),
		Completer:   completer,
		Config:      cfg.Resolver,
		SearchLimit: cfg.Providers.SearchLimit,
		Logger:      logger,
	})

	closeModel := func() {
		if c, ok := completer.(io.Closer); ok {
			c.Close()
		}
	}

	r := &batch.Runner{Resolver: engine, Config: cfg.Resolver}
	if noStore {
		return r, closeModel, nil
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		closeModel()
		return nil, nil, err
	}
	r.History = st
	return r, func() {
		closeModel()
		st.Close()
	}, nil
}
