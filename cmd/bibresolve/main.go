// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibresolve CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibresolve/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from the secrets directory at startup.
var loadedSecrets map[string]string

// logger receives pipeline and provider logs; it discards unless --verbose.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the bibresolve CLI.
var rootCmd = &cobra.Command{
	Use:   "bibresolve",
	Short: "Resolve authoritative bibliographic metadata for scientific documents",
	Long: `bibresolve turns a noisy, locally extracted record of a paper (a title, an
author string, maybe a DOI, or just a PDF) into one normalized bibliographic
record with a confidence score.

It looks the DOI up directly, searches CrossRef, Semantic Scholar, OpenAlex
and arXiv in parallel, escalates to a generative model when the structured
providers come back poor, and cross-validates every field before scoring.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bibresolve.yaml or ~/.config/bibresolve/bibresolve.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of secret key files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log provider and pipeline activity to stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibresolve")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibresolve"))
		}
	}

	viper.SetEnvPrefix("BIBRESOLVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
