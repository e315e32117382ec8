// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibresolve/internal/export"
	"github.com/pdiddy/bibresolve/internal/store"
	"github.com/pdiddy/bibresolve/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the resolution history",
	Long: `Export recorded resolutions as a Parquet table for analysis, as YAML, or as
a bibliography (BibTeX or CSL-YAML) of the completed records.`,
	Example: `  bibresolve export --format parquet --out history.parquet
  bibresolve export --format bibtex > references.bib`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "parquet", "export format: parquet, yaml, bibtex or csl")
	exportCmd.Flags().String("out", "", "output file (required for parquet; stdout otherwise)")
	exportCmd.Flags().Int("limit", 0, "maximum number of entries (0 for all)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	limit, _ := cmd.Flags().GetInt("limit")

	if format == "parquet" && out == "" {
		return fmt.Errorf("--out is required for parquet export")
	}

	st, err := store.Open(loadConfig().Store)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if format == "parquet" {
		rows := make([]export.HistoryRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, export.Row(e.DocKey, e.ResolvedAt, e.Result))
		}
		if err := export.WriteParquet(out, rows); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d resolutions to %s\n", len(rows), out)
		return nil
	}

	w := cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "bibtex":
		var parts []string
		for _, rec := range completed(entries) {
			parts = append(parts, export.BibTeX(rec, ""))
		}
		_, err := fmt.Fprint(w, strings.Join(parts, "\n"))
		return err
	case "csl":
		var items []export.CSLItem
		for _, rec := range completed(entries) {
			items = append(items, export.CSL(rec, ""))
		}
		return export.WriteCSL(w, items)
	default:
		return fmt.Errorf("unknown format %q (valid: parquet, yaml, bibtex, csl)", format)
	}
}

// completed returns the metadata of completed entries, keeping only the
// newest resolution per document.
func completed(entries []store.Entry) []types.MergedRecord {
	seen := make(map[string]bool)
	var out []types.MergedRecord
	for _, e := range entries {
		if e.Result.Status != types.StatusCompleted || seen[e.DocKey] {
			continue
		}
		seen[e.DocKey] = true
		out = append(out, e.Result.Metadata)
	}
	return out
}
