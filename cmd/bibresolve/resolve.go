// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibresolve/internal/batch"
	"github.com/pdiddy/bibresolve/internal/export"
	"github.com/pdiddy/bibresolve/pkg/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one document to a normalized bibliographic record",
	Long: `Resolve one document from any combination of a title, an author string,
a DOI, a PDF and a plain-text file. Explicit flags take precedence over the
fields derived from the PDF or text.

The result is printed to stdout in the chosen format and recorded in the
history store, so a later run of the same document can force escalation when
the earlier confidence was low.`,
	Example: `  bibresolve resolve --doi 10.1038/nature14539
  bibresolve resolve --title "Attention is all you need" --authors "Vaswani, Shazeer"
  bibresolve resolve --pdf paper.pdf --format bibtex`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().String("title", "", "candidate title")
	resolveCmd.Flags().String("authors", "", "candidate author string")
	resolveCmd.Flags().String("doi", "", "candidate DOI")
	resolveCmd.Flags().String("pdf", "", "PDF to extract text and candidate fields from")
	resolveCmd.Flags().String("text-file", "", "plain-text file holding the extracted document text")
	resolveCmd.Flags().Bool("force-escalation", false, "always consult the generative model")
	resolveCmd.Flags().String("format", "yaml", "output format: yaml, json, bibtex or csl")
	resolveCmd.Flags().Bool("no-store", false, "do not read or record resolution history")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	item := batch.Item{}
	item.Title, _ = cmd.Flags().GetString("title")
	item.Authors, _ = cmd.Flags().GetString("authors")
	item.DOI, _ = cmd.Flags().GetString("doi")
	item.PDF, _ = cmd.Flags().GetString("pdf")
	item.TextFile, _ = cmd.Flags().GetString("text-file")
	item.Force, _ = cmd.Flags().GetBool("force-escalation")
	format, _ := cmd.Flags().GetString("format")
	noStore, _ := cmd.Flags().GetBool("no-store")

	if err := checkResolvable(item); err != nil {
		return err
	}

	runner, closeFn, err := newRunner(loadConfig(), noStore)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := runner.Resolve(cmd.Context(), item)
	if err != nil {
		return err
	}
	if res.Status == types.StatusFailed {
		return fmt.Errorf("resolution failed: %s", strings.Join(res.Errors, "; "))
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Resolved with confidence %.3f from %d source(s)\n", res.Confidence, len(res.Sources))
	return writeResult(cmd.OutOrStdout(), res, format)
}

// checkResolvable rejects inputs the engine cannot search on. An author
// string is only used to refine a title search.
func checkResolvable(item batch.Item) error {
	if item.Title != "" || item.DOI != "" || item.PDF != "" || item.TextFile != "" {
		return nil
	}
	if item.Authors != "" {
		return fmt.Errorf("--authors alone cannot be resolved; add --title, --doi, --pdf or --text-file")
	}
	return fmt.Errorf("provide at least one of --title, --doi, --pdf or --text-file")
}

// writeResult renders one result in the requested format.
func writeResult(w io.Writer, res types.ResolutionResult, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "bibtex":
		_, err := fmt.Fprint(w, export.BibTeX(res.Metadata, ""))
		return err
	case "csl":
		return export.WriteCSL(w, []export.CSLItem{export.CSL(res.Metadata, "")})
	default:
		return fmt.Errorf("unknown format %q (valid: yaml, json, bibtex, csl)", format)
	}
}
