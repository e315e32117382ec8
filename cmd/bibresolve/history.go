// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibresolve/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded resolutions, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := store.Open(loadConfig().Store)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No resolutions recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESOLVED\tCONFIDENCE\tSTATUS\tESCALATED\tDOCUMENT\tTITLE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%t\t%s\t%s\n",
			e.ResolvedAt.Local().Format("2006-01-02 15:04"),
			e.Result.Confidence,
			e.Result.Status,
			e.Result.Escalated,
			e.DocKey,
			truncate(e.Result.Metadata.Title, 60),
		)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
