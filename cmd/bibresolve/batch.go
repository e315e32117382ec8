// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibresolve/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file.yaml>",
	Short: "Resolve every document listed in a YAML batch file",
	Long: `Resolve documents sequentially from a YAML file of the form:

  items:
    - doi: 10.1038/nature14539
    - title: Attention is all you need
      authors: Vaswani, Shazeer
    - pdf: papers/resnet.pdf
      force_escalation: true

Progress is printed per document. The command exits non-zero when any
document fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().String("out", "", "write the full results to this YAML file")
	batchCmd.Flags().Duration("delay", 0, "pause between documents (overrides resolver.batch_delay)")
	batchCmd.Flags().Bool("no-store", false, "do not read or record resolution history")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	items, err := batch.ReadFile(args[0])
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%s lists no items", args[0])
	}

	out, _ := cmd.Flags().GetString("out")
	noStore, _ := cmd.Flags().GetBool("no-store")

	cfg := loadConfig()
	if cmd.Flags().Changed("delay") {
		cfg.Resolver.BatchDelay, _ = cmd.Flags().GetDuration("delay")
	}

	runner, closeFn, err := newRunner(cfg, noStore)
	if err != nil {
		return err
	}
	defer closeFn()

	summary := runner.Run(cmd.Context(), items, cmd.OutOrStdout())

	if out != "" {
		if err := batch.WriteResults(out, summary); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", out)
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d of %d documents failed", summary.Failed, len(items))
	}
	return nil
}
