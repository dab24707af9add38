package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/marmos91/mediagc/pkg/config"
	"github.com/marmos91/mediagc/pkg/gc"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Print the reachability and reconciliation report",
	Long: `Classify every asset as reachable or orphaned, list broken references,
and compare the catalog with the file store. Nothing is deleted.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
		return classifyOnce(ctx, cmd.OutOrStdout(), rt.Collector)
	})
}

func classifyOnce(ctx context.Context, out io.Writer, collector *gc.Collector) error {
	report, err := collector.Classify(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, report)
	}

	c := report.Counts
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "reachable\t%d\n", c.Reachable)
	fmt.Fprintf(w, "orphaned\t%d\n", c.Orphaned)
	fmt.Fprintf(w, "broken\t%d\n", c.Broken)
	fmt.Fprintf(w, "stale\t%d\n", c.Stale)
	fmt.Fprintf(w, "untracked\t%d\n", c.Untracked)
	fmt.Fprintf(w, "protected\t%d\n", c.Protected)
	fmt.Fprintf(w, "pending\t%d\n", c.Pending)
	if err := w.Flush(); err != nil {
		return err
	}

	for _, a := range report.Orphaned {
		fmt.Fprintf(out, "orphaned: %s %s\n", a.ID, a.RelativePath)
	}
	for _, b := range report.Broken {
		fmt.Fprintf(out, "broken: %s\n", b)
	}

	return nil
}
