package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/mediagc/pkg/config"
	"github.com/marmos91/mediagc/pkg/gc"
	"github.com/spf13/cobra"
)

var sweepDryRun bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one sweep and print the result",
	Long: `Run one sweep against the configured stores.

The sweep is deferred, and nothing is deleted, while any edit lease is
active. With --dry-run the candidates are listed and nothing is deleted.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "list candidates without deleting")
	sweepCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
}

func runSweep(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *config.Runtime) error {
		return sweepOnce(ctx, cmd.OutOrStdout(), rt.Collector)
	})
}

func sweepOnce(ctx context.Context, out io.Writer, collector *gc.Collector) error {
	var (
		result *gc.SweepResult
		err    error
	)
	if sweepDryRun {
		result, err = collector.Preview(ctx)
	} else {
		result, err = collector.RunSweep(ctx)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, result)
	}

	fmt.Fprintln(out, result.Summary())

	if result.DryRun && len(result.Candidates) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ASSET\tPATH\tSIZE\tFILE")
		for _, c := range result.Candidates {
			id := "-"
			if c.Asset != nil {
				id = c.Asset.ID.String()
			}
			file := "present"
			if c.FileMissing {
				file = "missing"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, c.Path, humanize.Bytes(uint64(c.Size)), file)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	for _, f := range result.Failures {
		fmt.Fprintf(out, "failed: asset=%s path=%s stage=%s: %s\n", f.AssetID, f.Path, f.Stage, f.Reason)
	}

	return nil
}
