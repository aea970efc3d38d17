package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/project"
	"github.com/spf13/cobra"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		flags      requestFlags
		metricsOut string
	)

	cmd := &cobra.Command{
		Use:   "compare <request.yaml>",
		Short: "Compare strategies and blade settings side by side",
		Long:  "Runs the request under every strategy, the exact solver when small enough and a thinner blade, then ranks the results.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := project.LoadRequest(args[0], a.cfg.RequestDefaults())
			if err != nil {
				return err
			}
			flags.apply(cmd, &req)

			results := a.service.Compare(cmd.Context(), engine.BuildDefaultScenarios(req))
			if err := a.flushMetrics(metricsOut); err != nil {
				return err
			}
			best := engine.BestResult(results)
			printComparison(cmd.OutOrStdout(), results, best)
			if best < 0 {
				return fmt.Errorf("no scenario produced a plan")
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics in text format to this path")
	return cmd
}

func printComparison(out io.Writer, results []engine.ComparisonResult, best int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tSCENARIO\tBARS\tCUTS\tWASTE %\tCOST\tSCORE")
	for i, r := range results {
		marker := ""
		if i == best {
			marker = "*"
		}
		if !r.Response.Success {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\t%s\n", marker, r.Scenario.Name, r.Response.Error.Message)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%.2f\t%.2f\n",
			marker, r.Scenario.Name, r.BarsUsed, r.TotalCuts, r.WastePercent,
			r.Response.ScoreBreakdown.Cost, r.Composite)
	}
	w.Flush()
}
