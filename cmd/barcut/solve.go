package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/project"
	"github.com/spf13/cobra"
)

// requestFlags override values from the request file.
type requestFlags struct {
	strategy     string
	timeBudgetMs int64
	accelerate   bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "override the strategy (FFD, BFD, NFD, WFD, GENETIC, ANNEALING, BRANCH_AND_BOUND)")
	cmd.Flags().Int64Var(&f.timeBudgetMs, "time-budget-ms", -1, "override the time budget in milliseconds")
	cmd.Flags().BoolVar(&f.accelerate, "accelerate", false, "request parallel evaluation for the genetic strategy")
}

func (f *requestFlags) apply(cmd *cobra.Command, req *engine.Request) {
	if f.strategy != "" {
		req.Strategy = model.ParseStrategy(f.strategy)
	}
	if cmd.Flags().Changed("time-budget-ms") {
		ms := f.timeBudgetMs
		req.TimeBudgetMs = &ms
	}
	if f.accelerate {
		req.Acceleration = true
	}
}

func newSolveCmd(a *app) *cobra.Command {
	var (
		flags      requestFlags
		output     string
		cutList    string
		metricsOut string
	)

	cmd := &cobra.Command{
		Use:   "solve <request.yaml>",
		Short: "Compute a cutting plan",
		Long:  "Reads a YAML or JSON request, runs the chosen strategy and prints a per-bar summary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := project.LoadRequest(args[0], a.cfg.RequestDefaults())
			if err != nil {
				return err
			}
			flags.apply(cmd, &req)

			resp := a.service.Solve(cmd.Context(), req)
			if err := a.flushMetrics(metricsOut); err != nil {
				return err
			}
			if output != "" {
				if err := project.SaveResponse(output, resp); err != nil {
					return fmt.Errorf("save response: %w", err)
				}
			}
			if !resp.Success {
				return fmt.Errorf("solve failed (%s): %s", resp.Error.Kind, resp.Error.Message)
			}
			if cutList != "" {
				if err := project.SaveCutList(cutList, *resp.Plan); err != nil {
					return err
				}
			}
			printResponse(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the full response as JSON to this path")
	cmd.Flags().StringVar(&cutList, "cutlist", "", "write the saw cut list as CSV to this path")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics in text format to this path")
	return cmd
}

func printResponse(out io.Writer, resp engine.Response) {
	plan := resp.Plan
	score := resp.ScoreBreakdown

	fmt.Fprintf(out, "Strategy:   %s\n", plan.Strategy)
	fmt.Fprintf(out, "Bars used:  %d x %.0fmm\n", plan.BarsUsed, plan.StockLength)
	if resp.BarEstimate != nil {
		fmt.Fprintf(out, "Lower bound: %d bars\n", resp.BarEstimate.BarsMin)
	}
	fmt.Fprintf(out, "Efficiency: %.2f%%\n", score.Efficiency)
	fmt.Fprintf(out, "Waste:      %.1fmm (scrap %.1fmm)\n", score.Waste, plan.TotalScrap)
	fmt.Fprintf(out, "Cost:       %.4f\n", score.Cost)
	if resp.ProofOfOptimality != nil {
		fmt.Fprintf(out, "Optimal:    %t\n", *resp.ProofOfOptimality)
	}
	if resp.TimedOut {
		fmt.Fprintln(out, "Time budget reached, best plan found so far")
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BAR\tCUTS\tPIECES\tUSED\tLEFTOVER\tSCRAP")
	for _, s := range plan.Stocks {
		scrap := ""
		if plan.Settings.IsScrap(s.Leftover) {
			scrap = "yes"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%.1f\t%.1f\t%s\n",
			s.Index+1, s.Cuts(), formatSegments(s.Segments), s.Used, s.Leftover, scrap)
	}
	w.Flush()
}

func formatSegments(segs []model.Segment) string {
	out := ""
	for i, seg := range segs {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%g", seg.Length)
	}
	return out
}
