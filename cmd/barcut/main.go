package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/piwi3910/BarCut/internal/config"
	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/logging"
	"github.com/piwi3910/BarCut/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// app carries what every subcommand needs once the root has set it up.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	service  *engine.Service
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.LoggingConfig())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.registry = prometheus.NewRegistry()
	a.service = engine.NewService(logger, metrics.New(a.registry))
	return nil
}

// flushMetrics writes the registry to path, or to the configured textfile
// when path is empty.
func (a *app) flushMetrics(path string) error {
	if path == "" {
		path = a.cfg.Metrics.Textfile
	}
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "barcut",
		Short:        "BarCut - cutting plans for aluminum profile bars",
		Long:         "BarCut assigns cut pieces to stock bars, minimizing bars, waste and cost.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSolveCmd(a))
	cmd.AddCommand(newCompareCmd(a))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "barcut %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newRootCmd())
	stop()
	os.Exit(code)
}
