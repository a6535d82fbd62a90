package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/claimflow/pkg/config"
	cferrors "github.com/logflow/claimflow/pkg/errors"
	"github.com/logflow/claimflow/pkg/pipeline"
	"github.com/logflow/claimflow/pkg/storage/s3"
	"github.com/logflow/claimflow/pkg/tui"
	"github.com/logflow/claimflow/pkg/watch"
)

var debounce time.Duration

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a claims event log and write the exports",
	Long: `Analyze parses the elapsed timestamps of a claims event log, orders each case,
derives activity and case durations, mines activity sequences and writes the
event-level and case-level exports.

Examples:
  claimflow analyze -i claims.csv
  claimflow analyze -i claims.xlsx -o out --formats csv,parquet,xlsx
  claimflow analyze -i s3://bucket/claims.csv --s3-uri s3://bucket/reports
  cat claims.csv | claimflow analyze -i - --formats json`,
	RunE: runAnalyze,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the analysis whenever the input changes",
	Long: `Watch runs the analysis once, then again every time the input file is
rewritten. Runs never overlap.

Example:
  claimflow watch -i claims.csv -o out --formats csv,json`,
	RunE: runWatch,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how the input loads and how many timestamps parse",
	RunE:  runInspect,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE:  runConfig,
}

func init() {
	addInputFlags(analyzeCmd)
	addAnalysisFlags(analyzeCmd)

	addInputFlags(watchCmd)
	addAnalysisFlags(watchCmd)
	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period after a write before re-running")

	addInputFlags(inspectCmd)
}

// newRunner builds a pipeline runner writing progress to stderr in verbose
// mode.
func newRunner(cfg *config.Config) *pipeline.Runner {
	opts := []pipeline.Option{pipeline.WithLogger(slog.Default())}
	if verbose {
		opts = append(opts, pipeline.WithProgress(func(r io.Reader, size int64) (io.Reader, func()) {
			return tui.ProgressReader(r, os.Stderr, size, "loading")
		}))
	}
	return pipeline.New(cfg, opts...)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	shutdown, err := startTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	return analyzeOnce(ctx, cmd.OutOrStdout(), cfg)
}

// analyzeOnce runs one analysis and prints its report.
func analyzeOnce(ctx context.Context, w io.Writer, cfg *config.Config) error {
	res, err := newRunner(cfg).Analyze(ctx)
	if err != nil {
		return err
	}
	if cfg.Output.Quiet {
		return nil
	}

	tui.Render(w, res.Report)
	tui.PrintRunSummary(w, &tui.RunSummary{
		Events:    res.Report.Events,
		Cases:     res.Report.Cases,
		InputSize: res.InputSize,
		Files:     res.Files,
		Uploaded:  res.Uploaded,
		Duration:  res.Duration,
	})
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.Input.Path == "" || cfg.Input.Path == "-" || s3.IsURI(cfg.Input.Path) {
		return cferrors.New(cferrors.CodeInvalidConfig, "watch needs a local input file").
			WithContext("input", cfg.Input.Path)
	}

	ctx, stop := signalContext()
	defer stop()

	shutdown, err := startTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	out := cmd.OutOrStdout()

	// Initial run. A failure is reported but does not stop watching, the
	// next save may fix the input.
	if err := analyzeOnce(ctx, out, cfg); err != nil {
		slog.Error("analysis failed", "input", cfg.Input.Path, "error", err)
	}

	w, err := watch.NewWatcher(debounce)
	if err != nil {
		return err
	}
	w.OnChange = func(ctx context.Context, path string) error {
		slog.Info("input changed", "path", path)
		return analyzeOnce(ctx, out, cfg)
	}
	w.OnError = func(path string, err error) {
		slog.Error("watch error", "path", path, "error", err)
	}
	if err := w.Watch(cfg.Input.Path); err != nil {
		w.Close()
		return cferrors.Wrap(err, cferrors.CodeFileNotFound, "cannot watch input").
			WithContext("path", cfg.Input.Path)
	}

	slog.Info("watching for changes", "input", cfg.Input.Path, "debounce", debounce)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	slog.Info("watch stopped")
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	in, err := newRunner(cfg).Inspect(ctx)
	if err != nil {
		return err
	}
	tui.PrintInspect(cmd.OutOrStdout(), &tui.InspectSummary{
		Input:          in.Input,
		Format:         in.Format,
		Columns:        in.Columns,
		Rows:           in.Rows,
		Cases:          in.Cases,
		Activities:     in.Activities,
		Agents:         in.Agents,
		MissingStamps:  in.MissingStamps,
		MissingSamples: in.MissingSamples,
	})
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	_, m, err := setup(cmd)
	if err != nil {
		return err
	}
	data, err := m.Marshal()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range m.Paths() {
		fmt.Fprintf(out, "# loaded %s\n", p)
	}
	_, err = out.Write(data)
	return err
}
