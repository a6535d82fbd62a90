// claimflow - exploratory process analysis of insurance-claims event logs.
// Parses elapsed timestamps, derives activity and case durations, mines
// activity sequences and writes event-level and case-level exports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logflow/claimflow/internal/logging"
	"github.com/logflow/claimflow/pkg/config"
	cferrors "github.com/logflow/claimflow/pkg/errors"
	"github.com/logflow/claimflow/pkg/telemetry"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool
	quiet      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "claimflow",
	Short: "claimflow - claims process analysis",
	Long: `claimflow analyzes insurance-claims event logs: activity and case durations,
activity sequences (happy path and rare variants), agent delays and case
durations segmented by policy type, accident type and car year.

Configuration is read from /etc/claimflow/config.yaml, ~/.claimflow/config.yaml
and ./.claimflow.yaml, then CLAIMFLOW_* environment variables, then flags.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (loaded after the default search paths)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show progress while reading the input")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Skip the terminal report")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads the effective configuration for cmd, applies its flags and
// installs logging.
func setup(cmd *cobra.Command) (*config.Config, *config.Manager, error) {
	m := config.NewManager()
	if err := m.Load(configPath); err != nil {
		return nil, nil, cferrors.Wrap(err, cferrors.CodeInvalidConfig, "failed to load configuration")
	}
	cfg := m.Get()
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, cferrors.Wrap(err, cferrors.CodeInvalidConfig, "invalid configuration")
	}
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return cfg, m, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// startTracing installs the OTLP exporter when tracing is enabled.
func startTracing(ctx context.Context, cfg *config.Config) (telemetry.ShutdownFunc, error) {
	tc := telemetry.DefaultConfig("claimflow", version)
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	shutdown, err := telemetry.Setup(ctx, tc)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeInvalidConfig, "failed to start tracing")
	}
	return shutdown, nil
}
