package main

import (
	"github.com/spf13/cobra"

	"github.com/logflow/claimflow/pkg/config"
)

// Input flags
var (
	inputFile      string
	inputFormat    string
	inputSheet     string
	delimiter      string
	caseIDColumn   string
	activityColumn string
	timestampCol   string
	agentColumn    string
	policyColumn   string
	accidentColumn string
	carYearColumn  string
)

// Analysis and output flags
var (
	outputDir      string
	outputFormats  []string
	compression    string
	s3URI          string
	workers        int
	topAgents      int
	topSequences   int
	rareThreshold  int
	caseBins       int
	complexityBins int
	traceEnabled   bool
	traceEndpoint  string
)

func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&inputFile, "input", "i", "", "Input event log (csv, xlsx, '-' for stdin, or s3://bucket/key)")
	f.StringVarP(&inputFormat, "format", "f", "", "Input format (csv, xlsx) - auto-detected from the extension")
	f.StringVar(&inputSheet, "sheet", "", "XLSX worksheet (default: first sheet)")
	f.StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	f.StringVar(&caseIDColumn, "case-id-column", "", "Case id column name")
	f.StringVar(&activityColumn, "activity-column", "", "Activity column name")
	f.StringVar(&timestampCol, "timestamp-column", "", "Elapsed timestamp column name")
	f.StringVar(&agentColumn, "agent-column", "", "Agent column name")
	f.StringVar(&policyColumn, "policy-column", "", "Policy type column name")
	f.StringVar(&accidentColumn, "accident-column", "", "Accident type column name")
	f.StringVar(&carYearColumn, "car-year-column", "", "Car year column name")
}

func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&outputDir, "output", "o", ".", "Output directory")
	f.StringSliceVar(&outputFormats, "formats", []string{"csv"}, "Export formats (csv, parquet, xlsx, duckdb, json)")
	f.StringVar(&compression, "compression", "snappy", "Parquet compression (none, snappy, gzip, zstd, lz4)")
	f.StringVar(&s3URI, "s3-uri", "", "Upload exports under this s3://bucket/prefix")
	f.IntVar(&workers, "workers", 1, "Parallel case sequencing workers")
	f.IntVar(&topAgents, "top-agents", 10, "Agents shown in the delay ranking")
	f.IntVar(&topSequences, "top-sequences", 10, "Sequences shown in the report")
	f.IntVar(&rareThreshold, "rare-threshold", 1, "Sequences followed by at most this many cases are rare")
	f.IntVar(&caseBins, "case-bins", 50, "Case duration histogram bins")
	f.IntVar(&complexityBins, "complexity-bins", 5, "Case complexity histogram bins")
	f.BoolVar(&traceEnabled, "trace", false, "Export OpenTelemetry spans")
	f.StringVar(&traceEndpoint, "trace-endpoint", "", "OTLP gRPC endpoint (default localhost:4317)")
}

// applyFlags overrides cfg with every flag set explicitly on cmd.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, apply func()) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			apply()
		}
	}

	set("log-level", func() { cfg.Log.Level = logLevel })
	set("log-format", func() { cfg.Log.Format = logFormat })
	set("quiet", func() { cfg.Output.Quiet = quiet })

	set("input", func() { cfg.Input.Path = inputFile })
	set("format", func() { cfg.Input.Format = inputFormat })
	set("sheet", func() { cfg.Input.Sheet = inputSheet })
	set("delimiter", func() { cfg.Input.Delimiter = delimiter })
	set("case-id-column", func() { cfg.Input.Columns.CaseID = caseIDColumn })
	set("activity-column", func() { cfg.Input.Columns.Activity = activityColumn })
	set("timestamp-column", func() { cfg.Input.Columns.Timestamp = timestampCol })
	set("agent-column", func() { cfg.Input.Columns.Agent = agentColumn })
	set("policy-column", func() { cfg.Input.Columns.PolicyType = policyColumn })
	set("accident-column", func() { cfg.Input.Columns.AccidentType = accidentColumn })
	set("car-year-column", func() { cfg.Input.Columns.CarYear = carYearColumn })

	set("output", func() { cfg.Output.Dir = outputDir })
	set("formats", func() { cfg.Output.Formats = outputFormats })
	set("compression", func() { cfg.Output.Compression = compression })
	set("s3-uri", func() { cfg.Output.S3URI = s3URI })
	set("workers", func() { cfg.Analysis.Workers = workers })
	set("top-agents", func() { cfg.Analysis.TopAgents = topAgents })
	set("top-sequences", func() { cfg.Analysis.TopSequences = topSequences })
	set("rare-threshold", func() { cfg.Analysis.RareThreshold = rareThreshold })
	set("case-bins", func() { cfg.Analysis.CaseBins = caseBins })
	set("complexity-bins", func() { cfg.Analysis.ComplexityBins = complexityBins })
	set("trace", func() { cfg.Telemetry.Enabled = traceEnabled })
	set("trace-endpoint", func() {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Endpoint = traceEndpoint
	})
}
