package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// isolate points the user config path at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		"CLAIMFLOW_OUTPUT_DIR", "CLAIMFLOW_FORMATS", "CLAIMFLOW_S3_URI",
		"CLAIMFLOW_LOG_LEVEL", "CLAIMFLOW_RARE_THRESHOLD", "CLAIMFLOW_TELEMETRY_ENDPOINT",
		"AWS_REGION",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claimflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Analysis.RareThreshold != 1 || cfg.Analysis.TopAgents != 10 || cfg.Analysis.CaseBins != 50 {
		t.Errorf("unexpected analysis defaults: %+v", cfg.Analysis)
	}
	if cfg.Input.Columns.CaseID != "case_id" || cfg.Input.Columns.CarYear != "car_year" {
		t.Errorf("unexpected column defaults: %+v", cfg.Input.Columns)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"delimiter", func(c *Config) { c.Input.Delimiter = ";;" }, "delimiter"},
		{"rare threshold", func(c *Config) { c.Analysis.RareThreshold = 0 }, "rare_threshold"},
		{"top agents", func(c *Config) { c.Analysis.TopAgents = 0 }, "top_agents"},
		{"bins", func(c *Config) { c.Analysis.CaseBins = 0 }, "bins"},
		{"column", func(c *Config) { c.Input.Columns.Agent = "" }, "agent_name"},
		{"format", func(c *Config) { c.Output.Formats = []string{"csv", "avro"} }, "avro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q does not mention %q", err, tt.errSub)
			}
		})
	}
}

func TestLoadExplicitFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
input:
  path: claims.csv
  delimiter: ";"
  columns:
    case_id: claim_id
analysis:
  rare_threshold: 2
  workers: 4
output:
  dir: out
  formats: [csv, parquet]
`)

	m := NewManager()
	if err := m.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()

	if cfg.Input.Path != "claims.csv" || cfg.Input.Delimiter != ";" {
		t.Errorf("input = %+v", cfg.Input)
	}
	if cfg.Input.Columns.CaseID != "claim_id" {
		t.Errorf("case_id column = %q, want claim_id", cfg.Input.Columns.CaseID)
	}
	if cfg.Input.Columns.Activity != "activity_name" {
		t.Errorf("activity column = %q, want default kept", cfg.Input.Columns.Activity)
	}
	if cfg.Analysis.RareThreshold != 2 || cfg.Analysis.Workers != 4 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.TopSequences != 10 {
		t.Errorf("TopSequences = %d, want default 10", cfg.Analysis.TopSequences)
	}
	if len(cfg.Output.Formats) != 2 || cfg.Output.Dir != "out" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if paths := m.Paths(); len(paths) != 1 || paths[0] != path {
		t.Errorf("Paths() = %v, want [%s]", paths, path)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	m := NewManager()
	if err := m.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load of a missing explicit file succeeded")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "analysis: [not, a, map")
	if err := NewManager().Load(path); err == nil {
		t.Fatal("Load of invalid YAML succeeded")
	}
}

func TestLoadUserConfig(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	if err := os.MkdirAll(filepath.Join(home, ".claimflow"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".claimflow", "config.yaml"),
		[]byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.Load(""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get().Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", m.Get().Log.Level)
	}
}

func TestEnvOverridesFiles(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "output:\n  dir: from-file\n")
	t.Setenv("CLAIMFLOW_OUTPUT_DIR", "from-env")
	t.Setenv("CLAIMFLOW_FORMATS", "json, xlsx")
	t.Setenv("CLAIMFLOW_RARE_THRESHOLD", "5")
	t.Setenv("CLAIMFLOW_TELEMETRY_ENDPOINT", "collector:4317")
	t.Setenv("AWS_REGION", "eu-west-1")

	m := NewManager()
	if err := m.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()

	if cfg.Output.Dir != "from-env" {
		t.Errorf("Output.Dir = %q, want from-env", cfg.Output.Dir)
	}
	if len(cfg.Output.Formats) != 2 || cfg.Output.Formats[0] != "json" || cfg.Output.Formats[1] != "xlsx" {
		t.Errorf("Formats = %v, want [json xlsx]", cfg.Output.Formats)
	}
	if cfg.Analysis.RareThreshold != 5 {
		t.Errorf("RareThreshold = %d, want 5", cfg.Analysis.RareThreshold)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "collector:4317" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Storage.Region != "eu-west-1" {
		t.Errorf("Storage.Region = %q, want eu-west-1", cfg.Storage.Region)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	isolate(t)
	m := NewManager()
	if err := m.Load(""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Config
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Analysis.SequenceSep != "->" || back.Output.Compression != "snappy" {
		t.Errorf("round trip lost values: %+v", back)
	}
}

func TestMergeKeepsUnsetValues(t *testing.T) {
	dst := Default()
	Merge(dst, &Config{Storage: StorageConfig{Endpoint: "http://localhost:9000", UsePathStyle: true}})

	if dst.Storage.Endpoint != "http://localhost:9000" || !dst.Storage.UsePathStyle {
		t.Errorf("Storage = %+v", dst.Storage)
	}
	if dst.Input.Delimiter != "," || dst.Log.Level != "info" {
		t.Error("Merge overwrote values the source left unset")
	}
}
