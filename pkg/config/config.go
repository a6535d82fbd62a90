// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/logflow/claimflow/internal/model"
)

// Config holds all claimflow configuration.
type Config struct {
	Version int `yaml:"version"`

	Input     InputConfig     `yaml:"input"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Output    OutputConfig    `yaml:"output"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// InputConfig describes the event log file.
type InputConfig struct {
	Path      string  `yaml:"path"`
	Format    string  `yaml:"format"` // csv | xlsx, empty = by extension
	Delimiter string  `yaml:"delimiter"`
	Sheet     string  `yaml:"sheet"` // xlsx only, empty = first sheet
	Columns   Columns `yaml:"columns"`
}

// Columns maps logical fields to input column names.
type Columns struct {
	CaseID       string `yaml:"case_id"`
	Activity     string `yaml:"activity_name"`
	Timestamp    string `yaml:"timestamp"`
	Agent        string `yaml:"agent_name"`
	PolicyType   string `yaml:"type_of_policy"`
	AccidentType string `yaml:"type_of_accident"`
	CarYear      string `yaml:"car_year"`
}

// AnalysisConfig tunes the insight aggregations.
type AnalysisConfig struct {
	TopAgents      int     `yaml:"top_agents"`
	TopSequences   int     `yaml:"top_sequences"`
	RareThreshold  int     `yaml:"rare_threshold"`
	SequenceSep    string  `yaml:"sequence_separator"`
	CaseBins       int     `yaml:"case_duration_bins"`
	ComplexityBins int     `yaml:"complexity_bins"`
	HighVarianceCV float64 `yaml:"high_variance_cv"`
	Workers        int     `yaml:"workers"` // 0/1 = sequential
}

// OutputConfig controls the exports.
type OutputConfig struct {
	Dir         string   `yaml:"dir"`
	Formats     []string `yaml:"formats"` // csv | parquet | xlsx | duckdb | json
	Compression string   `yaml:"compression"`
	S3URI       string   `yaml:"s3_uri"` // s3://bucket/prefix, empty = no upload
	Quiet       bool     `yaml:"quiet"`  // skip the terminal report
}

// StorageConfig configures the S3 client used for s3:// inputs and uploads.
type StorageConfig struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// DefaultColumns returns the column names of the reference claims log.
func DefaultColumns() Columns {
	return Columns{
		CaseID:       model.ColCaseID,
		Activity:     model.ColActivity,
		Timestamp:    model.ColTimestamp,
		Agent:        model.ColAgent,
		PolicyType:   model.ColPolicyType,
		AccidentType: model.ColAccidentType,
		CarYear:      model.ColCarYear,
	}
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Input: InputConfig{
			Delimiter: ",",
			Columns:   DefaultColumns(),
		},
		Analysis: AnalysisConfig{
			TopAgents:      10,
			TopSequences:   10,
			RareThreshold:  1,
			SequenceSep:    "->",
			CaseBins:       50,
			ComplexityBins: 5,
			HighVarianceCV: 1.0,
			Workers:        1,
		},
		Output: OutputConfig{
			Dir:         ".",
			Formats:     []string{"csv"},
			Compression: "snappy",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if len(c.Input.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single byte, got %q", c.Input.Delimiter)
	}
	if c.Analysis.RareThreshold < 1 {
		return fmt.Errorf("rare_threshold must be >= 1, got %d", c.Analysis.RareThreshold)
	}
	if c.Analysis.TopAgents < 1 || c.Analysis.TopSequences < 1 {
		return fmt.Errorf("top_agents and top_sequences must be >= 1")
	}
	if c.Analysis.CaseBins < 1 || c.Analysis.ComplexityBins < 1 {
		return fmt.Errorf("histogram bins must be >= 1")
	}
	cols := c.Input.Columns
	for name, v := range map[string]string{
		"case_id": cols.CaseID, "activity_name": cols.Activity, "timestamp": cols.Timestamp,
		"agent_name": cols.Agent, "type_of_policy": cols.PolicyType,
		"type_of_accident": cols.AccidentType, "car_year": cols.CarYear,
	} {
		if v == "" {
			return fmt.Errorf("column mapping for %s is empty", name)
		}
	}
	for _, f := range c.Output.Formats {
		switch f {
		case "csv", "parquet", "xlsx", "duckdb", "json":
		default:
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	return nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order. An explicit
// path, when non-empty, is loaded last and must exist.
func (m *Manager) Load(explicit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.searchPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("config %s: %w", path, err)
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	if explicit != "" {
		if err := m.loadFile(explicit); err != nil {
			return fmt.Errorf("config %s: %w", explicit, err)
		}
		m.paths = append(m.paths, explicit)
	}

	m.loadEnv()
	return nil
}

// searchPaths returns config file paths in priority order.
func (m *Manager) searchPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/claimflow/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".claimflow", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".claimflow.yaml"))
	}
	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	Merge(m.config, &partial)
	return nil
}

// Merge copies non-zero values from src into dst.
func Merge(dst, src *Config) {
	// Input
	setString(&dst.Input.Path, src.Input.Path)
	setString(&dst.Input.Format, src.Input.Format)
	setString(&dst.Input.Delimiter, src.Input.Delimiter)
	setString(&dst.Input.Sheet, src.Input.Sheet)
	setString(&dst.Input.Columns.CaseID, src.Input.Columns.CaseID)
	setString(&dst.Input.Columns.Activity, src.Input.Columns.Activity)
	setString(&dst.Input.Columns.Timestamp, src.Input.Columns.Timestamp)
	setString(&dst.Input.Columns.Agent, src.Input.Columns.Agent)
	setString(&dst.Input.Columns.PolicyType, src.Input.Columns.PolicyType)
	setString(&dst.Input.Columns.AccidentType, src.Input.Columns.AccidentType)
	setString(&dst.Input.Columns.CarYear, src.Input.Columns.CarYear)

	// Analysis
	setInt(&dst.Analysis.TopAgents, src.Analysis.TopAgents)
	setInt(&dst.Analysis.TopSequences, src.Analysis.TopSequences)
	setInt(&dst.Analysis.RareThreshold, src.Analysis.RareThreshold)
	setString(&dst.Analysis.SequenceSep, src.Analysis.SequenceSep)
	setInt(&dst.Analysis.CaseBins, src.Analysis.CaseBins)
	setInt(&dst.Analysis.ComplexityBins, src.Analysis.ComplexityBins)
	setInt(&dst.Analysis.Workers, src.Analysis.Workers)
	if src.Analysis.HighVarianceCV != 0 {
		dst.Analysis.HighVarianceCV = src.Analysis.HighVarianceCV
	}

	// Output
	setString(&dst.Output.Dir, src.Output.Dir)
	if len(src.Output.Formats) > 0 {
		dst.Output.Formats = src.Output.Formats
	}
	setString(&dst.Output.Compression, src.Output.Compression)
	setString(&dst.Output.S3URI, src.Output.S3URI)
	if src.Output.Quiet {
		dst.Output.Quiet = true
	}

	// Storage
	setString(&dst.Storage.Region, src.Storage.Region)
	setString(&dst.Storage.Endpoint, src.Storage.Endpoint)
	if src.Storage.UsePathStyle {
		dst.Storage.UsePathStyle = true
	}

	// Telemetry
	if src.Telemetry.Enabled {
		dst.Telemetry.Enabled = true
	}
	setString(&dst.Telemetry.Endpoint, src.Telemetry.Endpoint)

	// Log
	setString(&dst.Log.Level, src.Log.Level)
	setString(&dst.Log.Format, src.Log.Format)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("CLAIMFLOW_OUTPUT_DIR"); v != "" {
		m.config.Output.Dir = v
	}
	if v := os.Getenv("CLAIMFLOW_FORMATS"); v != "" {
		m.config.Output.Formats = splitList(v)
	}
	if v := os.Getenv("CLAIMFLOW_S3_URI"); v != "" {
		m.config.Output.S3URI = v
	}
	if v := os.Getenv("CLAIMFLOW_LOG_LEVEL"); v != "" {
		m.config.Log.Level = v
	}
	if v := os.Getenv("CLAIMFLOW_RARE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Analysis.RareThreshold = n
		}
	}
	if v := os.Getenv("CLAIMFLOW_TELEMETRY_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" && m.config.Storage.Region == "" {
		m.config.Storage.Region = v
	}
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Paths returns the config files that were loaded.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Marshal renders the effective configuration as YAML.
func (m *Manager) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return yaml.Marshal(m.config)
}
