// Package parser loads claim event logs (CSV, XLSX) into an in-memory table.
package parser

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/logflow/claimflow/internal/model"
	cferrors "github.com/logflow/claimflow/pkg/errors"
)

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "csv", "tsv", "txt":
		return FormatCSV
	case "xlsx", "excel":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// DetectFormat resolves the format from an explicit name or the path extension.
func DetectFormat(path, explicit string) Format {
	if explicit != "" {
		return ParseFormat(explicit)
	}
	if path == "-" {
		return FormatCSV
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ParseFormat(ext)
}

// Columns maps the logical fields to input column names.
type Columns struct {
	CaseID       string
	Activity     string
	Timestamp    string
	Agent        string
	PolicyType   string
	AccidentType string
	CarYear      string
}

// DefaultColumns returns the reference claims log column names.
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

// Config holds loader configuration.
type Config struct {
	Columns Columns

	// Delimiter is the field delimiter for CSV (default: comma).
	Delimiter byte

	// Sheet selects the XLSX worksheet; empty means the first one.
	Sheet string

	// BufferSize is the size of the read buffer in bytes.
	BufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Columns:    DefaultColumns(),
		Delimiter:  ',',
		BufferSize: 64 * 1024,
	}
}

// Load reads an event log of the given format from r.
func Load(ctx context.Context, r io.Reader, format Format, cfg Config) (*model.Table, error) {
	switch format {
	case FormatCSV:
		return LoadCSV(ctx, r, cfg)
	case FormatXLSX:
		return LoadXLSX(ctx, r, cfg)
	default:
		return nil, cferrors.InvalidFormat(format.String())
	}
}

// columnIndex holds resolved positions of the required columns.
type columnIndex struct {
	caseID, activity, timestamp, agent, policy, accident, carYear int
}

// resolveColumns locates every required column in header. A missing column
// is fatal for the run.
func resolveColumns(header []string, cols Columns) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	var idx columnIndex
	targets := []struct {
		name string
		dst  *int
	}{
		{cols.CaseID, &idx.caseID},
		{cols.Activity, &idx.activity},
		{cols.Timestamp, &idx.timestamp},
		{cols.Agent, &idx.agent},
		{cols.PolicyType, &idx.policy},
		{cols.AccidentType, &idx.accident},
		{cols.CarYear, &idx.carYear},
	}
	for _, t := range targets {
		i, ok := pos[t.name]
		if !ok {
			return idx, cferrors.MissingColumn(t.name, header)
		}
		*t.dst = i
	}
	return idx, nil
}

// tableBuilder accumulates records into a model.Table.
type tableBuilder struct {
	idx   columnIndex
	table *model.Table
}

func newTableBuilder(header []string, cols Columns) (*tableBuilder, error) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	idx, err := resolveColumns(header, cols)
	if err != nil {
		return nil, err
	}
	return &tableBuilder{
		idx:   idx,
		table: &model.Table{Header: header},
	}, nil
}

// add appends one record. Short records are padded with empty strings and
// extra trailing fields are dropped.
func (b *tableBuilder) add(record []string) {
	width := len(b.table.Header)
	row := make([]string, width)
	copy(row, record)

	b.table.Events = append(b.table.Events, model.Event{
		Row:          len(b.table.Events),
		CaseID:       strings.TrimSpace(row[b.idx.caseID]),
		Activity:     row[b.idx.activity],
		Timestamp:    row[b.idx.timestamp],
		Agent:        row[b.idx.agent],
		PolicyType:   row[b.idx.policy],
		AccidentType: row[b.idx.accident],
		CarYear:      row[b.idx.carYear],
		Extra:        row,
	})
}

// isBlank reports whether a record carries no data.
func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
