// Package export writes the event-level and case-level tables and the
// insight report of a run in the configured output formats.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	cferrors "github.com/logflow/claimflow/pkg/errors"
	"github.com/logflow/claimflow/pkg/insight"
	"github.com/logflow/claimflow/pkg/sequence"
)

// Format is an output format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatParquet
	FormatXLSX
	FormatDuckDB
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatParquet:
		return "parquet"
	case FormatXLSX:
		return "xlsx"
	case FormatDuckDB:
		return "duckdb"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV
	case "parquet", "pq":
		return FormatParquet
	case "xlsx", "excel":
		return FormatXLSX
	case "duckdb", "db":
		return FormatDuckDB
	case "json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// ParseFormats parses a list of names, dropping duplicates. An unknown name
// is an error.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool)
	var out []Format
	for _, n := range names {
		f := ParseFormat(n)
		if f == FormatUnknown {
			return nil, cferrors.New(cferrors.CodeInvalidConfig, "unknown output format").
				WithContext("format", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Output file names.
const (
	EventFile    = "cleaned_event_log"
	CaseFile     = "case_summary"
	WorkbookFile = "claims_dashboard.xlsx"
	DatabaseFile = "claims.duckdb"
	InsightsFile = "insights.json"
)

// Config holds exporter configuration.
type Config struct {
	Dir         string
	Formats     []Format
	Compression Compression

	// Metadata is attached where the format supports it (Parquet footer).
	Metadata map[string]string
}

// Export writes every configured format into cfg.Dir concurrently and
// returns the written paths in sorted order. Existing files are replaced.
func Export(ctx context.Context, s *sequence.Sequenced, rep *insight.Report, cfg Config) ([]string, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, cferrors.WriteFailed(cfg.Dir, err)
	}

	events := EventDataset(s)
	cases := CaseDataset(rep.Summary)

	type job struct {
		path string
		run  func(ctx context.Context, path string) error
	}
	var jobs []job
	file := func(name string) string { return filepath.Join(cfg.Dir, name) }

	for _, f := range cfg.Formats {
		switch f {
		case FormatCSV:
			for _, d := range []*Dataset{events, cases} {
				d := d
				jobs = append(jobs, job{file(datasetFile(d, events) + ".csv"), func(_ context.Context, p string) error {
					return writeFile(p, func(w io.Writer) error { return WriteCSV(w, d) })
				}})
			}
		case FormatParquet:
			for _, d := range []*Dataset{events, cases} {
				d := d
				jobs = append(jobs, job{file(datasetFile(d, events) + ".parquet"), func(_ context.Context, p string) error {
					return writeFile(p, func(w io.Writer) error {
						return WriteParquet(w, d, cfg.Compression, cfg.Metadata)
					})
				}})
			}
		case FormatXLSX:
			jobs = append(jobs, job{file(WorkbookFile), func(_ context.Context, p string) error {
				return writeFile(p, func(w io.Writer) error {
					return WriteWorkbook(w, events, cases,
						SequenceDataset(rep.Sequences),
						AgentDataset(rep.Agents),
						SegmentDataset(rep.Segments))
				})
			}})
		case FormatDuckDB:
			jobs = append(jobs, job{file(DatabaseFile), func(ctx context.Context, p string) error {
				return WriteDuckDB(ctx, p, events, cases, SequenceDataset(rep.Sequences))
			}})
		case FormatJSON:
			jobs = append(jobs, job{file(InsightsFile), func(_ context.Context, p string) error {
				return writeFile(p, func(w io.Writer) error { return WriteJSON(w, rep) })
			}})
		default:
			return nil, cferrors.New(cferrors.CodeInvalidConfig, "unknown output format").
				WithContext("format", f.String())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if err := j.run(gctx, j.path); err != nil {
				return cferrors.WriteFailed(j.path, err)
			}
			slog.Debug("export written", "path", j.path, "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, len(jobs))
	for i, j := range jobs {
		paths[i] = j.path
	}
	sort.Strings(paths)
	return paths, nil
}

func datasetFile(d, events *Dataset) string {
	if d == events {
		return EventFile
	}
	return CaseFile
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep *insight.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// writeFile writes through a temporary file renamed into place on success.
// fn may close the file itself.
func writeFile(path string, fn func(io.Writer) error) error {
	return replaceFile(path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return err
		}
		return nil
	})
}

// replaceFile runs write against a fresh temporary sibling of path and
// renames it over path once write succeeds. On failure path is left as it
// was. sidecars are suffixes of companion files (a database WAL): the
// temporary ones are removed on failure and stale ones next to path are
// removed before the rename.
func replaceFile(path string, write func(tmp string) error, sidecars ...string) error {
	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	cleanup := func() {
		os.Remove(tmp)
		for _, s := range sidecars {
			os.Remove(tmp + s)
		}
	}

	if err := write(tmp); err != nil {
		cleanup()
		return err
	}
	for _, s := range sidecars {
		if err := os.Remove(path + s); err != nil && !os.IsNotExist(err) {
			cleanup()
			return err
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
