// Package pipeline runs one claims analysis end to end:
//
//	source -> load -> normalize -> sequence -> insight -> export -> upload
//
// Each stage consumes the previous stage's output and runs once, strictly
// forward. Stages are traced and logged under the run id.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/logflow/claimflow/internal/elapsed"
	"github.com/logflow/claimflow/internal/model"
	"github.com/logflow/claimflow/pkg/config"
	cferrors "github.com/logflow/claimflow/pkg/errors"
	"github.com/logflow/claimflow/pkg/export"
	"github.com/logflow/claimflow/pkg/insight"
	"github.com/logflow/claimflow/pkg/parser"
	"github.com/logflow/claimflow/pkg/sequence"
	"github.com/logflow/claimflow/pkg/storage/s3"
	"github.com/logflow/claimflow/pkg/telemetry"
)

// ObjectStore is the object storage used for s3:// inputs and uploads.
type ObjectStore interface {
	Open(ctx context.Context, loc s3.Location) (io.ReadCloser, error)
	UploadFile(ctx context.Context, localPath string, loc s3.Location) error
}

// ProgressFunc wraps a reader of size bytes with progress reporting. The
// returned func is called once reading is done.
type ProgressFunc func(r io.Reader, size int64) (io.Reader, func())

// uploadConcurrency bounds parallel uploads.
const uploadConcurrency = 4

// Runner executes analysis runs for one configuration.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	stdin    io.Reader
	progress ProgressFunc
	store    ObjectStore
	newStore func(ctx context.Context) (ObjectStore, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithStdin sets the reader used for the "-" input.
func WithStdin(in io.Reader) Option {
	return func(r *Runner) { r.stdin = in }
}

// WithProgress enables progress reporting for local inputs.
func WithProgress(p ProgressFunc) Option {
	return func(r *Runner) { r.progress = p }
}

// WithStore sets the object store instead of building an S3 client from
// the storage configuration.
func WithStore(s ObjectStore) Option {
	return func(r *Runner) { r.store = s }
}

// New creates a Runner.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: slog.Default(),
		stdin:  os.Stdin,
	}
	r.newStore = func(ctx context.Context) (ObjectStore, error) {
		sc := s3.DefaultConfig(cfg.Storage.Region)
		sc.Endpoint = cfg.Storage.Endpoint
		sc.UsePathStyle = cfg.Storage.UsePathStyle
		c, err := s3.NewClient(ctx, sc)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of one analysis run.
type Result struct {
	RunID     string
	Input     string
	InputSize int64
	Stamps    elapsed.Stats
	Sequenced *sequence.Sequenced
	Report    *insight.Report
	Files     []string
	Uploaded  []string
	Duration  time.Duration
}

// Analyze runs every stage once and writes the exports.
func (r *Runner) Analyze(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)

	ctx, span := telemetry.StartStage(ctx, "analyze",
		telemetry.Attr("run_id", runID),
		telemetry.Attr("input", r.cfg.Input.Path))
	defer func() { telemetry.EndStage(span, err) }()

	res = &Result{RunID: runID, Input: r.cfg.Input.Path}
	logger.Info("analysis started", "input", res.Input)

	table, info, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	res.InputSize = info.size
	logger.Info("input loaded",
		"events", table.Len(),
		"columns", len(table.Header),
		"format", info.format.String(),
		"bytes", info.size)

	stamps := r.normalize(ctx, logger, table, &res.Stamps)

	res.Sequenced, err = r.sequence(ctx, table, stamps)
	if err != nil {
		return nil, err
	}
	logger.Info("cases sequenced", "cases", len(res.Sequenced.Cases))

	res.Report = r.insights(ctx, res.Sequenced)
	res.Report.RunID = runID
	res.Report.Input = res.Input
	logger.Info("insights computed",
		"sequences", len(res.Report.Sequences),
		"rare_sequences", len(res.Report.RareSequences),
		"agents", len(res.Report.Agents))

	res.Files, err = r.export(ctx, res)
	if err != nil {
		return nil, err
	}
	logger.Info("exports written", "files", len(res.Files), "dir", r.cfg.Output.Dir)

	if r.cfg.Output.S3URI != "" {
		res.Uploaded, err = r.upload(ctx, res.Files)
		if err != nil {
			return nil, err
		}
		logger.Info("exports uploaded", "files", len(res.Uploaded), "uri", r.cfg.Output.S3URI)
	}

	res.Duration = time.Since(start)
	logger.Info("analysis finished", "elapsed", res.Duration)
	return res, nil
}

// sourceInfo describes a loaded input.
type sourceInfo struct {
	format parser.Format
	size   int64
}

func (r *Runner) load(ctx context.Context) (table *model.Table, info sourceInfo, err error) {
	ctx, span := telemetry.StartStage(ctx, "load")
	defer func() { telemetry.EndStage(span, err) }()

	src, err := r.open(ctx, r.cfg.Input.Path)
	if err != nil {
		return nil, info, err
	}
	defer src.Close()

	var rd io.Reader = src
	if src.size > 0 && r.progress != nil {
		var done func()
		rd, done = r.progress(src, src.size)
		defer done()
	}

	table, err = parser.Load(ctx, rd, src.format, r.parserConfig())
	if err != nil {
		return nil, info, err
	}
	span.SetAttributes(
		telemetry.Attr("events", table.Len()),
		telemetry.Attr("format", src.format.String()))
	return table, sourceInfo{format: src.format, size: src.size}, nil
}

func (r *Runner) parserConfig() parser.Config {
	in := r.cfg.Input
	pc := parser.DefaultConfig()
	pc.Sheet = in.Sheet
	if len(in.Delimiter) == 1 {
		pc.Delimiter = in.Delimiter[0]
	}
	pc.Columns = parser.Columns{
		CaseID:       in.Columns.CaseID,
		Activity:     in.Columns.Activity,
		Timestamp:    in.Columns.Timestamp,
		Agent:        in.Columns.Agent,
		PolicyType:   in.Columns.PolicyType,
		AccidentType: in.Columns.AccidentType,
		CarYear:      in.Columns.CarYear,
	}
	return pc
}

func (r *Runner) normalize(ctx context.Context, logger *slog.Logger, table *model.Table, stats *elapsed.Stats) []model.Elapsed {
	_, span := telemetry.StartStage(ctx, "normalize")
	defer span.End()

	stamps, st := elapsed.Normalize(table)
	*stats = st
	span.SetAttributes(
		telemetry.Attr("timestamps", st.Total),
		telemetry.Attr("missing", st.Missing))
	if st.Missing > 0 {
		logger.Warn("unparseable timestamps treated as missing",
			"missing", st.Missing, "total", st.Total, "samples", st.Samples)
	}
	return stamps
}

func (r *Runner) sequence(ctx context.Context, table *model.Table, stamps []model.Elapsed) (s *sequence.Sequenced, err error) {
	ctx, span := telemetry.StartStage(ctx, "sequence",
		telemetry.Attr("workers", r.cfg.Analysis.Workers))
	defer func() { telemetry.EndStage(span, err) }()

	s, err = sequence.Sequence(ctx, table, stamps, sequence.Options{Workers: r.cfg.Analysis.Workers})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, cferrors.Wrap(err, cferrors.CodeContextCanceled, "sequencing canceled")
		}
		return nil, cferrors.Wrap(err, cferrors.CodeAnalysisFailed, "sequencing failed")
	}
	return s, nil
}

func (r *Runner) insights(ctx context.Context, s *sequence.Sequenced) *insight.Report {
	_, span := telemetry.StartStage(ctx, "insight")
	defer span.End()

	a := r.cfg.Analysis
	return insight.Build(s, insight.Options{
		TopAgents:      a.TopAgents,
		TopSequences:   a.TopSequences,
		RareThreshold:  a.RareThreshold,
		Separator:      a.SequenceSep,
		CaseBins:       a.CaseBins,
		ComplexityBins: a.ComplexityBins,
		HighVarianceCV: a.HighVarianceCV,
	})
}

func (r *Runner) export(ctx context.Context, res *Result) (files []string, err error) {
	ctx, span := telemetry.StartStage(ctx, "export")
	defer func() { telemetry.EndStage(span, err) }()

	formats, err := export.ParseFormats(r.cfg.Output.Formats)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.Attr("formats", r.cfg.Output.Formats))

	return export.Export(ctx, res.Sequenced, res.Report, export.Config{
		Dir:         r.cfg.Output.Dir,
		Formats:     formats,
		Compression: export.ParseCompression(r.cfg.Output.Compression),
		Metadata: map[string]string{
			"run_id":       res.RunID,
			"input":        res.Input,
			"generated_at": res.Report.GeneratedAt.Format(time.RFC3339),
			"created_by":   "claimflow",
		},
	})
}

func (r *Runner) upload(ctx context.Context, files []string) (uploaded []string, err error) {
	ctx, span := telemetry.StartStage(ctx, "upload",
		telemetry.Attr("uri", r.cfg.Output.S3URI))
	defer func() { telemetry.EndStage(span, err) }()

	prefix, err := s3.ParseURI(r.cfg.Output.S3URI)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeInvalidConfig, "invalid output s3 uri")
	}
	store, err := r.objectStore(ctx)
	if err != nil {
		return nil, err
	}

	uploaded = make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		i, f := i, f
		loc := prefix.Join(filepath.Base(f))
		g.Go(func() error {
			if err := store.UploadFile(gctx, f, loc); err != nil {
				return cferrors.Wrap(err, cferrors.CodeUploadFailed, "upload failed").
					WithContext("file", f).
					WithContext("uri", loc.String())
			}
			uploaded[i] = loc.String()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uploaded, nil
}

func (r *Runner) objectStore(ctx context.Context) (ObjectStore, error) {
	if r.store != nil {
		return r.store, nil
	}
	store, err := r.newStore(ctx)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeInvalidConfig, "failed to create s3 client")
	}
	r.store = store
	return store, nil
}
