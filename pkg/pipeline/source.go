package pipeline

import (
	"context"
	"io"
	"os"

	cferrors "github.com/logflow/claimflow/pkg/errors"
	"github.com/logflow/claimflow/pkg/parser"
	"github.com/logflow/claimflow/pkg/storage/s3"
)

// source is an opened input. size is zero when unknown.
type source struct {
	io.ReadCloser
	format parser.Format
	size   int64
}

// open resolves path to a local file, stdin ("-") or an s3:// object.
func (r *Runner) open(ctx context.Context, path string) (*source, error) {
	if path == "" {
		return nil, cferrors.New(cferrors.CodeInvalidConfig, "no input file given")
	}

	name := path
	var loc s3.Location
	if s3.IsURI(path) {
		var err error
		loc, err = s3.ParseURI(path)
		if err != nil {
			return nil, cferrors.Wrap(err, cferrors.CodeInvalidConfig, "invalid input uri")
		}
		name = loc.Key
	}

	format := parser.DetectFormat(name, r.cfg.Input.Format)
	if format == parser.FormatUnknown {
		f := r.cfg.Input.Format
		if f == "" {
			f = name
		}
		return nil, cferrors.InvalidFormat(f)
	}

	switch {
	case path == "-":
		return &source{ReadCloser: io.NopCloser(r.stdin), format: format}, nil

	case s3.IsURI(path):
		store, err := r.objectStore(ctx)
		if err != nil {
			return nil, err
		}
		body, err := store.Open(ctx, loc)
		if err != nil {
			return nil, cferrors.Wrap(err, cferrors.CodeFileNotFound, "failed to open input object").
				WithContext("uri", path)
		}
		return &source{ReadCloser: body, format: format}, nil

	default:
		f, err := os.Open(path)
		if err != nil {
			switch {
			case os.IsNotExist(err):
				return nil, cferrors.FileNotFound(path)
			case os.IsPermission(err):
				return nil, cferrors.Wrap(err, cferrors.CodeFilePermission, "permission denied").
					WithContext("path", path)
			default:
				return nil, cferrors.Wrap(err, cferrors.CodeFileNotFound, "failed to open input").
					WithContext("path", path)
			}
		}
		src := &source{ReadCloser: f, format: format}
		if info, err := f.Stat(); err == nil {
			if info.IsDir() {
				f.Close()
				return nil, cferrors.InvalidFormat("directory").WithContext("path", path)
			}
			src.size = info.Size()
		}
		return src, nil
	}
}
