package parser

import (
	"bufio"
	"context"
	"io"

	"github.com/logflow/claimflow/internal/model"
	cferrors "github.com/logflow/claimflow/pkg/errors"
)

// ctxCheckInterval is how many lines are read between context checks.
const ctxCheckInterval = 4096

// LoadCSV reads a delimited event log with a header line.
func LoadCSV(ctx context.Context, r io.Reader, cfg Config) (*model.Table, error) {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64 * 1024
	}

	reader := bufio.NewReaderSize(r, cfg.BufferSize)
	scanner := NewScanner(cfg.Delimiter)

	var builder *tableBuilder
	lineNum := 0

	emit := func(record []string) error {
		if builder == nil {
			b, err := newTableBuilder(record, cfg.Columns)
			if err != nil {
				return err
			}
			builder = b
			return nil
		}
		if !isBlank(record) {
			builder.add(record)
		}
		return nil
	}

	for {
		if lineNum%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, cferrors.Wrap(err, cferrors.CodeContextCanceled, "load canceled")
			}
		}

		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, cferrors.Wrap(readErr, cferrors.CodeParseFailed, "read failed").
				WithContext("line", lineNum+1)
		}
		if len(line) == 0 && readErr == io.EOF {
			break
		}
		lineNum++

		line = trimLineEnding(line)
		if len(line) == 0 && !scanner.Pending() {
			if readErr == io.EOF {
				break
			}
			continue
		}

		if record, done := scanner.Feed(line); done {
			if err := emit(record); err != nil {
				return nil, err
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	if record := scanner.Flush(); record != nil {
		if err := emit(record); err != nil {
			return nil, err
		}
	}

	if builder == nil {
		return nil, cferrors.Wrap(ErrEmptyInput, cferrors.CodeEmptyInput, "no header line")
	}
	return builder.table, nil
}

// trimLineEnding removes trailing \n and \r characters.
func trimLineEnding(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
