package parser

import (
	"context"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/claimflow/internal/model"
	cferrors "github.com/logflow/claimflow/pkg/errors"
)

// LoadXLSX reads an event log from an Excel workbook. The first row of the
// selected sheet is the header. Cells are read as displayed, so elapsed
// timestamps stored as text keep their "M:S.mmm" form.
func LoadXLSX(ctx context.Context, r io.Reader, cfg Config) (*model.Table, error) {
	var xl *excelize.File
	var err error

	if f, ok := r.(*os.File); ok {
		xl, err = excelize.OpenFile(f.Name())
	} else {
		xl, err = excelize.OpenReader(r)
	}
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeInvalidFormat, "failed to open xlsx")
	}
	defer xl.Close()

	sheet := cfg.Sheet
	if sheet == "" {
		sheet = xl.GetSheetName(0)
	}
	if sheet == "" {
		sheets := xl.GetSheetList()
		if len(sheets) == 0 {
			return nil, cferrors.Wrap(ErrNoSheet, cferrors.CodeInvalidFormat, "empty workbook")
		}
		sheet = sheets[0]
	}

	rows, err := xl.Rows(sheet)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeInvalidFormat, "failed to read rows").
			WithContext("sheet", sheet)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, cferrors.Wrap(ErrEmptyInput, cferrors.CodeEmptyInput, "xlsx sheet is empty").
			WithContext("sheet", sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeParseFailed, "failed to read header")
	}

	builder, err := newTableBuilder(header, cfg.Columns)
	if err != nil {
		return nil, err
	}

	rowNum := 1
	for rows.Next() {
		if rowNum%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, cferrors.Wrap(err, cferrors.CodeContextCanceled, "load canceled")
			}
		}
		rowNum++

		cols, err := rows.Columns()
		if err != nil {
			return nil, cferrors.Wrap(err, cferrors.CodeParseFailed, "failed to read row").
				WithContext("row", rowNum)
		}
		if isBlank(cols) {
			continue
		}
		builder.add(cols)
	}
	if err := rows.Error(); err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeParseFailed, "xlsx row iteration failed")
	}

	return builder.table, nil
}
