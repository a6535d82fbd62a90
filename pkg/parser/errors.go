package parser

import "errors"

var (
	// ErrEmptyInput is returned when the input has no header line.
	ErrEmptyInput = errors.New("parser: empty input")

	// ErrNoSheet is returned when an XLSX workbook has no usable worksheet.
	ErrNoSheet = errors.New("parser: no worksheet found")
)
