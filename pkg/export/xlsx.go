package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxMaxRows is the Excel sheet row limit, header included.
const xlsxMaxRows = 1048576

// WriteWorkbook writes a workbook to w with one sheet per dataset, named
// after the dataset, with a bold header row. Numeric columns are written as
// numbers so the workbook can feed charts directly.
func WriteWorkbook(w io.Writer, datasets ...*Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, d := range datasets {
		if len(d.Rows)+1 > xlsxMaxRows {
			return fmt.Errorf("sheet %s: %d rows exceed the xlsx limit", d.Name, len(d.Rows))
		}
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), d.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(d.Name); err != nil {
			return err
		}
		if err := writeSheet(f, d, header); err != nil {
			return fmt.Errorf("sheet %s: %w", d.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, d *Dataset, headerStyle int) error {
	sw, err := f.NewStreamWriter(d.Name)
	if err != nil {
		return err
	}
	header := make([]interface{}, len(d.Columns))
	for j, c := range d.Columns {
		header[j] = c.Name
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return err
	}

	values := make([]interface{}, len(d.Columns))
	for i := range d.Rows {
		for j, c := range d.Columns {
			cell := d.Rows[i][j]
			switch {
			case c.Kind == KindString:
				values[j] = cell.S
			case cell.Null:
				values[j] = nil
			case c.Kind == KindInt:
				values[j] = cell.I
			default:
				values[j] = roundMillis(cell.F)
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}
