package export

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes d with a header line.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Header()); err != nil {
		return err
	}
	record := make([]string, len(d.Columns))
	for i := range d.Rows {
		for j := range record {
			record[j] = d.Text(i, j)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
