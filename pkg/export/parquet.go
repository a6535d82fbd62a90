package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// Compression represents Parquet compression options.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// ParseCompression parses a compression name. Unknown names mean none.
func ParseCompression(s string) Compression {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

func (c Compression) codec() compress.Compression {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	case CompressionLZ4:
		return compress.Codecs.Lz4
	default:
		return compress.Codecs.Uncompressed
	}
}

// parquetBatchRows bounds the rows per record batch.
const parquetBatchRows = 8192

// arrowSchema maps dataset columns to Arrow fields. Text columns are
// non-nullable strings; numeric columns are nullable.
func arrowSchema(d *Dataset, meta map[string]string) *arrow.Schema {
	fields := make([]arrow.Field, len(d.Columns))
	for i, c := range d.Columns {
		switch c.Kind {
		case KindFloat:
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}
		case KindInt:
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Int64, Nullable: true}
		default:
			fields[i] = arrow.Field{Name: c.Name, Type: arrow.BinaryTypes.String}
		}
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = meta[k]
	}
	md := arrow.NewMetadata(keys, values)
	return arrow.NewSchema(fields, &md)
}

// WriteParquet writes d to w. meta is stored as schema metadata in the
// file footer.
func WriteParquet(w io.Writer, d *Dataset, compression Compression, meta map[string]string) error {
	allocator := memory.NewGoAllocator()
	schema := arrowSchema(d, meta)

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compression.codec()),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(1024*1024),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	fw, err := pqarrow.NewFileWriter(schema, w, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	builder := array.NewRecordBuilder(allocator, schema)
	defer builder.Release()

	for start := 0; start < len(d.Rows); start += parquetBatchRows {
		end := start + parquetBatchRows
		if end > len(d.Rows) {
			end = len(d.Rows)
		}
		appendRows(builder, d, start, end)

		rec := builder.NewRecord()
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return fmt.Errorf("failed to write record batch: %w", err)
		}
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func appendRows(b *array.RecordBuilder, d *Dataset, start, end int) {
	for j, c := range d.Columns {
		switch c.Kind {
		case KindFloat:
			fb := b.Field(j).(*array.Float64Builder)
			fb.Reserve(end - start)
			for i := start; i < end; i++ {
				if cell := d.Rows[i][j]; cell.Null {
					fb.AppendNull()
				} else {
					fb.Append(roundMillis(cell.F))
				}
			}
		case KindInt:
			ib := b.Field(j).(*array.Int64Builder)
			ib.Reserve(end - start)
			for i := start; i < end; i++ {
				if cell := d.Rows[i][j]; cell.Null {
					ib.AppendNull()
				} else {
					ib.Append(cell.I)
				}
			}
		default:
			sb := b.Field(j).(*array.StringBuilder)
			sb.Reserve(end - start)
			for i := start; i < end; i++ {
				sb.Append(d.Rows[i][j].S)
			}
		}
	}
}
