package tabular

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/ressKim-io/stance-classifier/internal/domain/entity"
)

// ParquetIndexColumn names the index column, as pandas does for parquet files
const ParquetIndexColumn = "__index_level_0__"

// ParquetWriter exports tables as Apache Parquet
type ParquetWriter struct {
	floatColumns map[string]bool
}

// NewParquetWriter creates a writer. Columns named in floatColumns are stored
// as float64; every other column is stored as string.
func NewParquetWriter(floatColumns ...string) *ParquetWriter {
	fc := make(map[string]bool, len(floatColumns))
	for _, c := range floatColumns {
		fc[c] = true
	}
	return &ParquetWriter{floatColumns: fc}
}

func (w *ParquetWriter) schema(table *entity.Table) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(table.Columns)+1)
	fields = append(fields, arrow.Field{Name: ParquetIndexColumn, Type: arrow.PrimitiveTypes.Int64})
	for _, col := range table.Columns {
		if w.floatColumns[col] {
			fields = append(fields, arrow.Field{Name: col, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
			continue
		}
		fields = append(fields, arrow.Field{Name: col, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// Write serializes the table to path. The file appears only once fully written.
func (w *ParquetWriter) Write(ctx context.Context, table *entity.Table, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	schema := w.schema(table)
	allocator := memory.NewGoAllocator()
	recordBuilder := array.NewRecordBuilder(allocator, schema)
	defer recordBuilder.Release()

	indexBuilder := recordBuilder.Field(0).(*array.Int64Builder)
	for _, row := range table.Rows {
		indexBuilder.Append(int64(row.Index))
		for j, value := range row.Values {
			switch b := recordBuilder.Field(j + 1).(type) {
			case *array.Float64Builder:
				f, err := strconv.ParseFloat(value, 64)
				if err != nil {
					b.AppendNull()
					continue
				}
				b.Append(f)
			case *array.StringBuilder:
				b.Append(value)
			default:
				return fmt.Errorf("unsupported builder type %T", b)
			}
		}
	}

	record := recordBuilder.NewRecord()
	defer record.Release()

	return writeAtomic(path, func(out io.Writer) error {
		writer, err := pqarrow.NewFileWriter(
			schema,
			out,
			parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
			pqarrow.DefaultWriterProps(),
		)
		if err != nil {
			return fmt.Errorf("creating parquet writer: %w", err)
		}
		if err := writer.Write(record); err != nil {
			_ = writer.Close()
			return fmt.Errorf("writing record: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("closing parquet writer: %w", err)
		}
		return nil
	})
}
