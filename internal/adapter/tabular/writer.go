package tabular

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ressKim-io/stance-classifier/internal/domain/entity"
)

// CSVWriter writes tables as delimited text
type CSVWriter struct {
	writeIndex bool
}

// NewCSVWriter creates a writer. With writeIndex the first column is an
// unnamed index holding each row's position in the input file.
func NewCSVWriter(writeIndex bool) *CSVWriter {
	return &CSVWriter{writeIndex: writeIndex}
}

// Write serializes the table to path. The file appears only once fully written.
func (w *CSVWriter) Write(ctx context.Context, table *entity.Table, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	comma := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		comma = '\t'
	}

	return writeAtomic(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		cw.Comma = comma

		header := table.Columns
		if w.writeIndex {
			header = append([]string{""}, table.Columns...)
		}
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}

		record := make([]string, 0, len(header))
		for _, row := range table.Rows {
			record = record[:0]
			if w.writeIndex {
				record = append(record, strconv.Itoa(row.Index))
			}
			record = append(record, row.Values...)
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row.Index, err)
			}
		}

		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("failed to flush csv: %w", err)
		}
		return nil
	})
}

// writeAtomic writes to a temp file next to path and renames it into place
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create output file in %q: %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
