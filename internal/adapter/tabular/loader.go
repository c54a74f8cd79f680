package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ressKim-io/stance-classifier/internal/domain/entity"
	"github.com/ressKim-io/stance-classifier/internal/domain/repository"
)

// Error definitions for tabular input
var (
	ErrParse             = errors.New("invalid tabular data")
	ErrMissingColumn     = errors.New("required column missing")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// DefaultNAValues are the cell spellings read as missing, same set pandas uses
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// metadata sheets skipped when picking the data sheet of a workbook
var skipSheets = map[string]bool{
	"info":     true,
	"metadata": true,
	"about":    true,
	"readme":   true,
	"notes":    true,
}

// Loader reads CSV, TSV and XLSX files into tables
type Loader struct {
	textColumn string
	naValues   map[string]struct{}
	logger     *zap.Logger
}

// NewLoader creates a loader that drops rows whose text column is missing
func NewLoader(textColumn string, naValues []string, logger *zap.Logger) *Loader {
	if naValues == nil {
		naValues = DefaultNAValues
	}
	na := make(map[string]struct{}, len(naValues))
	for _, v := range naValues {
		na[v] = struct{}{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		textColumn: textColumn,
		naValues:   na,
		logger:     logger,
	}
}

// Load reads the file at path and removes rows without text
func (l *Loader) Load(ctx context.Context, path string) (*repository.LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := l.readRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %q has no header", ErrParse, path)
	}

	records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	header := columnNames(records[0])

	table := entity.NewTable(header)
	textIdx, ok := table.ColumnIndex(l.textColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no %q column", ErrMissingColumn, path, l.textColumn)
	}

	for i, record := range records[1:] {
		if len(record) > len(header) {
			return nil, fmt.Errorf("%w: %q row %d has %d fields, header has %d",
				ErrParse, path, i+1, len(record), len(header))
		}
		table.Append(i, record)
	}

	rowsRead := table.Len()
	dropped := table.Filter(func(r *entity.Row) bool {
		return !l.isNA(r.Values[textIdx])
	})

	l.logger.Debug("Loaded table",
		zap.String("path", path),
		zap.Int("rows_read", rowsRead),
		zap.Int("rows_dropped", dropped),
	)

	return &repository.LoadResult{
		Table:       table,
		RowsRead:    rowsRead,
		RowsDropped: dropped,
	}, nil
}

// columnNames names blank header cells "Unnamed: <position>" and suffixes
// repeated names with ".1", ".2", ... as pandas does when reading a file
func columnNames(header []string) []string {
	names := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, name := range header {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		count := counts[name]
		for count > 0 {
			counts[name] = count + 1
			name = fmt.Sprintf("%s.%d", name, count)
			count = counts[name]
		}
		names[i] = name
		counts[name] = count + 1
	}
	return names
}

func (l *Loader) isNA(value string) bool {
	_, ok := l.naValues[value]
	return ok
}

func (l *Loader) readRecords(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return readDelimited(path, ',')
	case ".tsv":
		return readDelimited(path, '\t')
	case ".xlsx", ".xlsm":
		return l.readWorkbook(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (l *Loader) readWorkbook(path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %w", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets in workbook", ErrParse)
	}

	sheetName := sheets[len(sheets)-1]
	for _, sheet := range sheets {
		if !skipSheets[strings.ToLower(sheet)] {
			sheetName = sheet
			break
		}
	}
	l.logger.Debug("Reading workbook sheet", zap.String("sheet", sheetName))

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %w", ErrParse, sheetName, err)
	}

	// blank rows are skipped, as in delimited input
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		records = append(records, row)
	}
	return records, nil
}
