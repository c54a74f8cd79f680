package entity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Error definitions for table operations
var (
	ErrColumnNotFound = errors.New("column not found")
	ErrLengthMismatch = errors.New("column length does not match row count")
)

// Row represents one input record
type Row struct {
	// Index is the 0-based position of the data row in the input file.
	// It survives filtering so written output can be traced back to the source.
	Index  int
	Values []string
}

// Table is an ordered sequence of rows sharing one column schema
type Table struct {
	Columns []string
	Rows    []*Row
}

// NewTable creates an empty table with the given columns
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds a row. Values are padded or cut to the column count.
func (t *Table) Append(index int, values []string) {
	row := &Row{Index: index, Values: make([]string, len(t.Columns))}
	copy(row.Values, values)
	t.Rows = append(t.Rows, row)
}

// ColumnIndex returns the position of a column
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Columns {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns the values of a column in row order
func (t *Table) Column(name string) ([]string, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}

	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.Values[idx]
	}
	return values, nil
}

// SetColumn appends a new column or overwrites an existing one
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: %q has %d values, table has %d rows", ErrLengthMismatch, name, len(values), len(t.Rows))
	}

	idx, ok := t.ColumnIndex(name)
	if !ok {
		t.Columns = append(t.Columns, name)
		for i, row := range t.Rows {
			row.Values = append(row.Values, values[i])
		}
		return nil
	}

	for i, row := range t.Rows {
		row.Values[idx] = values[i]
	}
	return nil
}

// Filter keeps the rows for which keep returns true and returns how many were removed
func (t *Table) Filter(keep func(*Row) bool) int {
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	removed := len(t.Rows) - len(kept)
	for i := len(kept); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = kept
	return removed
}

// FormatScore renders a score as the shortest decimal that round-trips.
// Values below 1e-4 use exponent notation (1e-05), matching how the
// classified tweet files written so far render small scores.
func FormatScore(score float64) string {
	abs := math.Abs(score)
	if abs != 0 && abs < 1e-4 {
		return strconv.FormatFloat(score, 'e', -1, 64)
	}
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if score == math.Trunc(score) && !math.IsInf(score, 0) {
		s += ".0"
	}
	return s
}
