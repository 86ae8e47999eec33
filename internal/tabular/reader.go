// Package tabular provides row iteration with named-field access over the
// tabular formats a QA dataset can be stored in.
package tabular

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/nqbench/pkg/models"
)

var (
	// ErrMissingColumn is returned when a source lacks a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrUnsupportedFormat is returned when no reader handles a location.
	ErrUnsupportedFormat = errors.New("unsupported tabular format")
)

// Reader iterates the rows of a table in its native order.
type Reader interface {
	// Columns returns the column names in source order.
	Columns() []string

	// Next returns the next row, or io.EOF once the table is exhausted.
	Next(ctx context.Context) (models.Row, error)

	// Close releases any resources held by the reader.
	Close() error
}

// Open returns a Reader for location. The table argument selects the sheet of
// a workbook or the table of a database, playing the role of the dataset key
// (for example "elements" or "examples"); it is ignored by flat file formats.
func Open(ctx context.Context, location, table string) (Reader, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("source location is required")
	}

	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return OpenSQL(ctx, "postgres", location, table)
	case strings.HasPrefix(lower, "sqlite://"):
		return OpenSQL(ctx, "sqlite", location[len("sqlite://"):], table)
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".csv":
		return OpenCSV(location, ',')
	case ".tsv", ".tab":
		return OpenCSV(location, '\t')
	case ".jsonl", ".ndjson":
		return OpenJSONL(location)
	case ".xlsx", ".xlsm":
		return OpenXLSX(location, table)
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQL(ctx, "sqlite", location, table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, location)
	}
}

// emptier is implemented by readers whose columns come from the data itself
// and can tell before the first Next that there are no rows.
type emptier interface {
	Empty() bool
}

// RequireColumns verifies that every named column is exposed by the reader.
// Empty names are skipped so optional columns can be passed through unchanged.
// A reader that reports itself empty passes: it has no schema to check and
// no row will be read.
func RequireColumns(r Reader, columns ...string) error {
	if e, ok := r.(emptier); ok && e.Empty() {
		return nil
	}
	present := make(map[string]struct{}, len(r.Columns()))
	for _, c := range r.Columns() {
		present[c] = struct{}{}
	}
	var missing []string
	for _, c := range columns {
		if c == "" {
			continue
		}
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s (have %s)", ErrMissingColumn, strings.Join(missing, ", "), strings.Join(r.Columns(), ", "))
	}
	return nil
}

// Field returns a required field from a row, failing with ErrMissingColumn.
func Field(row models.Row, column string) (string, error) {
	v, ok := row.Get(column)
	if !ok {
		return "", fmt.Errorf("%w: %q in row %d", ErrMissingColumn, column, row.Index)
	}
	return v, nil
}

func rowFromValues(index int, columns, values []string) models.Row {
	fields := make(map[string]string, len(columns))
	for i, c := range columns {
		if i < len(values) {
			fields[c] = values[i]
		} else {
			fields[c] = ""
		}
	}
	return models.Row{Index: index, Fields: fields}
}
