package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/haasonsaas/nqbench/pkg/models"
)

// CSVReader reads delimited text files whose first record is the header.
type CSVReader struct {
	path    string
	file    *os.File
	reader  *csv.Reader
	headers []string
	offset  int
}

// OpenCSV opens a delimited file and consumes its header row.
func OpenCSV(path string, comma rune) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r, err := NewCSVReader(f, comma)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r.path = path
	r.file = f
	return r, nil
}

// NewCSVReader reads delimited records from src. The caller owns src.
func NewCSVReader(src io.Reader, comma rune) (*CSVReader, error) {
	reader := csv.NewReader(src)
	reader.Comma = comma
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	reader.FieldsPerRecord = len(headers)
	return &CSVReader{reader: reader, headers: headers}, nil
}

func (r *CSVReader) Columns() []string { return r.headers }

func (r *CSVReader) Next(ctx context.Context) (models.Row, error) {
	if err := ctx.Err(); err != nil {
		return models.Row{}, err
	}
	record, err := r.reader.Read()
	if err == io.EOF {
		return models.Row{}, io.EOF
	}
	if err != nil {
		return models.Row{}, fmt.Errorf("csv row %d: %w", r.offset, err)
	}
	row := rowFromValues(r.offset, r.headers, record)
	r.offset++
	return row, nil
}

func (r *CSVReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
