package tabular

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/haasonsaas/nqbench/pkg/models"
	"github.com/xuri/excelize/v2"
)

// XLSXReader streams the rows of one worksheet. The first row is the header.
// Rows with no non-empty cells are skipped.
type XLSXReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	sheet   string
	headers []string
	offset  int
}

// OpenXLSX opens a workbook and positions the reader after the header row of
// sheet. An empty sheet name selects the first worksheet, and a workbook with
// a single worksheet is read whatever its name.
func OpenXLSX(path, sheet string) (*XLSXReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r, err := newXLSXReader(f, sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return r, nil
}

// NewXLSXReader reads sheet from an already opened workbook.
// Closing the reader closes the workbook.
func NewXLSXReader(f *excelize.File, sheet string) (*XLSXReader, error) {
	return newXLSXReader(f, sheet)
}

func newXLSXReader(f *excelize.File, sheet string) (*XLSXReader, error) {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) != 1 {
			return nil, fmt.Errorf("sheet %q not found (have %s)", sheet, strings.Join(sheets, ", "))
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	r := &XLSXReader{file: f, rows: rows, sheet: sheet}

	header, err := r.nextValues()
	if err == io.EOF {
		_ = rows.Close()
		return nil, fmt.Errorf("sheet %q: empty header", sheet)
	}
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	r.headers = header
	return r, nil
}

func (r *XLSXReader) Columns() []string { return r.headers }

func (r *XLSXReader) Next(ctx context.Context) (models.Row, error) {
	if err := ctx.Err(); err != nil {
		return models.Row{}, err
	}
	values, err := r.nextValues()
	if err != nil {
		return models.Row{}, err
	}
	row := rowFromValues(r.offset, r.headers, values)
	r.offset++
	return row, nil
}

func (r *XLSXReader) nextValues() ([]string, error) {
	for r.rows.Next() {
		values, err := r.rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", r.sheet, err)
		}
		if blank(values) {
			continue
		}
		return values, nil
	}
	if err := r.rows.Error(); err != nil {
		return nil, fmt.Errorf("sheet %q: %w", r.sheet, err)
	}
	return nil, io.EOF
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (r *XLSXReader) Close() error {
	var firstErr error
	if r.rows != nil {
		firstErr = r.rows.Close()
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
