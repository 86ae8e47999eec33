package tabular

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/haasonsaas/nqbench/pkg/models"
)

const maxJSONLLine = 64 * 1024 * 1024

// JSONLReader reads one JSON object per line. Columns are taken from the keys
// of the first object, so a file without objects has no columns.
type JSONLReader struct {
	file    *os.File
	scanner *bufio.Scanner
	columns []string
	pending map[string]string
	empty   bool
	offset  int
	line    int
}

// OpenJSONL opens a line-delimited JSON file.
func OpenJSONL(path string) (*JSONLReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r, err := NewJSONLReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r.file = f
	return r, nil
}

// NewJSONLReader reads JSON lines from src. The caller owns src.
func NewJSONLReader(src io.Reader) (*JSONLReader, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	r := &JSONLReader{scanner: scanner}

	first, err := r.readObject()
	if err == io.EOF {
		r.empty = true
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	for k := range first {
		r.columns = append(r.columns, k)
	}
	sort.Strings(r.columns)
	r.pending = first
	return r, nil
}

func (r *JSONLReader) Columns() []string { return r.columns }

// Empty reports whether the input held no objects at all.
func (r *JSONLReader) Empty() bool { return r.empty }

func (r *JSONLReader) Next(ctx context.Context) (models.Row, error) {
	if err := ctx.Err(); err != nil {
		return models.Row{}, err
	}
	fields := r.pending
	r.pending = nil
	if fields == nil {
		var err error
		fields, err = r.readObject()
		if err != nil {
			return models.Row{}, err
		}
	}
	row := models.Row{Index: r.offset, Fields: fields}
	r.offset++
	return row, nil
}

func (r *JSONLReader) readObject() (map[string]string, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", r.line, err)
		}
		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			fields[k] = stringify(v)
		}
		return fields, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func (r *JSONLReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
