// Package lookup persists and resolves the side tables that map converted
// record identifiers back to document and passage identifiers.
package lookup

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/nqbench/pkg/models"
)

// DefaultFileName is the lookup file written when only a directory is given.
const DefaultFileName = "index_table.json"

// Resolver translates record identifiers into lookup entries.
type Resolver interface {
	// Get returns the entry for id. A missing id is reported as ok == false.
	Get(id string) (entry models.LookupEntry, ok bool, err error)

	// Len returns the number of entries.
	Len() int

	// Close releases any resources held by the resolver.
	Close() error
}

// ResolvePath maps a lookup destination to a file path. A path ending in
// .json is used as is; anything else is treated as a directory that will
// receive DefaultFileName.
func ResolvePath(dest string) string {
	dest = strings.TrimSpace(dest)
	if strings.EqualFold(filepath.Ext(dest), ".json") {
		return dest
	}
	return filepath.Join(dest, DefaultFileName)
}

// Save serializes table as a single JSON object, replacing any existing file.
func Save(path string, table models.LookupTable) error {
	if table == nil {
		table = models.LookupTable{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lookup dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create lookup file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := json.NewEncoder(w).Encode(table); err != nil {
		return fmt.Errorf("encode lookup table: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write lookup table: %w", err)
	}
	return f.Close()
}

// Load reads a JSON lookup table into memory.
func Load(path string) (models.LookupTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lookup table: %w", err)
	}
	defer f.Close()

	var table models.LookupTable
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&table); err != nil {
		return nil, fmt.Errorf("parse lookup table %s: %w", path, err)
	}
	if table == nil {
		table = models.LookupTable{}
	}
	return table, nil
}

// Table is an in-memory Resolver.
type Table struct {
	entries models.LookupTable
}

// NewTable wraps an in-memory lookup table.
func NewTable(entries models.LookupTable) *Table {
	if entries == nil {
		entries = models.LookupTable{}
	}
	return &Table{entries: entries}
}

func (t *Table) Get(id string) (models.LookupEntry, bool, error) {
	e, ok := t.entries[id]
	return e, ok, nil
}

func (t *Table) Len() int { return len(t.entries) }

func (t *Table) Close() error { return nil }

// Open returns a Resolver for path. Files with a .db or .bolt extension are
// opened as compiled bolt stores; anything else is loaded as JSON.
func Open(path string) (Resolver, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".bolt":
		return OpenBolt(path)
	default:
		table, err := Load(path)
		if err != nil {
			return nil, err
		}
		return NewTable(table), nil
	}
}
