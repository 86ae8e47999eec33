// Package search defines the query-only retrieval interface used by the
// evaluator and its backends: on-disk Bluge indexes, Anserini-style REST
// servers, and SQLite FTS5 tables. Building indexes is left to external
// indexers.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/nqbench/pkg/models"
)

// Backend kinds accepted by Open.
const (
	KindBluge  = "bluge"
	KindHTTP   = "http"
	KindSQLite = "sqlite"
)

// DefaultField is the indexed text field of a converted collection.
const DefaultField = "contents"

// ErrUnknownKind is returned by Open for an unsupported backend kind.
var ErrUnknownKind = errors.New("unknown index kind")

// Searcher runs a free-text query against a pre-built index and returns
// at most k hits in rank order, best first.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchHit, error)
	Close() error
}

// IndexConfig selects and configures a Searcher backend.
type IndexConfig struct {
	// Kind is the backend: bluge, http, or sqlite.
	Kind string `yaml:"kind" json:"kind" jsonschema:"enum=bluge,enum=http,enum=sqlite"`

	// Location is the index directory, database path, or base URL.
	Location string `yaml:"location" json:"location"`

	// Index names the remote index (http) or FTS5 table (sqlite).
	Index string `yaml:"index,omitempty" json:"index,omitempty"`

	// Field is the text field to match (bluge).
	Field string `yaml:"field,omitempty" json:"field,omitempty"`

	// Timeout bounds each remote request (http).
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// ParseIndexConfig parses the KIND:LOCATION[#INDEX] shorthand used on the
// command line. A bare location without a known kind prefix defaults to
// bluge; http and https URLs select the http backend. The optional
// fragment names the remote index or FTS5 table.
func ParseIndexConfig(value string) (IndexConfig, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return IndexConfig{}, fmt.Errorf("index is required")
	}
	var index string
	if i := strings.LastIndex(value, "#"); i >= 0 {
		value, index = value[:i], value[i+1:]
	}

	cfg := IndexConfig{Kind: KindBluge, Location: value, Index: index}
	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		cfg.Kind = KindHTTP
		return cfg, nil
	}
	kind, location, ok := strings.Cut(value, ":")
	if !ok {
		return cfg, nil
	}
	switch strings.ToLower(kind) {
	case KindBluge, KindSQLite, KindHTTP:
		cfg.Kind = strings.ToLower(kind)
		cfg.Location = location
	}
	if cfg.Location == "" {
		return IndexConfig{}, fmt.Errorf("index %q has no location", value)
	}
	return cfg, nil
}

// Open builds the Searcher described by cfg.
func Open(ctx context.Context, cfg IndexConfig) (Searcher, error) {
	if strings.TrimSpace(cfg.Location) == "" {
		return nil, fmt.Errorf("index location is required")
	}
	switch strings.ToLower(cfg.Kind) {
	case KindBluge, "":
		return OpenBluge(cfg.Location, cfg.Field)
	case KindHTTP:
		return NewHTTPSearcher(cfg.Location, cfg.Index, cfg.Timeout)
	case KindSQLite:
		return OpenSQLite(ctx, cfg.Location, cfg.Index)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// Label returns a short human-readable name for cfg.
func (cfg IndexConfig) Label() string {
	kind := cfg.Kind
	if kind == "" {
		kind = KindBluge
	}
	if cfg.Index != "" {
		return fmt.Sprintf("%s:%s/%s", kind, cfg.Location, cfg.Index)
	}
	return fmt.Sprintf("%s:%s", kind, cfg.Location)
}

func validK(k int) error {
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d", k)
	}
	return nil
}
