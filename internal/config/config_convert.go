package config

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/nqbench/internal/collection"
)

// CollectionBoth converts the document and passage collections in one run.
const CollectionBoth = "both"

// ConvertConfig configures the collection converter.
type ConvertConfig struct {
	// Source is the tabular file or database holding the collection tables.
	Source string `yaml:"source"`

	// Table selects the sheet or database table for every collection that
	// does not name its own. Empty means the collection default.
	Table string `yaml:"table"`

	// Collection is documents, passages or both.
	Collection string `yaml:"collection" jsonschema:"enum=documents,enum=passages,enum=both"`

	// OutputDir receives the shard files.
	OutputDir string `yaml:"output_dir"`

	// IndexTable is the lookup table file or directory.
	IndexTable string `yaml:"index_table"`

	MaxDocsPerFile int    `yaml:"max_docs_per_file"`
	ShardPrefix    string `yaml:"shard_prefix"`
	ProgressEvery  int    `yaml:"progress_every"`

	// Documents and Passages override where each collection is read from.
	Documents CollectionConfig `yaml:"documents"`
	Passages  CollectionConfig `yaml:"passages"`

	// Publish uploads the converted files when true.
	Publish bool `yaml:"publish"`
}

// CollectionConfig locates one collection's rows. Empty fields fall back to
// the shared source and table, then to the collection defaults.
type CollectionConfig struct {
	Source             string `yaml:"source,omitempty" json:"source,omitempty"`
	Table              string `yaml:"table,omitempty" json:"table,omitempty"`
	collection.Columns `yaml:",inline"`
}

// Collections returns the collection names a run converts.
func (c ConvertConfig) Collections() []string {
	if strings.EqualFold(c.Collection, CollectionBoth) {
		return []string{collection.Documents, collection.Passages}
	}
	return []string{strings.ToLower(c.Collection)}
}

// ColumnsFor returns the configured columns of a collection with defaults filled in.
func (c ConvertConfig) ColumnsFor(name string) (collection.Columns, error) {
	defaults, err := collection.DefaultColumns(name)
	if err != nil {
		return collection.Columns{}, err
	}
	return c.collectionConfig(name).Columns.Merge(defaults), nil
}

// SourceFor returns the source location of a collection.
func (c ConvertConfig) SourceFor(name string) string {
	if src := strings.TrimSpace(c.collectionConfig(name).Source); src != "" {
		return src
	}
	return c.Source
}

// TableFor returns the sheet or table a collection is read from.
func (c ConvertConfig) TableFor(name string) string {
	if table := strings.TrimSpace(c.collectionConfig(name).Table); table != "" {
		return table
	}
	if table := strings.TrimSpace(c.Table); table != "" {
		return table
	}
	return collection.DefaultTable(name)
}

func (c ConvertConfig) collectionConfig(name string) CollectionConfig {
	if strings.EqualFold(name, collection.Documents) {
		return c.Documents
	}
	return c.Passages
}

func applyConvertDefaults(cfg *ConvertConfig) {
	if cfg.Collection == "" {
		cfg.Collection = collection.Passages
	}
	if cfg.MaxDocsPerFile == 0 {
		cfg.MaxDocsPerFile = collection.DefaultMaxPerShard
	}
	if cfg.ShardPrefix == "" {
		cfg.ShardPrefix = collection.DefaultShardPrefix
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = collection.DefaultProgressEvery
	}
}

func validateConvert(cfg ConvertConfig) []string {
	var issues []string
	switch strings.ToLower(cfg.Collection) {
	case collection.Documents, collection.Passages, CollectionBoth:
	default:
		issues = append(issues, fmt.Sprintf("convert.collection %q must be documents, passages or both", cfg.Collection))
	}
	if cfg.MaxDocsPerFile < 0 {
		issues = append(issues, "convert.max_docs_per_file must be positive")
	}
	if cfg.ProgressEvery < 0 {
		issues = append(issues, "convert.progress_every must be positive")
	}
	if strings.ContainsAny(cfg.ShardPrefix, `/\`) {
		issues = append(issues, "convert.shard_prefix must not contain path separators")
	}
	return issues
}
