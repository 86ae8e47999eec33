package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("NQ_BUCKET", "nq-artifacts")
	path := writeConfig(t, "nqbench.yaml", `
version: 1
logging:
  level: debug
  format: json
convert:
  source: data/NQ.xlsx
  collection: both
  output_dir: out
  index_table: out/tables
  max_docs_per_file: 500
  documents:
    source: data/documents.db
    table: full_docs
  passages:
    text: passage_text
evaluate:
  examples: data/examples.csv
  retrievers:
    - name: passages
      index:
        kind: http
        location: http://localhost:8081
        index: nq-passages
        timeout: 5s
      lookup: out/tables/passages/index_table.json
      k: 20
      cutoffs: [1, 5, 20]
    - name: documents
      index:
        location: indexes/documents
      lookup: out/tables/documents/index_table.json
      k: 5
      criterion: document
  combined:
    documents: documents
    passages: passages
publish:
  bucket: ${NQ_BUCKET}
  prefix: runs
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if got := cfg.Convert.Collections(); len(got) != 2 || got[0] != "documents" || got[1] != "passages" {
		t.Fatalf("Collections() = %v", got)
	}
	cols, err := cfg.Convert.ColumnsFor("passages")
	if err != nil {
		t.Fatalf("ColumnsFor() error = %v", err)
	}
	if cols.Text != "passage_text" || cols.DocID != "doc_id" || cols.ElementID != "e_id" {
		t.Fatalf("passage columns = %+v", cols)
	}
	if cfg.Convert.ShardPrefix != "docs" || cfg.Convert.MaxDocsPerFile != 500 {
		t.Fatalf("convert defaults = %+v", cfg.Convert)
	}
	if got := cfg.Convert.TableFor("passages"); got != "elements" {
		t.Fatalf("TableFor(passages) = %q, want elements", got)
	}
	if got := cfg.Convert.TableFor("documents"); got != "full_docs" {
		t.Fatalf("TableFor(documents) = %q, want full_docs", got)
	}
	if cfg.Convert.SourceFor("documents") == cfg.Convert.SourceFor("passages") {
		t.Fatalf("documents and passages share source %q", cfg.Convert.SourceFor("documents"))
	}
	docCols, err := cfg.Convert.ColumnsFor("documents")
	if err != nil || docCols.Text != "document" || docCols.ElementID != "" {
		t.Fatalf("document columns = %+v, %v", docCols, err)
	}

	ev := cfg.Evaluate
	if ev.Table != "examples" || ev.Columns.ElementID != "context_id" {
		t.Fatalf("evaluate defaults = %+v", ev)
	}
	if ev.Retrievers[0].Index.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v", ev.Retrievers[0].Index.Timeout)
	}
	if ev.Retrievers[0].Criterion != "passage" || ev.Retrievers[1].Index.Kind != "bluge" {
		t.Fatalf("retriever defaults = %+v", ev.Retrievers)
	}
	if ev.Combined == nil || ev.Combined.Documents != "documents" {
		t.Fatalf("combined = %+v", ev.Combined)
	}
	if cfg.Publish.Bucket != "nq-artifacts" || cfg.Publish.Region != "us-east-1" {
		t.Fatalf("publish = %+v", cfg.Publish)
	}
}

func TestConvertTableFallback(t *testing.T) {
	tests := []struct {
		name string
		cfg  ConvertConfig
		want map[string]string
	}{
		{
			name: "defaults",
			want: map[string]string{"documents": "documents", "passages": "elements"},
		},
		{
			name: "shared table",
			cfg:  ConvertConfig{Table: "nq"},
			want: map[string]string{"documents": "nq", "passages": "nq"},
		},
		{
			name: "per collection wins",
			cfg:  ConvertConfig{Table: "nq", Passages: CollectionConfig{Table: "paragraphs"}},
			want: map[string]string{"documents": "nq", "passages": "paragraphs"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, want := range tt.want {
				if got := tt.cfg.TableFor(name); got != want {
					t.Errorf("TableFor(%s) = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "nqbench.yaml", `
convert:
  source: x.csv
  shards_per_file: 3
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadValidationIssues(t *testing.T) {
	path := writeConfig(t, "nqbench.yaml", `
logging:
  format: xml
convert:
  collection: tables
evaluate:
  retrievers:
    - name: r
      index:
        kind: faiss
        location: idx
      k: 0
      cutoffs: [3]
      criterion: fuzzy
  combined:
    documents: missing
    passages: r
`)
	_, err := Load(path)
	var verr *ConfigValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Load() error = %v, want *ConfigValidationError", err)
	}
	for _, want := range []string{"logging.format", "convert.collection", ".lookup", ".k", ".cutoffs", ".criterion", ".index.kind", "combined.documents"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestLoadIncludesAndJSON5(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(base, []byte("convert:\n  source: base.csv\n  max_docs_per_file: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "run.json5")
	if err := os.WriteFile(path, []byte(`{
  // overrides the included file
  "$include": "base.yaml",
  convert: { max_docs_per_file: 20, },
}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Convert.Source != filepath.Join(dir, "base.csv") || cfg.Convert.MaxDocsPerFile != 20 {
		t.Fatalf("convert = %+v", cfg.Convert)
	}
}

func TestLoadAnchorsRelativePaths(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared")
	if err := os.MkdirAll(shared, 0o755); err != nil {
		t.Fatal(err)
	}
	base := `
convert:
  source: data/nq.db
  output_dir: /srv/collections
  documents:
    source: sqlite://data/docs.db
`
	if err := os.WriteFile(filepath.Join(shared, "base.yaml"), []byte(base), 0o644); err != nil {
		t.Fatal(err)
	}
	run := `
$include: shared/base.yaml
convert:
  index_table: tables
evaluate:
  examples: examples.jsonl
  retrievers:
    - name: passages
      index:
        location: indexes/passages
      lookup: tables/index_table.json
      k: 5
    - name: remote
      index:
        kind: http
        location: http://localhost:8081
        index: nq
      lookup: postgres://db/nq
      k: 5
observability:
  metrics_file: metrics/nqbench.prom
`
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte(run), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"convert.source", cfg.Convert.Source, filepath.Join(shared, "data", "nq.db")},
		{"convert.output_dir", cfg.Convert.OutputDir, "/srv/collections"},
		{"convert.documents.source", cfg.Convert.Documents.Source, "sqlite://" + filepath.Join(shared, "data", "docs.db")},
		{"convert.index_table", cfg.Convert.IndexTable, filepath.Join(dir, "tables")},
		{"evaluate.examples", cfg.Evaluate.Examples, filepath.Join(dir, "examples.jsonl")},
		{"retriever location", cfg.Evaluate.Retrievers[0].Index.Location, filepath.Join(dir, "indexes", "passages")},
		{"retriever lookup", cfg.Evaluate.Retrievers[0].Lookup, filepath.Join(dir, "tables", "index_table.json")},
		{"http location", cfg.Evaluate.Retrievers[1].Index.Location, "http://localhost:8081"},
		{"url lookup", cfg.Evaluate.Retrievers[1].Lookup, "postgres://db/nq"},
		{"metrics_file", cfg.Observability.MetricsFile, filepath.Join(dir, "metrics", "nqbench.prom")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeConfig(t, "empty.yaml", "\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Version != CurrentVersion || cfg.Convert.MaxDocsPerFile == 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	os.WriteFile(a, []byte("$include: b.yaml\n"), 0o644)
	os.WriteFile(b, []byte("$include: a.yaml\n"), 0o644)
	if _, err := Load(a); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("Load() error = %v, want include cycle", err)
	}
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "nqbench.yaml", "logging:\n  level: info\n---\nlogging:\n  level: debug\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for multi-document yaml")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Convert.MaxDocsPerFile != 1000000 || cfg.Convert.ProgressEvery != 100000 {
		t.Fatalf("convert defaults = %+v", cfg.Convert)
	}
	if got := cfg.Convert.Collections(); len(got) != 1 || got[0] != "passages" {
		t.Fatalf("Collections() = %v", got)
	}
}

func TestJSONSchema(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema() error = %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if schema["title"] != "nqbench configuration" || schema["$id"] == nil {
		t.Fatalf("schema header = %v, %v", schema["title"], schema["$id"])
	}
	for _, key := range []string{"max_docs_per_file", "retrievers", "metrics_file", `"both"`, `"sqlite"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("schema missing %q", key)
		}
	}
}

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
