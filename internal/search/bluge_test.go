package search

import (
	"context"
	"testing"

	"github.com/blugelabs/bluge"
)

func buildBlugeIndex(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(dir))
	if err != nil {
		t.Fatalf("OpenWriter() error = %v", err)
	}
	for id, text := range docs {
		doc := bluge.NewDocument(id).AddField(bluge.NewTextField(DefaultField, text))
		if err := writer.Insert(doc); err != nil {
			t.Fatalf("Insert(%s) error = %v", id, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close() error = %v", err)
	}
	return dir
}

func TestBlugeSearcher(t *testing.T) {
	dir := buildBlugeIndex(t, map[string]string{
		"0": "paris is the capital and largest city of france",
		"1": "berlin is the capital of germany",
		"2": "bananas are an elongated edible fruit",
	})

	s, err := Open(context.Background(), IndexConfig{Kind: KindBluge, Location: dir})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	hits, err := s.Search(context.Background(), "what is the capital of france", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].DocID != "0" || hits[0].Rank != 1 {
		t.Fatalf("top hit = %+v, want doc 0 at rank 1", hits[0])
	}
	if hits[1].Rank != 2 || hits[0].Score < hits[1].Score {
		t.Fatalf("hits not in rank order: %+v", hits)
	}

	if _, err := s.Search(context.Background(), "france", 0); err == nil {
		t.Fatal("Search() expected error for k=0")
	}
}
