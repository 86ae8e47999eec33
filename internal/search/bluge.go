package search

import (
	"context"
	"fmt"

	"github.com/blugelabs/bluge"

	"github.com/haasonsaas/nqbench/pkg/models"
)

// idField is the stored identifier field Bluge assigns to every document.
const idField = "_id"

// BlugeSearcher queries an on-disk Bluge index with a match query.
type BlugeSearcher struct {
	reader *bluge.Reader
	field  string
}

// OpenBluge opens the Bluge index directory at path for reading.
func OpenBluge(path, field string) (*BlugeSearcher, error) {
	reader, err := bluge.OpenReader(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open bluge index %s: %w", path, err)
	}
	if field == "" {
		field = DefaultField
	}
	return &BlugeSearcher{reader: reader, field: field}, nil
}

// Search returns the top k documents matching query.
func (s *BlugeSearcher) Search(ctx context.Context, query string, k int) ([]models.SearchHit, error) {
	if err := validK(k); err != nil {
		return nil, err
	}
	req := bluge.NewTopNSearch(k, bluge.NewMatchQuery(query).SetField(s.field))
	it, err := s.reader.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bluge search: %w", err)
	}

	hits := make([]models.SearchHit, 0, k)
	for len(hits) < k {
		match, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("bluge next: %w", err)
		}
		if match == nil {
			break
		}
		var docID string
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				docID = string(value)
				return false
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("bluge stored fields: %w", err)
		}
		hits = append(hits, models.SearchHit{DocID: docID, Score: match.Score, Rank: len(hits) + 1})
	}
	return hits, nil
}

// Close releases the index reader.
func (s *BlugeSearcher) Close() error {
	return s.reader.Close()
}
