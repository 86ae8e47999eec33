package models

// SearchHit is a single ranked result returned by an external search index.
type SearchHit struct {
	// DocID is the opaque identifier stored in the index (a record ID).
	DocID string `json:"docid"`

	// Score is the engine-specific relevance score.
	Score float64 `json:"score"`

	// Rank is the one-based position of the hit in the result list.
	Rank int `json:"rank"`
}

// Question is one evaluation example with its gold labels.
type Question struct {
	// Index is the zero-based position of the row in the examples table.
	Index int `json:"index"`

	// Text is the natural-language query.
	Text string `json:"query"`

	// DocID is the gold document identifier.
	DocID string `json:"doc_id"`

	// ElementID is the gold passage identifier.
	ElementID string `json:"context_id,omitempty"`
}
