// Package models defines the core data types for nqbench.
package models

import "strconv"

// Row is a single record read from a tabular source.
// Fields are addressed by column name; values are kept as strings.
type Row struct {
	// Index is the zero-based position of the row in the source table.
	Index int

	// Fields maps column names to cell values.
	Fields map[string]string
}

// Get returns the value of a column and whether the column was present.
func (r Row) Get(column string) (string, bool) {
	if r.Fields == nil {
		return "", false
	}
	v, ok := r.Fields[column]
	return v, ok
}

// OutputRecord is one line of a converted collection shard.
// This is the document shape consumed by Anserini-style JSON collection indexers.
type OutputRecord struct {
	// ID is the string-encoded sequential counter assigned to the source row.
	ID string `json:"id"`

	// Contents is the text payload to be indexed.
	Contents string `json:"contents"`
}

// LookupEntry maps a converted record back to its origin.
// Passage-level tables carry ElementID and Content; document-level tables carry Document.
type LookupEntry struct {
	// DocID is the original document identifier.
	DocID string `json:"doc_id"`

	// ElementID is the passage identifier within the document (passage tables only).
	ElementID string `json:"element_id,omitempty"`

	// Content is the passage text (passage tables only).
	Content string `json:"content,omitempty"`

	// Document is the full document text (document tables only).
	Document string `json:"document,omitempty"`
}

// Text returns whichever text payload the entry carries.
func (e LookupEntry) Text() string {
	if e.Content != "" {
		return e.Content
	}
	return e.Document
}

// LookupTable maps record identifiers to their lookup entries.
type LookupTable map[string]LookupEntry

// RecordID encodes a sequential counter as a record identifier.
func RecordID(counter int) string {
	return strconv.Itoa(counter)
}
