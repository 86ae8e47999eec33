package collection

import (
	"fmt"
	"strings"
)

const (
	// Documents is the full-document collection.
	Documents = "documents"

	// Passages is the sub-document passage collection.
	Passages = "passages"
)

// Columns names the source columns a collection is read from.
type Columns struct {
	// DocID is the document identifier column.
	DocID string `yaml:"doc_id" json:"doc_id"`

	// ElementID is the passage identifier column; empty for document collections.
	ElementID string `yaml:"element_id,omitempty" json:"element_id,omitempty"`

	// Text is the column holding the text payload.
	Text string `yaml:"text" json:"text"`
}

// DefaultColumns returns the column mapping of the processed Natural
// Questions tables for a collection name.
func DefaultColumns(name string) (Columns, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Documents:
		return Columns{DocID: "doc_id", Text: "document"}, nil
	case Passages:
		return Columns{DocID: "doc_id", ElementID: "e_id", Text: "element"}, nil
	default:
		return Columns{}, fmt.Errorf("unknown collection %q (want %s or %s)", name, Documents, Passages)
	}
}

// DefaultTable returns the source table a collection is read from when none
// is configured: full documents and the passage elements live in separate
// tables of the processed Natural Questions data.
func DefaultTable(name string) string {
	if strings.EqualFold(strings.TrimSpace(name), Documents) {
		return "documents"
	}
	return "elements"
}

// Merge fills empty fields of c from defaults.
func (c Columns) Merge(defaults Columns) Columns {
	if c.DocID == "" {
		c.DocID = defaults.DocID
	}
	if c.ElementID == "" {
		c.ElementID = defaults.ElementID
	}
	if c.Text == "" {
		c.Text = defaults.Text
	}
	return c
}

// Required returns the non-empty column names.
func (c Columns) Required() []string {
	cols := []string{c.DocID, c.Text}
	if c.ElementID != "" {
		cols = append(cols, c.ElementID)
	}
	return cols
}
