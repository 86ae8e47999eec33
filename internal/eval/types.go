package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haasonsaas/nqbench/internal/lookup"
	"github.com/haasonsaas/nqbench/internal/search"
	"github.com/haasonsaas/nqbench/pkg/models"
)

var (
	// ErrNoExamples is returned when the question set is empty; recall is
	// undefined in that case.
	ErrNoExamples = errors.New("no examples")

	// ErrLookupMiss is returned when a retrieved id has no lookup entry.
	ErrLookupMiss = errors.New("retrieved id missing from lookup table")
)

// Criterion decides whether a retrieved entry answers a question.
type Criterion string

const (
	// MatchDocument accepts any entry from the gold document.
	MatchDocument Criterion = "document"

	// MatchPassage requires both the gold document and the gold passage.
	MatchPassage Criterion = "passage"
)

// ParseCriterion parses a criterion name.
func ParseCriterion(s string) (Criterion, error) {
	switch Criterion(strings.ToLower(strings.TrimSpace(s))) {
	case MatchDocument, "documents", "doc":
		return MatchDocument, nil
	case MatchPassage, "passages", "":
		return MatchPassage, nil
	default:
		return "", fmt.Errorf("unknown criterion %q (want document or passage)", s)
	}
}

// Matches reports whether entry satisfies the criterion for q.
func (c Criterion) Matches(entry models.LookupEntry, q models.Question) bool {
	if entry.DocID != q.DocID {
		return false
	}
	if c == MatchDocument {
		return true
	}
	return entry.ElementID == q.ElementID
}

// Retriever is one (index, lookup table, k) tuple under evaluation.
type Retriever struct {
	// Name labels the retriever in reports, logs and metrics.
	Name string

	Searcher search.Searcher
	Lookup   lookup.Resolver

	// K is the number of hits requested and inspected per question.
	K int

	// Cutoffs are extra k values, at most K, scored from the same result list.
	Cutoffs []int

	Criterion Criterion
}

// Combined configures the experimental cross-check: a question counts
// when a passage hit both matches the gold passage and belongs to a
// document the document retriever also returned.
type Combined struct {
	// Documents names the document-level retriever.
	Documents string

	// Passages names the passage-level retriever.
	Passages string
}
