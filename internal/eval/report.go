package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Report captures evaluation results and aggregated metrics.
type Report struct {
	RunID        string               `json:"run_id"`
	TraceID      string               `json:"trace_id,omitempty"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Questions    int                  `json:"questions"`
	Retrievers   []RetrieverSummary   `json:"retrievers"`
	Experimental *ExperimentalSummary `json:"experimental,omitempty"`
	Cases        []CaseResult         `json:"cases,omitempty"`
}

// RetrieverSummary aggregates the scores of one retriever.
type RetrieverSummary struct {
	Name      string          `json:"name"`
	Criterion string          `json:"criterion"`
	K         int             `json:"k"`
	Questions int             `json:"questions"`
	Hits      int             `json:"hits"`
	Recall    float64         `json:"recall"`
	MRR       float64         `json:"mrr"`
	RecallAt  map[int]float64 `json:"recall_at,omitempty"`
}

// ExperimentalSummary holds the combined cross-check score. It is kept
// apart from the retriever recalls and is not comparable to them.
type ExperimentalSummary struct {
	Mode      string  `json:"mode"`
	Documents string  `json:"documents"`
	Passages  string  `json:"passages"`
	DocK      int     `json:"doc_k"`
	PassageK  int     `json:"passage_k"`
	Hits      int     `json:"hits"`
	Recall    float64 `json:"recall"`
}

// CaseResult records how each retriever did on a single question. A rank
// of 0 means no hit matched within the search depth.
type CaseResult struct {
	Index     int            `json:"index"`
	Query     string         `json:"query"`
	DocID     string         `json:"doc_id"`
	ElementID string         `json:"element_id,omitempty"`
	Ranks     map[string]int `json:"ranks"`
	Combined  *bool          `json:"combined,omitempty"`
}

// WriteJSON writes the report as indented JSON to path.
func (r *Report) WriteJSON(path string) error {
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteSummary prints the human-readable result lines. With a single
// retriever the output is exactly the example count and the proportion
// of correct retrievals; with several, each line names its retriever.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "Total number of examples : %d\n", r.Questions)
	multi := len(r.Retrievers) > 1
	for _, s := range r.Retrievers {
		prefix := ""
		if multi {
			prefix = fmt.Sprintf("[%s@%d] ", s.Name, s.K)
		}
		fmt.Fprintf(w, "%sProportion of correct retrieval : %f\n", prefix, s.Recall)
		if len(s.RecallAt) == 0 {
			continue
		}
		cutoffs := make([]int, 0, len(s.RecallAt))
		for c := range s.RecallAt {
			cutoffs = append(cutoffs, c)
		}
		sort.Ints(cutoffs)
		for _, c := range cutoffs {
			fmt.Fprintf(w, "%sRecall@%d : %f\n", prefix, c, s.RecallAt[c])
		}
		fmt.Fprintf(w, "%sMRR@%d : %f\n", prefix, s.K, s.MRR)
	}
	if x := r.Experimental; x != nil {
		fmt.Fprintf(w, "Experimental %s (%s@%d x %s@%d) : %f\n", x.Mode, x.Documents, x.DocK, x.Passages, x.PassageK, x.Recall)
	}
}
