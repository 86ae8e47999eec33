package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nqbench/internal/observability"
	"github.com/haasonsaas/nqbench/pkg/models"
)

// DefaultProgressEvery is the default progress logging interval in questions.
const DefaultProgressEvery = 1000

// Options controls evaluation behavior.
type Options struct {
	// Combined enables the experimental cross-check when non-nil.
	Combined *Combined

	// ProgressEvery is the progress logging interval in questions.
	ProgressEvery int

	// KeepCases retains per-question results in the report.
	KeepCases bool

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Evaluator scores retrievers against a question set.
type Evaluator struct {
	retrievers []Retriever
	options    Options
}

// NewEvaluator validates the retrievers and options.
func NewEvaluator(retrievers []Retriever, opts *Options) (*Evaluator, error) {
	if len(retrievers) == 0 {
		return nil, fmt.Errorf("at least one retriever is required")
	}
	resolved := Options{ProgressEvery: DefaultProgressEvery}
	if opts != nil {
		resolved = *opts
		if resolved.ProgressEvery <= 0 {
			resolved.ProgressEvery = DefaultProgressEvery
		}
	}
	if resolved.Logger == nil {
		resolved.Logger = observability.Discard()
	}
	resolved.Logger = resolved.Logger.WithFields("component", "evaluator")

	names := make(map[string]Retriever, len(retrievers))
	for i, r := range retrievers {
		if r.Name == "" {
			return nil, fmt.Errorf("retriever %d: name is required", i)
		}
		if _, dup := names[r.Name]; dup {
			return nil, fmt.Errorf("retriever %q defined twice", r.Name)
		}
		if r.Searcher == nil {
			return nil, fmt.Errorf("retriever %q: searcher is required", r.Name)
		}
		if r.Lookup == nil {
			return nil, fmt.Errorf("retriever %q: lookup table is required", r.Name)
		}
		if r.K <= 0 {
			return nil, fmt.Errorf("retriever %q: k must be positive, got %d", r.Name, r.K)
		}
		for _, c := range r.Cutoffs {
			if c <= 0 || c > r.K {
				return nil, fmt.Errorf("retriever %q: cutoff %d must be between 1 and k=%d", r.Name, c, r.K)
			}
		}
		if r.Criterion != MatchDocument && r.Criterion != MatchPassage {
			return nil, fmt.Errorf("retriever %q: unknown criterion %q", r.Name, r.Criterion)
		}
		names[r.Name] = r
	}

	if c := resolved.Combined; c != nil {
		if _, ok := names[c.Documents]; !ok {
			return nil, fmt.Errorf("combined: unknown document retriever %q", c.Documents)
		}
		if _, ok := names[c.Passages]; !ok {
			return nil, fmt.Errorf("combined: unknown passage retriever %q", c.Passages)
		}
		if c.Documents == c.Passages {
			return nil, fmt.Errorf("combined: document and passage retrievers must differ")
		}
	}

	return &Evaluator{retrievers: retrievers, options: resolved}, nil
}

// tally accumulates the scores of one retriever.
type tally struct {
	hits      int
	rrSum     float64
	cutoffHit map[int]int
}

// Evaluate runs every question through every retriever. The first
// lookup miss or search failure aborts the run.
func (e *Evaluator) Evaluate(ctx context.Context, questions []models.Question) (report *Report, err error) {
	if len(questions) == 0 {
		return nil, ErrNoExamples
	}

	runID := observability.GetRunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = observability.AddRunID(ctx, runID)
	}
	names := make([]string, len(e.retrievers))
	for i, r := range e.retrievers {
		names[i] = r.Name
	}
	ctx, span := e.options.Tracer.TraceEvaluate(ctx, names)
	defer func() {
		e.options.Tracer.RecordError(span, err)
		span.End()
	}()

	logger := e.options.Logger
	logger.Info(ctx, "begin evaluation", "questions", len(questions), "retrievers", names)

	tallies := make([]tally, len(e.retrievers))
	for i := range tallies {
		tallies[i].cutoffHit = make(map[int]int)
	}
	combinedHits := 0

	var cases []CaseResult
	if e.options.KeepCases {
		cases = make([]CaseResult, 0, len(questions))
	}

	for n, q := range questions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n%e.options.ProgressEvery == 0 && n > 0 {
			logger.Info(ctx, "evaluating", "questions", n, "of", len(questions))
		}

		results := make(map[string][]models.SearchHit, len(e.retrievers))
		caseResult := CaseResult{
			Index:     q.Index,
			Query:     q.Text,
			DocID:     q.DocID,
			ElementID: q.ElementID,
			Ranks:     make(map[string]int, len(e.retrievers)),
		}

		for i, r := range e.retrievers {
			hits, err := r.Searcher.Search(ctx, q.Text, r.K)
			if err != nil {
				return nil, fmt.Errorf("retriever %s: question %d: %w", r.Name, q.Index, err)
			}
			results[r.Name] = hits

			rank, err := e.firstMatch(ctx, r, hits, q)
			if err != nil {
				return nil, err
			}
			caseResult.Ranks[r.Name] = rank

			t := &tallies[i]
			hit := rank > 0 && rank <= r.K
			if hit {
				t.hits++
				t.rrSum += 1 / float64(rank)
			}
			for _, c := range r.Cutoffs {
				if rank > 0 && rank <= c {
					t.cutoffHit[c]++
				}
			}
			e.options.Metrics.QuestionScored(r.Name, hit)
		}

		if c := e.options.Combined; c != nil {
			ok, err := e.combinedMatch(ctx, c, results, q)
			if err != nil {
				return nil, err
			}
			if ok {
				combinedHits++
			}
			caseResult.Combined = &ok
		}

		if e.options.KeepCases {
			cases = append(cases, caseResult)
		}
	}

	report = &Report{
		RunID:       runID,
		TraceID:     observability.GetTraceID(ctx),
		GeneratedAt: time.Now().UTC(),
		Questions:   len(questions),
		Cases:       cases,
	}
	for i, r := range e.retrievers {
		summary := summarize(r, tallies[i], len(questions))
		report.Retrievers = append(report.Retrievers, summary)
		e.options.Metrics.SetRecall(r.Name, summary.Recall)
		logger.Info(observability.AddRetriever(ctx, r.Name), "retriever scored",
			"k", r.K,
			"hits", summary.Hits,
			"recall", summary.Recall,
			"mrr", summary.MRR,
		)
	}
	if c := e.options.Combined; c != nil {
		docs, passages := e.retriever(c.Documents), e.retriever(c.Passages)
		report.Experimental = &ExperimentalSummary{
			Mode:      "combined",
			Documents: docs.Name,
			Passages:  passages.Name,
			DocK:      docs.K,
			PassageK:  passages.K,
			Hits:      combinedHits,
			Recall:    float64(combinedHits) / float64(len(questions)),
		}
	}
	return report, nil
}

// firstMatch returns the 1-based rank of the first of the top K hits
// satisfying the retriever's criterion, or 0 when none does. Only those hits
// are resolved, so a lookup miss further down cannot abort the run.
func (e *Evaluator) firstMatch(ctx context.Context, r Retriever, hits []models.SearchHit, q models.Question) (int, error) {
	for i, hit := range truncate(hits, r.K) {
		entry, err := e.resolve(ctx, r, hit.DocID)
		if err != nil {
			return 0, err
		}
		if r.Criterion.Matches(entry, q) {
			return i + 1, nil
		}
	}
	return 0, nil
}

// combinedMatch applies the experimental document-and-passage predicate.
func (e *Evaluator) combinedMatch(ctx context.Context, c *Combined, results map[string][]models.SearchHit, q models.Question) (bool, error) {
	docs, passages := e.retriever(c.Documents), e.retriever(c.Passages)

	retrievedDocs := make(map[string]struct{})
	for _, hit := range truncate(results[docs.Name], docs.K) {
		entry, err := e.resolve(ctx, docs, hit.DocID)
		if err != nil {
			return false, err
		}
		retrievedDocs[entry.DocID] = struct{}{}
	}

	for _, hit := range truncate(results[passages.Name], passages.K) {
		entry, err := e.resolve(ctx, passages, hit.DocID)
		if err != nil {
			return false, err
		}
		if _, ok := retrievedDocs[entry.DocID]; !ok {
			continue
		}
		if MatchPassage.Matches(entry, q) {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) resolve(ctx context.Context, r Retriever, id string) (models.LookupEntry, error) {
	entry, ok, err := r.Lookup.Get(id)
	if err != nil {
		return models.LookupEntry{}, fmt.Errorf("retriever %s: lookup %q: %w", r.Name, id, err)
	}
	if !ok {
		e.options.Metrics.LookupMissed(r.Name)
		e.options.Logger.Error(observability.AddRetriever(ctx, r.Name), "lookup miss", "id", id)
		return models.LookupEntry{}, fmt.Errorf("%w: retriever %s: id %q", ErrLookupMiss, r.Name, id)
	}
	return entry, nil
}

func (e *Evaluator) retriever(name string) Retriever {
	for _, r := range e.retrievers {
		if r.Name == name {
			return r
		}
	}
	return Retriever{}
}

func truncate(hits []models.SearchHit, k int) []models.SearchHit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}

func summarize(r Retriever, t tally, questions int) RetrieverSummary {
	count := float64(questions)
	s := RetrieverSummary{
		Name:      r.Name,
		Criterion: string(r.Criterion),
		K:         r.K,
		Questions: questions,
		Hits:      t.hits,
		Recall:    float64(t.hits) / count,
		MRR:       t.rrSum / count,
	}
	if len(r.Cutoffs) > 0 {
		s.RecallAt = make(map[int]float64, len(r.Cutoffs))
		for _, c := range r.Cutoffs {
			s.RecallAt[c] = float64(t.cutoffHit[c]) / count
		}
	}
	return s
}
