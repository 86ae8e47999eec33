package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nqbench/internal/config"
	"github.com/haasonsaas/nqbench/internal/eval"
	"github.com/haasonsaas/nqbench/internal/lookup"
	"github.com/haasonsaas/nqbench/internal/search"
	"github.com/haasonsaas/nqbench/internal/tabular"
)

func runEvaluate(cmd *cobra.Command, app *cliApp, opts *evaluateOptions) (err error) {
	cfg := app.cfg.Evaluate
	flags := cmd.Flags()
	if flags.Changed("examples") {
		cfg.Examples = opts.examples
	}
	if flags.Changed("table") {
		cfg.Table = opts.table
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("keep-cases") {
		cfg.KeepCases = opts.keepCases
	}
	if opts.queryCol != "" {
		cfg.Columns.Query = opts.queryCol
	}
	if opts.docIDCol != "" {
		cfg.Columns.DocID = opts.docIDCol
	}
	if flags.Changed("context-id-column") {
		cfg.Columns.ElementID = opts.contextCol
	}
	if len(opts.indexes) > 0 {
		retrievers, err := retrieversFromFlags(opts)
		if err != nil {
			return err
		}
		cfg.Retrievers = retrievers
		cfg.Combined = nil
	}
	if opts.combined {
		combined, err := combinedFromRetrievers(cfg.Retrievers)
		if err != nil {
			return err
		}
		cfg.Combined = combined
	}

	if strings.TrimSpace(cfg.Examples) == "" {
		return fmt.Errorf("missing required configuration: --examples")
	}
	if len(cfg.Retrievers) == 0 {
		return fmt.Errorf("missing required configuration: --index, --lookup and --k")
	}
	full := &config.Config{Version: config.CurrentVersion, Logging: app.cfg.Logging, Convert: app.cfg.Convert, Evaluate: cfg}
	if err := full.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	retrievers := make([]eval.Retriever, 0, len(cfg.Retrievers))
	for _, rc := range cfg.Retrievers {
		criterion, err := eval.ParseCriterion(rc.Criterion)
		if err != nil {
			return err
		}
		resolver, err := lookup.Open(rc.Lookup)
		if err != nil {
			return fmt.Errorf("retriever %s: %w", rc.Name, err)
		}
		closers = append(closers, resolver)

		searcher, err := search.Open(ctx, rc.Index)
		if err != nil {
			return fmt.Errorf("retriever %s: %w", rc.Name, err)
		}
		traced := search.NewTraced(searcher, rc.Index, app.metrics, app.tracer)
		closers = append(closers, traced)

		app.logger.Info(ctx, "retriever ready",
			"name", rc.Name,
			"index", rc.Index.Label(),
			"lookup_entries", resolver.Len(),
			"k", rc.K,
		)
		retrievers = append(retrievers, eval.Retriever{
			Name:      rc.Name,
			Searcher:  traced,
			Lookup:    resolver,
			K:         rc.K,
			Cutoffs:   rc.Cutoffs,
			Criterion: criterion,
		})
	}

	var combined *eval.Combined
	if cfg.Combined != nil {
		combined = &eval.Combined{Documents: cfg.Combined.Documents, Passages: cfg.Combined.Passages}
	}
	evaluator, err := eval.NewEvaluator(retrievers, &eval.Options{
		Combined:      combined,
		ProgressEvery: cfg.ProgressEvery,
		KeepCases:     cfg.KeepCases,
		Logger:        app.logger,
		Metrics:       app.metrics,
		Tracer:        app.tracer,
	})
	if err != nil {
		return err
	}

	src, err := tabular.Open(ctx, cfg.Examples, cfg.Table)
	if err != nil {
		return err
	}
	closers = append(closers, src)
	questions, err := eval.LoadQuestions(ctx, src, cfg.Columns)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report, err := evaluator.Evaluate(ctx, questions)
	if errors.Is(err, eval.ErrNoExamples) {
		fmt.Fprintf(out, "Total number of examples : 0\n")
		fmt.Fprintln(out, eval.ErrNoExamples.Error())
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.Output != "" {
		if err := report.WriteJSON(cfg.Output); err != nil {
			return err
		}
	}
	report.WriteSummary(out)
	if cfg.Output != "" {
		fmt.Fprintf(out, "Report written to %s\n", cfg.Output)
	}
	return nil
}

// retrieversFromFlags pairs repeated --index, --lookup, --k, --name and
// --criterion values. Single --k and --criterion values are broadcast.
func retrieversFromFlags(opts *evaluateOptions) ([]config.RetrieverConfig, error) {
	n := len(opts.indexes)
	if len(opts.lookups) != n {
		return nil, fmt.Errorf("got %d --index and %d --lookup values; give one lookup per index", n, len(opts.lookups))
	}
	if len(opts.ks) == 0 {
		return nil, fmt.Errorf("missing required configuration: --k")
	}
	if len(opts.ks) != 1 && len(opts.ks) != n {
		return nil, fmt.Errorf("got %d --k values for %d indexes", len(opts.ks), n)
	}
	if len(opts.criteria) > 1 && len(opts.criteria) != n {
		return nil, fmt.Errorf("got %d --criterion values for %d indexes", len(opts.criteria), n)
	}
	if len(opts.names) > 0 && len(opts.names) != n {
		return nil, fmt.Errorf("got %d --name values for %d indexes", len(opts.names), n)
	}

	retrievers := make([]config.RetrieverConfig, n)
	for i := range opts.indexes {
		index, err := search.ParseIndexConfig(opts.indexes[i])
		if err != nil {
			return nil, err
		}
		k, cutoffs, err := parseK(pick(opts.ks, i))
		if err != nil {
			return nil, err
		}
		criterion, err := eval.ParseCriterion(pick(opts.criteria, i))
		if err != nil {
			return nil, err
		}
		retrievers[i] = config.RetrieverConfig{
			Name:      pick(opts.names, i),
			Index:     index,
			Lookup:    opts.lookups[i],
			K:         k,
			Cutoffs:   cutoffs,
			Criterion: string(criterion),
		}
	}
	nameRetrievers(retrievers)
	return retrievers, nil
}

// nameRetrievers fills empty names from the criterion, falling back to a
// numbered name when the criterion is not unique.
func nameRetrievers(retrievers []config.RetrieverConfig) {
	counts := make(map[string]int)
	for _, r := range retrievers {
		counts[r.Criterion]++
	}
	for i := range retrievers {
		r := &retrievers[i]
		if r.Name != "" {
			continue
		}
		base := r.Criterion + "s"
		if counts[r.Criterion] == 1 {
			r.Name = base
		} else {
			r.Name = fmt.Sprintf("%s%d", base, i)
		}
	}
}

// combinedFromRetrievers picks the document and passage retrievers for the
// combined cross-check; exactly one of each is required.
func combinedFromRetrievers(retrievers []config.RetrieverConfig) (*config.CombinedConfig, error) {
	var docs, passages []string
	for _, r := range retrievers {
		switch r.Criterion {
		case string(eval.MatchDocument):
			docs = append(docs, r.Name)
		case string(eval.MatchPassage), "":
			passages = append(passages, r.Name)
		}
	}
	if len(docs) != 1 || len(passages) != 1 {
		return nil, fmt.Errorf("--combined needs exactly one document and one passage retriever, got %d and %d", len(docs), len(passages))
	}
	return &config.CombinedConfig{Documents: docs[0], Passages: passages[0]}, nil
}

// parseK parses "10" or a cutoff list "1,5,10". The largest value is k;
// a list also yields its values as cutoffs.
func parseK(value string) (int, []int, error) {
	parts := strings.Split(value, ",")
	values := make([]int, 0, len(parts))
	k := 0
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v <= 0 {
			return 0, nil, fmt.Errorf("invalid --k value %q: must be a positive integer or a comma-separated list", value)
		}
		values = append(values, v)
		if v > k {
			k = v
		}
	}
	if len(values) == 1 {
		return k, nil, nil
	}
	return k, values, nil
}

func pick(values []string, i int) string {
	switch {
	case len(values) == 0:
		return ""
	case len(values) == 1:
		return values[0]
	default:
		return values[i]
	}
}
