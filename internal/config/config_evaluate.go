package config

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/nqbench/internal/eval"
	"github.com/haasonsaas/nqbench/internal/search"
)

// EvaluateConfig configures a retrieval evaluation run.
type EvaluateConfig struct {
	// Examples is the tabular file or database holding the questions.
	Examples string `yaml:"examples"`

	// Table selects the sheet or database table.
	Table string `yaml:"table"`

	Columns    eval.QuestionColumns `yaml:"columns"`
	Retrievers []RetrieverConfig    `yaml:"retrievers"`
	Combined   *CombinedConfig      `yaml:"combined,omitempty"`

	// Output is an optional JSON report path.
	Output        string `yaml:"output"`
	KeepCases     bool   `yaml:"keep_cases"`
	ProgressEvery int    `yaml:"progress_every"`
}

// RetrieverConfig describes one (index, lookup table, k) tuple.
type RetrieverConfig struct {
	Name      string             `yaml:"name"`
	Index     search.IndexConfig `yaml:"index"`
	Lookup    string             `yaml:"lookup"`
	K         int                `yaml:"k"`
	Cutoffs   []int              `yaml:"cutoffs,omitempty"`
	Criterion string             `yaml:"criterion"`
}

// CombinedConfig enables the experimental document and passage cross-check.
type CombinedConfig struct {
	Documents string `yaml:"documents"`
	Passages  string `yaml:"passages"`
}

func applyEvaluateDefaults(cfg *EvaluateConfig) {
	if cfg.Table == "" {
		cfg.Table = "examples"
	}
	defaults := eval.DefaultQuestionColumns()
	if cfg.Columns.Query == "" {
		cfg.Columns.Query = defaults.Query
	}
	if cfg.Columns.DocID == "" {
		cfg.Columns.DocID = defaults.DocID
	}
	if cfg.Columns.ElementID == "" {
		cfg.Columns.ElementID = defaults.ElementID
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = eval.DefaultProgressEvery
	}
	for i := range cfg.Retrievers {
		r := &cfg.Retrievers[i]
		if r.Criterion == "" {
			r.Criterion = string(eval.MatchPassage)
		}
		if r.Index.Kind == "" {
			r.Index.Kind = search.KindBluge
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("retriever%d", i)
		}
	}
}

func validateEvaluate(cfg EvaluateConfig) []string {
	var issues []string
	names := make(map[string]bool, len(cfg.Retrievers))
	for i, r := range cfg.Retrievers {
		field := fmt.Sprintf("evaluate.retrievers[%d]", i)
		if names[r.Name] {
			issues = append(issues, fmt.Sprintf("%s.name %q is duplicated", field, r.Name))
		}
		names[r.Name] = true
		if strings.TrimSpace(r.Index.Location) == "" {
			issues = append(issues, field+".index.location is required")
		}
		if strings.TrimSpace(r.Lookup) == "" {
			issues = append(issues, field+".lookup is required")
		}
		if r.K <= 0 {
			issues = append(issues, field+".k must be positive")
		}
		for _, c := range r.Cutoffs {
			if c <= 0 || c > r.K {
				issues = append(issues, fmt.Sprintf("%s.cutoffs: %d must be between 1 and k", field, c))
			}
		}
		if _, err := eval.ParseCriterion(r.Criterion); err != nil {
			issues = append(issues, fmt.Sprintf("%s.criterion: %v", field, err))
		}
		switch r.Index.Kind {
		case search.KindBluge, search.KindHTTP, search.KindSQLite:
		default:
			issues = append(issues, fmt.Sprintf("%s.index.kind %q must be bluge, http or sqlite", field, r.Index.Kind))
		}
	}
	if c := cfg.Combined; c != nil {
		if !names[c.Documents] {
			issues = append(issues, fmt.Sprintf("evaluate.combined.documents %q names no retriever", c.Documents))
		}
		if !names[c.Passages] {
			issues = append(issues, fmt.Sprintf("evaluate.combined.passages %q names no retriever", c.Passages))
		}
	}
	if cfg.ProgressEvery < 0 {
		issues = append(issues, "evaluate.progress_every must be positive")
	}
	return issues
}
